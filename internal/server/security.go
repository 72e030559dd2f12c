package server

import (
	"crypto/tls"
	"fmt"
	"net"
)

// MinTLSVersion is the oldest protocol accepted. Bearer and refresh tokens
// cross this connection, so legacy versions are refused.
const MinTLSVersion = tls.VersionTLS12

// TLSListener listens with TLS using a certificate pair from disk.
type TLSListener struct {
	certFileName       string
	privateKeyFileName string
}

// NewTLSListener creates a TLSListener for the given certificate and key files.
func NewTLSListener(certFileName, privateKeyFileName string) *TLSListener {
	return &TLSListener{
		certFileName:       certFileName,
		privateKeyFileName: privateKeyFileName,
	}
}

// Config loads the certificate pair and returns the server TLS config.
func (l *TLSListener) Config() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(l.certFileName, l.privateKeyFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   MinTLSVersion,
		NextProtos:   []string{"h2"},
	}, nil
}

// Listen creates a TLS listener on addr.
func (l *TLSListener) Listen(protocol, addr string) (net.Listener, error) {
	tlsConfig, err := l.Config()
	if err != nil {
		return nil, err
	}
	return tls.Listen(protocol, addr, tlsConfig)
}

// PlainListener listens without TLS. Only meant for local development or
// behind a TLS-terminating proxy.
type PlainListener struct{}

// NewPlainListener creates a PlainListener.
func NewPlainListener() *PlainListener {
	return &PlainListener{}
}

// Listen creates a plain listener on addr.
func (l *PlainListener) Listen(protocol, addr string) (net.Listener, error) {
	return net.Listen(protocol, addr)
}
