package model

import (
	"context"
	"net"
)

// SecurityLayer opens the listener the gRPC server accepts on, with or
// without TLS.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a long-running transport started by main and stopped on
// shutdown.
type Server interface {
	// Start blocks until the server stops.
	Start(securityLayer SecurityLayer) error
	// Stop drains in-flight calls until ctx ends.
	Stop(ctx context.Context) error
	Address() string
}
