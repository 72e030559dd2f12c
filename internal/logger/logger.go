package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
)

// Logger represents application logger.
type Logger struct {
	*slog.Logger
}

// New creates new Logger instance with the specified level.
func New(level int) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(level)})),
	}
}

// With returns a Logger that always includes the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Fatal is equivalent to Error followed by os.Exit(1).
func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}

// Redact returns a short fingerprint of a credential so log lines can be
// correlated without ever containing the credential itself.
func Redact(token string) string {
	if token == "" {
		return "<empty>"
	}
	sum := sha256.Sum256([]byte(token))

	return "sha256:" + hex.EncodeToString(sum[:6])
}
