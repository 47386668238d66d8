// Package logging wraps the standard library logger behind a small
// interface, the same thin seam the prior CLI uses around stdout/stderr
// (internal/cli's quiet-gated log.Println/fmt.Printf calls) so components can
// be tested against a no-op logger without pulling in a logging framework
// the rest of the codebase has no other use for.
package logging

import (
	"log"
	"os"
)

// Logger is the narrow surface every component logs through.
type Logger interface {
	Printf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// stdLogger adapts the standard library's *log.Logger.
type stdLogger struct {
	l *log.Logger
}

// New returns a Logger writing to stderr with a microsecond timestamp.
func New(prefix string) Logger {
	return &stdLogger{l: log.New(os.Stderr, prefix, log.LstdFlags|log.Lmicroseconds)}
}

func (s *stdLogger) Printf(format string, args ...any) {
	s.l.Printf(format, args...)
}

func (s *stdLogger) Warnf(format string, args ...any) {
	s.l.Printf("WARN "+format, args...)
}

func (s *stdLogger) Errorf(format string, args ...any) {
	s.l.Printf("ERROR "+format, args...)
}

// Nop discards everything. Used in tests in place of a real Logger.
type Nop struct{}

func (Nop) Printf(string, ...any) {}
func (Nop) Warnf(string, ...any)  {}
func (Nop) Errorf(string, ...any) {}

var _ Logger = Nop{}
