// Package elog declares the logging seam the rest of the event engine
// depends on. Components never import zap (or any logger) directly;
// they take an ExternalLogger, the same way kgo.Client takes a
// kgo.Logger rather than hard-wiring a logging backend.
package elog

// ExternalLogger is the logging interface the engine, hooks, and
// timers emit through. kv is an alternating key/value list, the same
// convention zap's SugaredLogger uses.
type ExternalLogger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Nop discards everything. It is the zero-value default wherever a
// caller does not supply a logger.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}

var _ ExternalLogger = Nop{}
