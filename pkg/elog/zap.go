package elog

import "go.uber.org/zap"

// Zap adapts a *zap.Logger (sugared) to ExternalLogger. engine.New
// falls back to a no-op logger when unset; callers opt into this
// binding explicitly via engine.WithLogger(elog.NewZap(...)).
type Zap struct {
	s *zap.SugaredLogger
}

// NewZap wraps l. A nil l falls back to zap.NewNop().
func NewZap(l *zap.Logger) Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return Zap{s: l.Sugar()}
}

func (z Zap) Debug(msg string, kv ...any) { z.s.Debugw(msg, kv...) }
func (z Zap) Info(msg string, kv ...any)  { z.s.Infow(msg, kv...) }
func (z Zap) Warn(msg string, kv ...any)  { z.s.Warnw(msg, kv...) }
func (z Zap) Error(msg string, kv ...any) { z.s.Errorw(msg, kv...) }

var _ ExternalLogger = Zap{}
