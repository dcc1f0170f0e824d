// Package logging holds the process logger and the request-scoped
// loggers carried in contexts.
package logging

import (
	"context"
	"strings"
	"sync/atomic"

	"arrow-spatial/pkg/errkind"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// New builds a logger. format is "json" (production encoder) or
// "console" (development encoder).
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to parse log level %q", level)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console", "text":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, errkind.New(errkind.Internal, "unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to build logger")
	}
	return logger, nil
}

// L returns the process logger. It discards everything until Set is called.
func L() *zap.Logger { return global.Load() }

// Set replaces the process logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

// WithLogger returns a context carrying l.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithRequestID returns a context whose logger tags every entry with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(zap.String("request_id", id)))
}

// FromContext returns the logger of ctx, or the process logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return L()
}

func Debugf(ctx context.Context, tpl string, args ...any) {
	FromContext(ctx).Sugar().Debugf(tpl, args...)
}

func Infof(ctx context.Context, tpl string, args ...any) {
	FromContext(ctx).Sugar().Infof(tpl, args...)
}

func Errorf(ctx context.Context, tpl string, args ...any) {
	FromContext(ctx).Sugar().Errorf(tpl, args...)
}
