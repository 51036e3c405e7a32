package log

import "context"

// Kv is a helper type for structured logging fields.
type Kv map[string]any

// Logger is the interface that the loggers used by the application must implement.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
	WithValues(values Kv) Logger
	WithCtxValues(ctx context.Context) Logger
	SetValuesOnCtx(parent context.Context, values Kv) context.Context
}

// Noop logger doesn't log anything.
const Noop = noop(0)

type noop int

func (n noop) Infof(format string, args ...any)    {}
func (n noop) Warningf(format string, args ...any) {}
func (n noop) Errorf(format string, args ...any)   {}
func (n noop) Debugf(format string, args ...any)   {}
func (n noop) WithValues(_ Kv) Logger              { return n }
func (n noop) WithCtxValues(_ context.Context) Logger {
	return n
}
func (n noop) SetValuesOnCtx(parent context.Context, _ Kv) context.Context {
	return parent
}

type contextKey string

const contextLogValuesKey contextKey = "internal-log-values"

// CtxWithValues returns a copy of parent with the log values merged on top of
// any values already present.
func CtxWithValues(parent context.Context, kv Kv) context.Context {
	existing := ValuesFromCtx(parent)
	merged := make(Kv, len(existing)+len(kv))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range kv {
		merged[k] = v
	}

	return context.WithValue(parent, contextLogValuesKey, merged)
}

// ValuesFromCtx gets the log values from the context.
func ValuesFromCtx(ctx context.Context) Kv {
	v := ctx.Value(contextLogValuesKey)
	if v == nil {
		return Kv{}
	}

	kv, ok := v.(Kv)
	if !ok {
		return Kv{}
	}

	return kv
}
