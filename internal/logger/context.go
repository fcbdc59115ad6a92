package logger

import (
	"context"
	"time"
)

type contextKey struct{}

// LogContext carries request-scoped fields that the *Ctx functions prepend
// to every record.
type LogContext struct {
	TraceID   string
	RequestID string
	Operation string // coordinator operation: auth, shard, submit, undo...
	Token     string // worker token, already validated
	ClientIP  string
	StartTime time.Time
}

// WithContext stores lc in ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext returns the LogContext in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*LogContext)
	return lc
}

// NewLogContext starts a LogContext for a request from clientIP.
func NewLogContext(requestID, clientIP string) *LogContext {
	return &LogContext{
		RequestID: requestID,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone returns a shallow copy. A nil receiver yields nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithToken returns a copy bound to token.
func (lc *LogContext) WithToken(token string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Token = token
	}
	return c
}

// WithOperation returns a copy bound to op.
func (lc *LogContext) WithOperation(op string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Operation = op
	}
	return c
}

// WithTrace returns a copy carrying the trace id.
func (lc *LogContext) WithTrace(traceID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
	}
	return c
}

// DurationMs is the time elapsed since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}

// ContextWithToken binds token to the LogContext already in ctx, creating
// one when absent.
func ContextWithToken(ctx context.Context, token string) context.Context {
	lc := FromContext(ctx)
	if lc == nil {
		lc = &LogContext{StartTime: time.Now()}
	}
	return WithContext(ctx, lc.WithToken(token))
}
