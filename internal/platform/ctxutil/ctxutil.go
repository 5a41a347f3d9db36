package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type traceDataKey struct{}
type callerKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// Caller identifies who is asking for a plan. UserID is uuid.Nil for anonymous callers.
type Caller struct {
	UserID uuid.UUID
	Tier   string
}

func (c Caller) Anonymous() bool { return c.UserID == uuid.Nil }

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// GetCaller returns the caller attached by the identity middleware, or ok=false.
func GetCaller(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
