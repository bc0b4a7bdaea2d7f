package host

import (
	"context"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	frameKey contextKey = "frame"
)

// WithFrame returns a context through which host functions find the executing frame.
func WithFrame(ctx context.Context, f *Frame) context.Context {
	return context.WithValue(ctx, frameKey, f)
}

// FrameFromContext returns the frame stored by WithFrame, or nil.
func FrameFromContext(ctx context.Context) *Frame {
	f, _ := ctx.Value(frameKey).(*Frame)
	return f
}
