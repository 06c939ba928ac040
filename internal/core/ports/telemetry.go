package ports

import (
	"context"
	"io"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
	// EmitPlan signals the resolved build order and the dependency map of each label.
	EmitPlan(ctx context.Context, labels []string, deps map[string][]string)
}

// Span represents a unit of work. Installer output written to it is streamed to the renderer.
type Span interface {
	io.Writer
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig holds configuration for a starting span.
type SpanConfig struct {
	// Kind is the resource kind, shown next to the span name by renderers.
	Kind string
}

// SpanOption is a functional option for configuring a span.
type SpanOption func(*SpanConfig)

// WithKind tags the span with a resource kind.
func WithKind(kind string) SpanOption {
	return func(c *SpanConfig) {
		c.Kind = kind
	}
}
