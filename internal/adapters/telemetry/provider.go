package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/stall/internal/core/ports"
)

// KindAttribute marks a span as belonging to a resource and carries its kind.
const KindAttribute = attribute.Key("stall.resource.kind")

// OTelTracer is a concrete implementation of ports.Tracer using OpenTelemetry.
type OTelTracer struct {
	name     string
	tracer   trace.Tracer
	renderer ports.Renderer
	mu       sync.RWMutex
}

var _ ports.Tracer = (*OTelTracer)(nil)

// NewOTelTracer creates a new OTelTracer with the given instrumentation name.
// Spans go to the global tracer provider until WithRenderer installs a private one.
func NewOTelTracer(name string) *OTelTracer {
	return &OTelTracer{
		name:   name,
		tracer: otel.Tracer(name),
	}
}

// WithRenderer routes span lifecycle and installer output to r.
// It installs a tracer provider whose only processor is a Bridge to r.
func (t *OTelTracer) WithRenderer(r ports.Renderer) *OTelTracer {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewBridge(r)))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer = r
	t.tracer = tp.Tracer(t.name)
	return t
}

// WithTracerProvider replaces the provider spans are created with.
func (t *OTelTracer) WithTracerProvider(tp trace.TracerProvider) *OTelTracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracer = tp.Tracer(t.name)
	return t
}

// Start creates a new span. Spans started with ports.WithKind are reported to the renderer.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	t.mu.RLock()
	tracer, renderer := t.tracer, t.renderer
	t.mu.RUnlock()

	var startOpts []trace.SpanStartOption
	if cfg.Kind != "" {
		startOpts = append(startOpts, trace.WithAttributes(KindAttribute.String(cfg.Kind)))
	}
	ctx, span := tracer.Start(ctx, name, startOpts...)

	var batcher *LogBatcher
	if renderer != nil && cfg.Kind != "" {
		spanID := span.SpanContext().SpanID().String()
		batcher = NewLogBatcher(0, 0, func(data []byte) {
			renderer.OnResourceLog(spanID, data)
		})
	}

	return ctx, &OTelSpan{span: span, batcher: batcher}
}

// EmitPlan records the resolved order on the current span and hands it to the renderer.
func (t *OTelTracer) EmitPlan(ctx context.Context, labels []string, deps map[string][]string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("resources", labels),
		))
	}

	t.mu.RLock()
	renderer := t.renderer
	t.mu.RUnlock()

	if renderer != nil {
		renderer.OnPlanEmit(labels, deps)
	}
}

// OTelSpan is a concrete implementation of ports.Span using OpenTelemetry.
type OTelSpan struct {
	span    trace.Span
	batcher *LogBatcher
}

var _ ports.Span = (*OTelSpan)(nil)

// End flushes pending output and completes the span.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
	}
	s.span.End()
}

// RecordError records an error for the span.
func (s *OTelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write satisfies io.Writer by batching output for the renderer,
// or by adding a log event to the span when no renderer is attached.
func (s *OTelSpan) Write(p []byte) (int, error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}
