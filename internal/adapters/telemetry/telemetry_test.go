package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/stall/internal/adapters/telemetry"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
)

// recordingRenderer is a simple test double for ports.Renderer.
type recordingRenderer struct {
	mu        sync.Mutex
	plan      []string
	deps      map[string][]string
	started   []string
	logs      map[string]string
	completed map[string]error
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{logs: map[string]string{}, completed: map[string]error{}}
}

func (r *recordingRenderer) Start(_ context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                   { return nil }
func (r *recordingRenderer) Wait() error                   { return nil }
func (r *recordingRenderer) OnReport(_ *domain.OutcomeReport) {}

func (r *recordingRenderer) OnPlanEmit(labels []string, deps map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plan, r.deps = labels, deps
}

func (r *recordingRenderer) OnResourceStart(_, _, name string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, name)
}

func (r *recordingRenderer) OnResourceLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[spanID] += string(data)
}

func (r *recordingRenderer) OnResourceComplete(spanID string, _ time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[spanID] = err
}

var _ ports.Renderer = (*recordingRenderer)(nil)

func TestOTelTracer_WithRenderer(t *testing.T) {
	rec := newRecordingRenderer()
	tracer := telemetry.NewOTelTracer("test").WithRenderer(rec)
	ctx := context.Background()

	tracer.EmitPlan(ctx, []string{"a", "b"}, map[string][]string{"b": {"a"}})
	assert.Equal(t, []string{"a", "b"}, rec.plan)
	assert.Equal(t, []string{"a"}, rec.deps["b"])

	rootCtx, root := tracer.Start(ctx, "build")
	_, span := tracer.Start(rootCtx, "a", ports.WithKind("apt"))
	otelSpan, ok := span.(*telemetry.OTelSpan)
	require.True(t, ok)
	assert.NotNil(t, otelSpan.Batcher())

	_, err := span.Write([]byte("Reading package lists...\n"))
	require.NoError(t, err)
	span.RecordError(errors.New("exit status 100"))
	span.End()
	root.End()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"a"}, rec.started, "root span is not a resource")
	require.Len(t, rec.completed, 1)
	for spanID, completeErr := range rec.completed {
		assert.EqualError(t, completeErr, "exit status 100")
		assert.Equal(t, "Reading package lists...\n", rec.logs[spanID])
	}
}

func TestOTelTracer_NoRenderer(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := telemetry.NewOTelTracer("test").WithTracerProvider(tp)
	ctx, root := tracer.Start(context.Background(), "build")
	tracer.EmitPlan(ctx, []string{"git"}, nil)

	_, span := tracer.Start(ctx, "git", ports.WithKind("apt"))
	n, err := span.Write([]byte("log"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	span.End()
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	resource := spans[0]
	assert.Equal(t, "git", resource.Name())
	assert.Contains(t, resource.Attributes(), telemetry.KindAttribute.String("apt"))
	require.Len(t, resource.Events(), 1)
	assert.Equal(t, "log", resource.Events()[0].Name)

	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "plan_emitted", spans[1].Events()[0].Name)
}

func TestOTelSpan_SetAttribute(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := telemetry.NewOTelTracer("test").WithTracerProvider(tp)

	_, span := tracer.Start(context.Background(), "attrs")
	span.SetAttribute("str", "val")
	span.SetAttribute("int", 123)
	span.SetAttribute("int64", int64(456))
	span.SetAttribute("float", 3.5)
	span.SetAttribute("bool", true)
	span.SetAttribute("slice", []string{"a", "b"})
	span.SetAttribute("kind", domain.KindApt)
	span.RecordError(nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("str", "val"))
	assert.Contains(t, attrs, attribute.Int("int", 123))
	assert.Contains(t, attrs, attribute.Int64("int64", 456))
	assert.Contains(t, attrs, attribute.Float64("float", 3.5))
	assert.Contains(t, attrs, attribute.Bool("bool", true))
	assert.Contains(t, attrs, attribute.StringSlice("slice", []string{"a", "b"}))
	assert.Contains(t, attrs, attribute.String("kind", "apt"))
}

func TestBridge_NilRenderer(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(nil)))
	tracer := telemetry.NewOTelTracer("test").WithTracerProvider(tp)

	_, span := tracer.Start(context.Background(), "git", ports.WithKind("apt"))
	span.End()

	require.NoError(t, telemetry.NewBridge(nil).ForceFlush(context.Background()))
	require.NoError(t, telemetry.NewBridge(nil).Shutdown(context.Background()))
}

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()
	ctx := context.Background()

	newCtx, span := tracer.Start(ctx, "noop", ports.WithKind("zip"))
	assert.Equal(t, ctx, newCtx)
	tracer.EmitPlan(ctx, []string{"a"}, nil)

	n, err := span.Write([]byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	span.SetAttribute("k", "v")
	span.RecordError(errors.New("ignored"))
	span.End()
}
