package telemetry

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withRecorder routes spans to an in-memory recorder for the duration of
// the test.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	prev := tracer
	tracer = tp.Tracer("test")
	t.Cleanup(func() {
		tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "labelhub", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.False(t, cfg.Profiling.Enabled)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestInitProfilingRejectsUnknownType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiling.Enabled = true
	cfg.Profiling.ProfileTypes = []string{"heap_of_lies"}

	_, err := InitProfiling(cfg)
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.5).Description(), sampler(0.5).Description())
}

func TestNoopHelpers(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		_, span := StartSpan(ctx, "test.operation")
		span.End()
		AddEvent(ctx, "test.event")
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("test error"))
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
	assert.Equal(t, "", TraceID(ctx))
}

func TestStartCoordinatorSpan(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := StartCoordinatorSpan(context.Background(), SpanSubmit, "001_001_abc", Entries(3))
	assert.NotEmpty(t, TraceID(ctx))
	RecordError(ctx, errors.New("rejected"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, SpanSubmit, s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Contains(t, s.Attributes(), attribute.String(AttrToken, "001_001_abc"))
	assert.Contains(t, s.Attributes(), attribute.Int(AttrEntries, 3))
}

func TestStartCoordinatorSpanWithoutToken(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartCoordinatorSpan(context.Background(), SpanMerge, "")
	span.End()

	require.Len(t, rec.Ended(), 1)
	for _, kv := range rec.Ended()[0].Attributes() {
		assert.NotEqual(t, AttrToken, string(kv.Key))
	}
}

func TestHTTPPropagation(t *testing.T) {
	withRecorder(t)
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	ctx, span := StartSpan(context.Background(), "client")
	defer span.End()

	h := http.Header{}
	InjectHTTP(ctx, h)
	require.NotEmpty(t, h.Get("traceparent"))

	remote := ExtractHTTP(context.Background(), h)
	assert.Equal(t, TraceID(ctx), TraceID(remote))
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr attribute.KeyValue
		key  string
		want any
	}{
		{"Token", Token("t"), AttrToken, "t"},
		{"Image", Image("a.png"), AttrImage, "a.png"},
		{"Category", Category("cat"), AttrCategory, "cat"},
		{"Entries", Entries(4), AttrEntries, int64(4)},
		{"ShardSize", ShardSize(7), AttrShardSize, int64(7)},
		{"IdempotencyKey", IdempotencyKey("k"), AttrIdempotency, "k"},
		{"Duplicate", Duplicate(true), AttrDuplicate, true},
		{"Conflicts", Conflicts(2), AttrConflicts, int64(2)},
		{"StoreType", StoreType("badger"), AttrStoreType, "badger"},
		{"Bucket", Bucket("b"), AttrBucket, "b"},
		{"StorageKey", StorageKey("p/k"), AttrKey, "p/k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, string(tt.attr.Key))
			assert.Equal(t, tt.want, tt.attr.Value.AsInterface())
		})
	}

	page := Page(10, 20)
	assert.Equal(t, attribute.Int(AttrOffset, 10), page[0])
	assert.Equal(t, attribute.Int(AttrLimit, 20), page[1])

	prog := Progress(3, 9)
	assert.Equal(t, attribute.Int(AttrProcessed, 3), prog[0])
	assert.Equal(t, attribute.Int(AttrTotal, 9), prog[1])
}
