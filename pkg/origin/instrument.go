package origin

import (
	"context"
	"time"

	"github.com/marmos91/labelhub/internal/telemetry"
)

// Metrics observes origin calls. A nil Metrics disables collection.
type Metrics interface {
	// ObserveOperation records one call. operation is "list", "open" or
	// "healthcheck".
	ObserveOperation(backend, operation string, duration time.Duration, err error)
	RecordBytes(backend string, bytes int)
}

// Instrument wraps o so every call is traced and, when m is non-nil,
// measured. backend names the implementation ("fs", "s3").
func Instrument(o Origin, backend string, m Metrics) Origin {
	return &instrumented{next: o, backend: backend, metrics: m}
}

type instrumented struct {
	next    Origin
	backend string
	metrics Metrics
}

func (i *instrumented) List(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartOriginSpan(ctx, telemetry.SpanOriginList, telemetry.StoreType(i.backend))
	defer span.End()

	start := time.Now()
	names, err := i.next.List(ctx)
	i.observe(ctx, "list", start, err)
	return names, err
}

func (i *instrumented) Open(ctx context.Context, name string) ([]byte, error) {
	ctx, span := telemetry.StartOriginSpan(ctx, telemetry.SpanOriginOpen,
		telemetry.StoreType(i.backend), telemetry.Image(name))
	defer span.End()

	start := time.Now()
	data, err := i.next.Open(ctx, name)
	i.observe(ctx, "open", start, err)
	if err == nil && i.metrics != nil {
		i.metrics.RecordBytes(i.backend, len(data))
	}
	return data, err
}

func (i *instrumented) Healthcheck(ctx context.Context) error {
	start := time.Now()
	err := i.next.Healthcheck(ctx)
	i.observe(ctx, "healthcheck", start, err)
	return err
}

func (i *instrumented) observe(ctx context.Context, op string, start time.Time, err error) {
	telemetry.RecordError(ctx, err)
	if i.metrics != nil {
		i.metrics.ObserveOperation(i.backend, op, time.Since(start), err)
	}
}
