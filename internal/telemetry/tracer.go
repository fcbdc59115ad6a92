package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Generic keys follow OpenTelemetry semantic conventions;
// domain keys use the "labelhub." prefix.
const (
	AttrClientIP  = "client.ip"
	AttrRequestID = "http.request_id"

	AttrToken       = "labelhub.token"
	AttrOperation   = "labelhub.operation"
	AttrImage       = "labelhub.image"
	AttrCategory    = "labelhub.category"
	AttrEntries     = "labelhub.entries"
	AttrShardSize   = "labelhub.shard_size"
	AttrOffset      = "labelhub.offset"
	AttrLimit       = "labelhub.limit"
	AttrProcessed   = "labelhub.processed"
	AttrTotal       = "labelhub.total"
	AttrIdempotency = "labelhub.idempotency_key"
	AttrDuplicate   = "labelhub.duplicate"
	AttrConflicts   = "labelhub.conflicts"

	AttrStoreType = "store.type"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
)

// Span names for coordinator operations. Format: <component>.<operation>.
const (
	SpanAuthenticate   = "coordinator.authenticate"
	SpanGetShard       = "coordinator.get_shard"
	SpanListShardPage  = "coordinator.list_shard_page"
	SpanFetchImage     = "coordinator.fetch_image"
	SpanReportProgress = "coordinator.report_progress"
	SpanSubmit         = "coordinator.submit_classifications"
	SpanUndo           = "coordinator.undo_last"
	SpanProgress       = "coordinator.progress"
	SpanMerge          = "coordinator.merge"
	SpanDistribute     = "coordinator.distribute"

	SpanOriginList = "origin.list"
	SpanOriginOpen = "origin.open"
)

// Token returns an attribute for the worker token.
func Token(tok string) attribute.KeyValue {
	return attribute.String(AttrToken, tok)
}

// Image returns an attribute for an image filename.
func Image(name string) attribute.KeyValue {
	return attribute.String(AttrImage, name)
}

// Category returns an attribute for a label category.
func Category(c string) attribute.KeyValue {
	return attribute.String(AttrCategory, c)
}

// Entries returns an attribute for a number of label entries.
func Entries(n int) attribute.KeyValue {
	return attribute.Int(AttrEntries, n)
}

// ShardSize returns an attribute for the size of a shard.
func ShardSize(n int) attribute.KeyValue {
	return attribute.Int(AttrShardSize, n)
}

// Page returns the offset and limit attributes of a paged listing.
func Page(offset, limit int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrOffset, offset),
		attribute.Int(AttrLimit, limit),
	}
}

// Progress returns the processed and total attributes.
func Progress(processed, total int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrProcessed, processed),
		attribute.Int(AttrTotal, total),
	}
}

// IdempotencyKey returns an attribute for a submission key.
func IdempotencyKey(key string) attribute.KeyValue {
	return attribute.String(AttrIdempotency, key)
}

// Duplicate returns an attribute marking a replayed submission.
func Duplicate(dup bool) attribute.KeyValue {
	return attribute.Bool(AttrDuplicate, dup)
}

// Conflicts returns an attribute for the number of conflicting images.
func Conflicts(n int) attribute.KeyValue {
	return attribute.Int(AttrConflicts, n)
}

// ClientIP returns an attribute for the client IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// StoreType returns an attribute for the KV backend in use.
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Bucket returns an attribute for an S3 bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for an S3 object key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// StartCoordinatorSpan starts a span for a coordinator operation. An empty
// token is left off the span.
func StartCoordinatorSpan(ctx context.Context, name, token string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	if token != "" {
		all = append(all, Token(token))
	}
	all = append(all, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(all...))
}

// StartOriginSpan starts a span for an image origin call.
func StartOriginSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

// RequestID returns an attribute for the HTTP request id.
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// StartServerSpan starts the span of an inbound API request. The name is
// refined to the matched route once routing is done.
func StartServerSpan(ctx context.Context, method, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "HTTP "+method+" "+path, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(attrs...))
}

// StartClientSpan starts the span of an outbound API call.
func StartClientSpan(ctx context.Context, method, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "HTTP "+method+" "+path, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}
