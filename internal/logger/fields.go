package logger

import "log/slog"

// Field keys shared by every log statement so records can be filtered
// consistently.
const (
	KeyTraceID   = "trace_id"
	KeyRequestID = "request_id"
	KeyOperation = "operation"
	KeyClientIP  = "client_ip"

	// Workers and work units
	KeyToken     = "token"
	KeyImage     = "image"
	KeyCategory  = "category"
	KeyShardSize = "shard_size"
	KeyProcessed = "processed"
	KeyTotal     = "total"
	KeyEntries   = "entries"

	// Storage
	KeyStore  = "store"
	KeyKind   = "kind"
	KeyBucket = "bucket"
	KeyKey    = "key"

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyStatus     = "status"
	KeyMethod     = "method"
	KeyPath       = "path"
)

// Token returns the token attribute.
func Token(token string) slog.Attr { return slog.String(KeyToken, token) }

// Image returns the image attribute.
func Image(name string) slog.Attr { return slog.String(KeyImage, name) }

// Category returns the category attribute.
func Category(c string) slog.Attr { return slog.String(KeyCategory, c) }

// Store returns the store backend attribute.
func Store(name string) slog.Attr { return slog.String(KeyStore, name) }

// DurationMs returns the duration attribute.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns the error attribute, or an empty attribute for a nil error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
