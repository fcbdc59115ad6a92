// Package logger is the process-wide structured logger for labelhub.
//
// It wraps log/slog behind package-level functions so every package logs
// through the same handler, level and format. The handler can be swapped at
// runtime (Init, SetLevel, SetFormat) without callers holding references.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the minimum severity that gets written.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config mirrors the logging section of the server configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	minLevel  atomic.Int32
	useJSON   atomic.Bool
	mu        sync.RWMutex
	current   *slog.Logger
	out       io.Writer = os.Stdout
	colorized           = true
	closer    io.Closer
)

func init() {
	minLevel.Store(int32(LevelInfo))
	colorized = isTerminal(os.Stdout)
	rebuild()
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ParseLevel converts a level name into a Level. Unknown names report false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: Level(minLevel.Load()).slog()}

	var h slog.Handler
	if useJSON.Load() {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = NewColorTextHandler(out, opts, colorized)
	}
	current = slog.New(h)
}

// Init applies cfg. Output accepts "stdout", "stderr" or a file path that is
// opened in append mode.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, color, c, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}

		mu.Lock()
		if closer != nil {
			_ = closer.Close()
		}
		out, colorized, closer = w, color, c
		mu.Unlock()
	}

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}

	rebuild()
	return nil
}

func openOutput(target string) (io.Writer, bool, io.Closer, error) {
	switch strings.ToLower(target) {
	case "stdout":
		return os.Stdout, isTerminal(os.Stdout), nil, nil
	case "stderr":
		return os.Stderr, isTerminal(os.Stderr), nil, nil
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, nil, fmt.Errorf("failed to open log file %q: %w", target, err)
	}
	return f, false, f, nil
}

// InitWithWriter routes logs to w. Tests use it to capture output.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	out = w
	colorized = enableColor
	mu.Unlock()

	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
	rebuild()
}

// SetLevel changes the minimum level. Invalid names are ignored.
func SetLevel(level string) {
	l, ok := ParseLevel(level)
	if !ok {
		return
	}
	minLevel.Store(int32(l))
	rebuild()
}

// SetFormat switches between "text" and "json". Invalid names are ignored.
func SetFormat(format string) {
	switch strings.ToLower(format) {
	case "json":
		useJSON.Store(true)
	case "text":
		useJSON.Store(false)
	default:
		return
	}
	rebuild()
}

// GetLevel returns the active minimum level.
func GetLevel() Level {
	return Level(minLevel.Load())
}

func enabled(l Level) bool {
	return l >= Level(minLevel.Load())
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// ============================================================================
// Structured API
// ============================================================================

// Debug logs at debug level: Debug("msg", "key", value, ...)
func Debug(msg string, args ...any) {
	if enabled(LevelDebug) {
		get().Debug(msg, args...)
	}
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if enabled(LevelInfo) {
		get().Info(msg, args...)
	}
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	if enabled(LevelWarn) {
		get().Warn(msg, args...)
	}
}

// Error logs at error level. Errors are never filtered.
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// ============================================================================
// Context-aware API
// ============================================================================

// DebugCtx logs at debug level, prefixing the fields stored in ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	if enabled(LevelDebug) {
		get().Debug(msg, withContextFields(ctx, args)...)
	}
}

// InfoCtx logs at info level, prefixing the fields stored in ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	if enabled(LevelInfo) {
		get().Info(msg, withContextFields(ctx, args)...)
	}
}

// WarnCtx logs at warn level, prefixing the fields stored in ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	if enabled(LevelWarn) {
		get().Warn(msg, withContextFields(ctx, args)...)
	}
}

// ErrorCtx logs at error level, prefixing the fields stored in ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	get().Error(msg, withContextFields(ctx, args)...)
}

func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := make([]any, 0, 10+len(args))
	if lc.TraceID != "" {
		fields = append(fields, KeyTraceID, lc.TraceID)
	}
	if lc.RequestID != "" {
		fields = append(fields, KeyRequestID, lc.RequestID)
	}
	if lc.Operation != "" {
		fields = append(fields, KeyOperation, lc.Operation)
	}
	if lc.Token != "" {
		fields = append(fields, KeyToken, lc.Token)
	}
	if lc.ClientIP != "" {
		fields = append(fields, KeyClientIP, lc.ClientIP)
	}
	return append(fields, args...)
}

// With returns a child logger with pre-bound attributes.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration returns the elapsed time since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Infof logs a formatted message at info level.
func Infof(format string, v ...any) {
	if enabled(LevelInfo) {
		get().Info(fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, v ...any) {
	if enabled(LevelWarn) {
		get().Warn(fmt.Sprintf(format, v...))
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isTerminal(f)
}
