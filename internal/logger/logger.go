package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Initialize points the process-wide logger at stdout.
func Initialize(level, format string) {
	InitializeWithWriter(level, format, os.Stdout)
}

// InitializeWithWriter swaps the process-wide logger. Format is "json" or
// anything else for text.
func InitializeWithWriter(level, format string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// Get returns the current logger. Code that logs before Initialize gets an
// info level text logger on stdout.
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Initialize("info", "text")
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

func DebugContext(ctx context.Context, msg string, args ...any) {
	Get().DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// EnterMethod records a service or repository call starting. Debug only.
func EnterMethod(methodName string, args ...any) {
	Get().Debug("call started", append([]any{"method", methodName, "event", "enter"}, args...)...)
}

// ExitMethod records a call that finished cleanly. Debug only.
func ExitMethod(methodName string, args ...any) {
	Get().Debug("call finished", append([]any{"method", methodName, "event", "exit"}, args...)...)
}

// ExitMethodWithError records a failed call at error level.
func ExitMethodWithError(methodName string, err error, args ...any) {
	Get().Error("call failed", append([]any{"method", methodName, "event", "exit", "error", err}, args...)...)
}

// StoreCall records a read or write against a rule or catalog store.
func StoreCall(store, operation, target string, args ...any) {
	Get().Debug("store call", append([]any{"store", store, "operation", operation, "target", target}, args...)...)
}

// StoreResult records how a store call ended. Failures log at error level.
func StoreResult(store, operation, target string, rows int64, err error, args ...any) {
	attrs := append([]any{"store", store, "operation", operation, "target", target, "rows", rows}, args...)
	if err != nil {
		Get().Error("store call failed", append(attrs, "error", err)...)
		return
	}
	Get().Debug("store call done", attrs...)
}
