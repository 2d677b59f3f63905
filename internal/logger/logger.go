package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// New builds a logger writing to w. format "json" selects the JSON handler,
// anything else the text handler. Unknown levels fall back to info.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Initialize installs a stdout logger as the package and slog default.
func Initialize(level, format string) {
	Use(New(os.Stdout, level, format))
}

// Use installs l as the package and slog default.
func Use(l *slog.Logger) {
	current.Store(l)
	slog.SetDefault(l)
}

// Get returns the installed logger, installing info/text on first use.
func Get() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	l := New(os.Stdout, "info", "text")
	if current.CompareAndSwap(nil, l) {
		slog.SetDefault(l)
		return l
	}
	return current.Load()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// WithUser scopes log lines to a renter.
func WithUser(userID string) *slog.Logger {
	return Get().With("user_id", userID)
}

// WithBooking scopes log lines to a booking.
func WithBooking(bookingID string) *slog.Logger {
	return Get().With("booking_id", bookingID)
}

// WithPair scopes log lines to a currency pair, e.g. USD/ARS.
func WithPair(from, to string) *slog.Logger {
	return Get().With("pair", strings.ToUpper(from)+"/"+strings.ToUpper(to))
}

// trace emits one lifecycle line. A non-nil err raises it to error level.
func trace(msg string, head []any, err error, args []any) {
	attrs := make([]any, 0, len(head)+len(args)+2)
	attrs = append(attrs, head...)
	level := slog.LevelDebug
	if err != nil {
		attrs = append(attrs, "error", err)
		level = slog.LevelError
		msg += " failed"
	}
	attrs = append(attrs, args...)
	Get().Log(context.Background(), level, msg, attrs...)
}

// EnterMethod, ExitMethod and ExitMethodWithError trace service calls.
func EnterMethod(method string, args ...any) {
	trace("→ enter", []any{"method", method}, nil, args)
}

func ExitMethod(method string, args ...any) {
	trace("← exit", []any{"method", method}, nil, args)
}

func ExitMethodWithError(method string, err error, args ...any) {
	trace("← exit", []any{"method", method}, err, args)
}

// DatabaseCall and DatabaseResult bracket a store operation.
func DatabaseCall(operation, table string, args ...any) {
	trace("→ store", []any{"operation", operation, "table", table}, nil, args)
}

func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	trace("← store", []any{"operation", operation, "rows_affected", rowsAffected}, err, args)
}

// ExternalServiceCall and ExternalServiceResult bracket a call to a rate
// source, cache or mail provider.
func ExternalServiceCall(service, operation string, args ...any) {
	trace("→ external", []any{"service", service, "operation", operation}, nil, args)
}

func ExternalServiceResult(service, operation string, err error, args ...any) {
	trace("← external", []any{"service", service, "operation", operation}, err, args)
}
