// Package server holds process lifecycle helpers shared by the binaries.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

// ShutdownTimeout bounds how long in-flight requests get after a signal.
const ShutdownTimeout = 10 * time.Second

// RunWithRecovery runs fn in a loop, recovering from panics with exponential
// backoff (1s doubling up to maxBackoff). It stops when ctx is cancelled.
func RunWithRecovery(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			logger.Info("worker stopped", "name", name)
			return
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("worker panicked",
						"name", name,
						"panic", r,
						"stack", string(debug.Stack()),
						"attempt", attempt,
					)
				}
			}()
			fn(ctx)
		}()

		if ctx.Err() != nil {
			return
		}

		attempt++
		wait := backoff(attempt)
		logger.Warn("worker restarting", "name", name, "attempt", attempt, "backoff", wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

const maxBackoff = 5 * time.Minute

func backoff(attempt int) time.Duration {
	d := float64(time.Second) * math.Pow(2, float64(attempt-1))
	return time.Duration(math.Min(d, float64(maxBackoff)))
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger creates a structured JSON logger on stdout.
func SetupLogger(level string) *slog.Logger {
	return NewLogger(os.Stdout, level)
}

// NewLogger creates a structured JSON logger writing to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
// listen is srv.ListenAndServe or an equivalent TLS variant.
func Serve(ctx context.Context, srv *http.Server, listen func() error, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return <-errCh
}
