package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/replybot/core/logger"
)

// Sink receives failures recovered by the router.
type Sink interface {
	Report(ctx context.Context, err error)
}

// SinkFunc adapts a bare function to the Sink interface.
type SinkFunc func(ctx context.Context, err error)

// Report executes the underlying function.
func (f SinkFunc) Report(ctx context.Context, err error) {
	f(ctx, err)
}

// LogSink writes failures to the structured log and counts them.
type LogSink struct {
	failures atomic.Uint64
}

// NewLogSink creates a LogSink with a zero failure count.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Report logs err at error level.
func (s *LogSink) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	s.failures.Add(1)

	event := "dispatch.failed"
	var attrs []slog.Attr
	var (
		herr *HandlerError
		derr *DeliveryError
	)
	switch {
	case errors.As(err, &herr):
		event = "handler.failed"
		attrs = append(attrs,
			slog.String("update_kind", string(herr.Update.Kind)),
			slog.String("matcher", herr.Matcher),
			slog.Bool("timeout", errors.Is(herr.Err, context.DeadlineExceeded)),
		)
	case errors.As(err, &derr):
		event = "reply.failed"
		attrs = append(attrs,
			slog.String("update_kind", string(derr.Update.Kind)),
			slog.String("matcher", derr.Matcher),
		)
	}
	attrs = append(attrs,
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(logger.RedactToken(err.Error()), 256)),
		slog.String("err_code", deriveErrorCode(err)),
	)
	logger.LogEvent(ctx, logger.Dispatch, slog.LevelError, event, attrs...)
}

// Failures returns the number of reported failures.
func (s *LogSink) Failures() uint64 {
	return s.failures.Load()
}
