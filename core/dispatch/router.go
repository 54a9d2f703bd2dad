package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/m3rciful/replybot/core/logger"
)

// Outcome summarises what Handle did with an update.
type Outcome string

const (
	OutcomeSent           Outcome = "sent"
	OutcomeNoMatch        Outcome = "no_match"
	OutcomeEmptyReply     Outcome = "empty_reply"
	OutcomeHandlerFailed  Outcome = "handler_failed"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
)

// Options tunes the router.
type Options struct {
	// ActionTimeout bounds a single action call; 0 disables the limit.
	ActionTimeout time.Duration
	// Sink receives handler and delivery failures. Defaults to a LogSink.
	Sink Sink
}

// Router sends the reply of the first matching registry entry through the transport.
type Router struct {
	reg       *Registry
	transport Transport
	opts      Options
}

// NewRouter seals reg and returns a router bound to transport.
func NewRouter(reg *Registry, transport Transport, opts Options) (*Router, error) {
	if reg == nil {
		return nil, errors.New("dispatch: nil registry")
	}
	if transport == nil {
		return nil, errors.New("dispatch: nil transport")
	}
	if opts.ActionTimeout < 0 {
		opts.ActionTimeout = 0
	}
	if opts.Sink == nil {
		opts.Sink = NewLogSink()
	}
	reg.Seal()
	return &Router{reg: reg, transport: transport, opts: opts}, nil
}

// Registry returns the sealed registry the router reads from.
func (r *Router) Registry() *Registry { return r.reg }

// Handle routes one update. Failures go to the sink and never reach the caller.
func (r *Router) Handle(ctx context.Context, upd Update) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	entry, ok := r.reg.FindMatch(upd)
	if !ok {
		r.logSummary(ctx, upd, "", OutcomeNoMatch, start, nil)
		return OutcomeNoMatch
	}
	name := handlerName(entry)

	reply, err := r.invoke(ctx, entry, upd)
	if err != nil {
		herr := &HandlerError{Update: upd, Matcher: entry.Matcher.String(), Err: err}
		r.opts.Sink.Report(ctx, herr)
		r.logSummary(ctx, upd, name, OutcomeHandlerFailed, start, herr)
		return OutcomeHandlerFailed
	}
	if reply.Empty() {
		r.logSummary(ctx, upd, name, OutcomeEmptyReply, start, nil)
		return OutcomeEmptyReply
	}

	if err := r.deliver(ctx, upd, reply); err != nil {
		derr := &DeliveryError{Update: upd, Matcher: entry.Matcher.String(), Err: err}
		r.opts.Sink.Report(ctx, derr)
		r.logSummary(ctx, upd, name, OutcomeDeliveryFailed, start, derr)
		return OutcomeDeliveryFailed
	}
	r.logSummary(ctx, upd, name, OutcomeSent, start, nil)
	return OutcomeSent
}

func (r *Router) invoke(ctx context.Context, entry HandlerEntry, upd Update) (Reply, error) {
	if r.opts.ActionTimeout <= 0 {
		return callAction(ctx, entry.Action, upd)
	}

	actx, cancel := context.WithTimeout(ctx, r.opts.ActionTimeout)
	defer cancel()

	type result struct {
		reply Reply
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := callAction(actx, entry.Action, upd)
		done <- result{reply: reply, err: err}
	}()

	select {
	case res := <-done:
		return res.reply, res.err
	case <-actx.Done():
		return Reply{}, fmt.Errorf("action timed out after %s: %w", r.opts.ActionTimeout, actx.Err())
	}
}

func callAction(ctx context.Context, action Action, upd Update) (reply Reply, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.LogEvent(ctx, logger.Dispatch, slog.LevelError, "handler.panic",
				slog.Any("err", rec),
				slog.String("stack", string(debug.Stack())),
			)
			reply, err = Reply{}, fmt.Errorf("%w: %v", ErrActionPanic, rec)
		}
	}()
	return action(ctx, upd)
}

func (r *Router) deliver(ctx context.Context, upd Update, reply Reply) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.LogEvent(ctx, logger.Dispatch, slog.LevelError, "transport.panic",
				slog.Any("err", rec),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrTransportPanic, rec)
		}
	}()
	return r.transport.Send(ctx, upd.ReplyTo, reply.Text)
}

func (r *Router) logSummary(ctx context.Context, upd Update, name string, outcome Outcome, start time.Time, err error) {
	status := "ok"
	switch outcome {
	case OutcomeNoMatch, OutcomeEmptyReply:
		status = "skip"
	case OutcomeHandlerFailed, OutcomeDeliveryFailed:
		status = "fail"
	}
	if name == "" {
		name = "unmatched." + string(upd.Kind)
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.String("outcome", string(outcome)),
		slog.String("update_kind", string(upd.Kind)),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if upd.ID != 0 {
		attrs = append(attrs, slog.Int("update_id", upd.ID))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(logger.RedactToken(err.Error()), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", name),
		)
	}
	level := slog.LevelInfo
	if outcome == OutcomeNoMatch {
		level = slog.LevelDebug
	}
	logger.LogEvent(ctx, logger.Dispatch, level, "handler.handled", attrs...)
}

func handlerName(e HandlerEntry) string {
	m := strings.TrimSpace(e.Matcher.String())
	if e.Matcher.IsAny() {
		m = "any"
	}
	if m == "" {
		m = "empty"
	}
	m = strings.ToLower(strings.ReplaceAll(m, " ", "_"))
	return string(e.Kind) + "." + m
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
