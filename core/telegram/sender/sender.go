// Package sender delivers router replies through the Telegram Bot API.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/m3rciful/replybot/core/dispatch"
	"github.com/m3rciful/replybot/core/logger"
	"github.com/m3rciful/replybot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// ErrBadRecipient is returned when the reply channel is not a Telegram recipient.
var ErrBadRecipient = errors.New("telegram sender: reply channel is not a recipient")

// API is the subset of *tele.Bot used for delivery.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Options controls retry behaviour. Zero MaxRetries means a single attempt.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single reply.
	MaxDuration time.Duration
}

// Sender sends text replies and retries transient network failures.
type Sender struct {
	api  API
	opts Options
	errs atomic.Uint64
}

var _ dispatch.Transport = (*Sender)(nil)

// New returns a Sender with defaults applied to zeroed options.
func New(api API, opts Options) *Sender {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	return &Sender{api: api, opts: opts}
}

// Send delivers text to the chat behind to.
func (s *Sender) Send(ctx context.Context, to dispatch.ReplyChannel, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rcpt, ok := to.(tele.Recipient)
	if !ok || rcpt == nil {
		s.errs.Add(1)
		return fmt.Errorf("%w: %T", ErrBadRecipient, to)
	}

	start := time.Now()
	attempts := 0
	op := func() error {
		attempts++
		if _, err := s.api.Send(rcpt, text); err != nil {
			if !netutil.ShouldRetry(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	notify := func(err error, delay time.Duration) {
		logger.LogEvent(ctx, logger.Sender, slog.LevelWarn, "send.retry",
			slog.String("status", "retry"),
			slog.Int("attempt", attempts),
			slog.Int64("backoff_ms", logger.RoundMS(delay).Milliseconds()),
			slog.String("error_kind", classifyError(err)),
		)
	}

	err := backoff.RetryNotify(op, s.policy(ctx), notify)
	elapsed := logger.Took(start).Milliseconds()
	if err != nil {
		s.errs.Add(1)
		logger.LogEvent(ctx, logger.Sender, slog.LevelError, "send.fail",
			slog.String("status", "fail"),
			slog.String("err", logger.RedactToken(err.Error())),
			slog.String("error_kind", classifyError(err)),
			slog.Int("attempts", attempts),
			slog.Int64("elapsed_ms", elapsed),
		)
		return err
	}
	logger.LogEvent(ctx, logger.Sender, slog.LevelDebug, "send.success",
		slog.String("status", "ok"),
		slog.Int("attempts", attempts),
		slog.Int64("elapsed_ms", elapsed),
	)
	return nil
}

// ErrorCount returns the number of replies that were not delivered.
func (s *Sender) ErrorCount() uint64 {
	return s.errs.Load()
}

func (s *Sender) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.opts.RetryBackoff
	exp.MaxElapsedTime = s.opts.MaxDuration
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.opts.MaxRetries)), ctx)
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "timeout"
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	status := httpStatusFromError(err)
	switch {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

func httpStatusFromError(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}

	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	// telebot formats unknown API errors as "telegram: <description> (<code>)"
	msg := err.Error()
	lastOpen := strings.LastIndex(msg, "(")
	lastClose := strings.LastIndex(msg, ")")
	if lastOpen >= 0 && lastClose > lastOpen+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[lastOpen+1 : lastClose])); convErr == nil {
			return code
		}
	}
	return 0
}
