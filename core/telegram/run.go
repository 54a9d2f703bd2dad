package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/replybot/core/config"
	"github.com/m3rciful/replybot/core/dispatch"
	"github.com/m3rciful/replybot/core/logger"
	"github.com/m3rciful/replybot/core/telegram/middleware"
	"github.com/m3rciful/replybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RouteBuilder produces the bot routes feeding a dispatch router.
type RouteBuilder func(r *dispatch.Router) []Route

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *dispatch.Registry
	// Sink receives routing failures; nil means a dispatch.LogSink.
	Sink dispatch.Sink

	Middlewares []Middleware
	Routes      RouteBuilder

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot    *tele.Bot
	Router *dispatch.Router
	Sender *sender.Sender
}

// SenderOptions maps router settings onto reply delivery options.
func SenderOptions(cfg *coreconfig.Config) sender.Options {
	if cfg == nil {
		return sender.Options{}
	}
	return sender.Options{
		MaxRetries:   cfg.Router.DeliveryRetries,
		RetryBackoff: time.Duration(cfg.Router.DeliveryBackoffMS) * time.Millisecond,
	}
}

// RunTelegram composes and runs the bot until ctx is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		return errors.New("telegram: nil registry provided")
	}
	if opts.Routes == nil {
		return errors.New("telegram: nil route builder provided")
	}

	cfg := opts.Config
	pollerOpts := PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}
	poller := BuildPoller(pollerOpts)

	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(pollerOpts.LongPollTimeout()),
		OnError: func(err error, c tele.Context) {
			attrs := []slog.Attr{
				slog.String("status", "fail"),
				slog.String("err", logger.RedactToken(err.Error())),
			}
			if c != nil {
				attrs = append(attrs, slog.Int("update_id", c.Update().ID))
			}
			logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.error", attrs...)
		},
	}

	buildStart := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %s", logger.RedactToken(err.Error()))
	}
	buildTook := time.Since(buildStart)

	snd := sender.New(bot, SenderOptions(cfg))
	router, err := dispatch.NewRouter(opts.Registry, snd, dispatch.Options{
		ActionTimeout: time.Duration(cfg.Router.ActionTimeoutMS) * time.Millisecond,
		Sink:          opts.Sink,
	})
	if err != nil {
		return fmt.Errorf("telegram: router: %w", err)
	}

	rt := Runtime{Bot: bot, Router: router, Sender: snd}

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	default:
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", "polling"),
			slog.Duration("timeout", pollerOpts.LongPollTimeout()),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
		if !opts.DisableWebhookCleanup {
			if err := bot.RemoveWebhook(false); err != nil {
				logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "delete_webhook",
					slog.String("status", "fail"),
					slog.String("err", logger.RedactToken(err.Error())),
				)
			}
		}
	}

	bot.Use(middleware.BaseContextMiddleware(ctx))
	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}
	for _, route := range opts.Routes(router) {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
	}
	if cfg.Telegram.PublishCommands {
		PublishCommands(bot, opts.Registry)
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
