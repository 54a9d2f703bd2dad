package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/replybot/core/bootstrap"
	coreconfig "github.com/m3rciful/replybot/core/config"
	"github.com/m3rciful/replybot/core/dispatch"
	"github.com/m3rciful/replybot/core/logger"
	coretelegram "github.com/m3rciful/replybot/core/telegram"
	"github.com/m3rciful/replybot/core/telegram/router"
)

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(cfg *coreconfig.Config) (coretelegram.RunOptions, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the reply table, and starts the bot runtime.
// The config file is optional; without one the bot runs on env and defaults.
func Run(opts Options) error {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}

	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}
	if cfgPath != "" {
		log.Printf("loading config: %s", cfgPath)
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("cmd: loaded config is empty")
	}

	boot := opts.Bootstrap
	if boot == nil {
		boot = DefaultBootstrap
	}
	runOpts, err := boot(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	startedAt := time.Now()
	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.LogEvent(ctx, logger.Component("app"), slog.LevelInfo, "ready",
			slog.String("status", "ok"),
			slog.Int("entries", runOpts.Registry.Len()),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		attrs := []slog.Attr{slog.Uint64("failures", sinkFailures(runOpts.Sink))}
		if rt.Sender != nil {
			attrs = append(attrs, slog.Uint64("send_errors", rt.Sender.ErrorCount()))
		}
		logger.LogEvent(ctx, logger.Component("app"), slog.LevelInfo, "shutdown", attrs...)
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}

	return run(ctx, runOpts)
}

// DefaultBootstrap builds the registry from cfg.Handlers and wires the
// standard middleware chain and update routes.
func DefaultBootstrap(cfg *coreconfig.Config) (coretelegram.RunOptions, error) {
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return coretelegram.RunOptions{}, err
	}
	return coretelegram.RunOptions{
		Config:      cfg,
		Registry:    res.Registry,
		Sink:        dispatch.NewLogSink(),
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		Routes:      router.UpdateRoutes,
	}, nil
}

func sinkFailures(s dispatch.Sink) uint64 {
	if ls, ok := s.(*dispatch.LogSink); ok {
		return ls.Failures()
	}
	return 0
}
