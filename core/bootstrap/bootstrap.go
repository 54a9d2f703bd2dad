package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	coreconfig "github.com/m3rciful/replybot/core/config"
	"github.com/m3rciful/replybot/core/dispatch"
	"github.com/m3rciful/replybot/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	// Modules register code-defined handlers after the configured reply table.
	Modules []Module
}

// Result exposes what the bootstrap pipeline built.
type Result struct {
	Registry *dispatch.Registry
}

// Run initializes the logger and builds the handler registry.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	reg, err := BuildRegistry(opts.Config.Handlers)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	for _, m := range opts.Modules {
		if m == nil {
			continue
		}
		if err := m.Register(reg); err != nil {
			return nil, fmt.Errorf("bootstrap: module registration failed: %w", err)
		}
	}

	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "register.complete",
		slog.String("status", "ok"),
		slog.Int("entries", reg.Len()),
		slog.Int("commands", len(reg.Commands())),
	)
	return &Result{Registry: reg}, nil
}

// BuildRegistry registers one static-reply entry per table row, in order.
func BuildRegistry(rows []coreconfig.HandlerConfig) (*dispatch.Registry, error) {
	reg := dispatch.NewRegistry()
	for i, row := range rows {
		kind, err := dispatch.ParseKind(row.Kind)
		if err != nil {
			return nil, &dispatch.ConfigurationError{Kind: dispatch.Kind(row.Kind), Matcher: row.Match, Reason: fmt.Sprintf("row %d: %v", i, err)}
		}
		var action dispatch.Action
		if row.Reply != "" {
			action = dispatch.StaticReply(row.Reply)
		}
		if err := reg.Register(kind, dispatch.ParseMatcher(row.Match), action, dispatch.WithDescription(row.Description)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
