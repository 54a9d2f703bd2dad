// Package router binds telebot endpoints to the dispatch router.
package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/replybot/core/dispatch"
	"github.com/m3rciful/replybot/core/logger"
	tg "github.com/m3rciful/replybot/core/telegram"
	tghelpers "github.com/m3rciful/replybot/core/telegram/helpers"
	"github.com/m3rciful/replybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Handler converts the update behind c and routes it through r.
// It always returns nil so routing failures never reach the poller.
func Handler(r *dispatch.Router) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd, ok := tg.UpdateFromContext(c)
		if !ok {
			return nil
		}
		r.Handle(tghelpers.BuildContext(c), upd)
		return nil
	}
}

// UpdateRoutes returns text and media routes feeding r. Commands reach
// OnText because no per-command endpoint is registered with telebot.
func UpdateRoutes(r *dispatch.Router) []tg.Route {
	if r == nil {
		return nil
	}
	h := middleware.RecoverMiddleware(middleware.LoggerMiddleware(Handler(r)))

	reg := r.Registry()
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "tg.wire",
		slog.String("status", "ok"),
		slog.Int("entries", reg.Len()),
		slog.Int("commands", len(reg.Commands())),
	)

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: h},
		{Endpoint: tele.OnMedia, Handler: h},
	}
}
