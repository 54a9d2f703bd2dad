package telegram

import (
	"context"
	"log/slog"

	"github.com/m3rciful/replybot/core/dispatch"
	"github.com/m3rciful/replybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// CommandSetter is the subset of *tele.Bot used to publish the command menu.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// MenuCommands converts described command entries into telebot commands.
func MenuCommands(reg *dispatch.Registry) []tele.Command {
	cmds := reg.Commands()
	list := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		list = append(list, tele.Command{Text: c.Name, Description: c.Description})
	}
	return list
}

// PublishCommands sets the Telegram command menu. Failures are logged only.
func PublishCommands(bot CommandSetter, reg *dispatch.Registry) {
	list := MenuCommands(reg)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelError, "register.commands.set_failed",
			slog.String("status", "fail"),
			slog.String("err", logger.RedactToken(err.Error())),
		)
		return
	}
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "register.commands.set",
		slog.String("status", "ok"),
		slog.Int("commands", len(list)),
	)
}
