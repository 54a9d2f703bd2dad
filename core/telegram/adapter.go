package telegram

import (
	"regexp"
	"strings"

	"github.com/m3rciful/replybot/core/dispatch"

	tele "gopkg.in/telebot.v4"
)

// Syntax: "/<command>@<bot> <args>"
var commandRx = regexp.MustCompile(`(?s)^/([\w]+)(@\w+)?(?:\s+(.*))?$`)

// ParseCommand splits a slash command into name and arguments.
func ParseCommand(text string) (name, args string, ok bool) {
	m := commandRx.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[3]), true
}

// MediaType names the attachment carried by msg, or "" for none.
// The order follows telebot's own media dispatch.
func MediaType(msg *tele.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.Photo != nil:
		return "photo"
	case msg.Voice != nil:
		return "voice"
	case msg.Audio != nil:
		return "audio"
	case msg.Animation != nil:
		return "animation"
	case msg.Document != nil:
		return "document"
	case msg.Sticker != nil:
		return "sticker"
	case msg.Video != nil:
		return "video"
	case msg.VideoNote != nil:
		return "video_note"
	}
	return ""
}

// UpdateFromContext converts a telebot message update into a dispatch.Update.
// Updates without a message or chat are not routable.
func UpdateFromContext(c tele.Context) (dispatch.Update, bool) {
	if c == nil {
		return dispatch.Update{}, false
	}
	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return dispatch.Update{}, false
	}

	upd := dispatch.Update{
		ID:      c.Update().ID,
		ReplyTo: msg.Chat,
	}
	if media := MediaType(msg); media != "" {
		upd.Kind = dispatch.KindMedia
		upd.Payload = media
		return upd, true
	}
	if name, args, ok := ParseCommand(msg.Text); ok {
		upd.Kind = dispatch.KindCommand
		upd.Payload = name
		upd.Args = args
		return upd, true
	}
	upd.Kind = dispatch.KindText
	upd.Payload = msg.Text
	return upd, true
}
