package telegram

import (
	"errors"
	"testing"

	"github.com/m3rciful/replybot/core/dispatch"

	tele "gopkg.in/telebot.v4"
)

type fakeCommandSetter struct {
	got   []tele.Command
	calls int
	err   error
}

func (f *fakeCommandSetter) SetCommands(opts ...interface{}) error {
	f.calls++
	if len(opts) > 0 {
		f.got, _ = opts[0].([]tele.Command)
	}
	return f.err
}

func TestPublishCommands(t *testing.T) {
	reg := dispatch.NewRegistry()
	reply := dispatch.StaticReply("x")
	_ = reg.Register(dispatch.KindCommand, dispatch.Exact("start"), reply, dispatch.WithDescription("Start the bot"))
	_ = reg.Register(dispatch.KindCommand, dispatch.Exact("secret"), reply)
	_ = reg.Register(dispatch.KindText, dispatch.Exact("ping"), reply, dispatch.WithDescription("not a command"))
	_ = reg.Register(dispatch.KindCommand, dispatch.Exact("help"), reply, dispatch.WithDescription("Show usage"))

	setter := &fakeCommandSetter{}
	PublishCommands(setter, reg)

	if setter.calls != 1 {
		t.Fatalf("SetCommands calls = %d", setter.calls)
	}
	want := []tele.Command{{Text: "start", Description: "Start the bot"}, {Text: "help", Description: "Show usage"}}
	if len(setter.got) != len(want) {
		t.Fatalf("got %v, want %v", setter.got, want)
	}
	for i := range want {
		if setter.got[i] != want[i] {
			t.Fatalf("command %d = %v, want %v", i, setter.got[i], want[i])
		}
	}
}

func TestPublishCommandsSkipsEmptyMenu(t *testing.T) {
	setter := &fakeCommandSetter{err: errors.New("unreachable")}
	PublishCommands(setter, dispatch.NewRegistry())
	if setter.calls != 0 {
		t.Fatal("empty menu must not be published")
	}
}
