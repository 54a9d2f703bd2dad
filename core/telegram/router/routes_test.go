package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/m3rciful/replybot/core/dispatch"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]interface{}
}

func newMessage(id int, msg *tele.Message) *fakeContext {
	msg.Chat = &tele.Chat{ID: 99}
	msg.Sender = &tele.User{ID: 99}
	return &fakeContext{update: tele.Update{ID: id, Message: msg}, store: map[string]interface{}{}}
}

func (f *fakeContext) Update() tele.Update              { return f.update }
func (f *fakeContext) Message() *tele.Message          { return f.update.Message }
func (f *fakeContext) Sender() *tele.User              { return f.update.Message.Sender }
func (f *fakeContext) Chat() *tele.Chat                { return f.update.Message.Chat }
func (f *fakeContext) Text() string                    { return f.update.Message.Text }
func (f *fakeContext) Get(key string) interface{}      { return f.store[key] }
func (f *fakeContext) Set(key string, val interface{}) { f.store[key] = val }

type sent struct {
	to   dispatch.ReplyChannel
	text string
}

type spyTransport struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *spyTransport) Send(_ context.Context, to dispatch.ReplyChannel, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{to: to, text: text})
	return nil
}

func newRouter(t *testing.T, tr dispatch.Transport) *dispatch.Router {
	t.Helper()
	reg := dispatch.NewRegistry()
	if err := reg.Register(dispatch.KindCommand, dispatch.Exact("start"), dispatch.StaticReply("hello")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(dispatch.KindMedia, dispatch.Exact("photo"), dispatch.StaticReply("got photo")); err != nil {
		t.Fatal(err)
	}
	r, err := dispatch.NewRouter(reg, tr, dispatch.Options{Sink: dispatch.SinkFunc(func(context.Context, error) {})})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestHandlerRoutesCommandsAndMedia(t *testing.T) {
	tr := &spyTransport{}
	h := Handler(newRouter(t, tr))

	if err := h(newMessage(1, &tele.Message{Text: "/start"})); err != nil {
		t.Fatalf("command: %v", err)
	}
	if err := h(newMessage(2, &tele.Message{Photo: &tele.Photo{}})); err != nil {
		t.Fatalf("photo: %v", err)
	}
	if err := h(newMessage(3, &tele.Message{Text: "unrelated"})); err != nil {
		t.Fatalf("text: %v", err)
	}

	if len(tr.sent) != 2 {
		t.Fatalf("sent %d replies, want 2", len(tr.sent))
	}
	if tr.sent[0].text != "hello" || tr.sent[1].text != "got photo" {
		t.Fatalf("unexpected replies: %+v", tr.sent)
	}
	chat, ok := tr.sent[0].to.(*tele.Chat)
	if !ok || chat.ID != 99 {
		t.Fatalf("reply channel = %#v", tr.sent[0].to)
	}
}

func TestHandlerNeverReturnsDeliveryErrors(t *testing.T) {
	tr := &spyTransport{err: errors.New("network down")}
	h := Handler(newRouter(t, tr))
	if err := h(newMessage(1, &tele.Message{Text: "/start"})); err != nil {
		t.Fatalf("delivery failure leaked to poller: %v", err)
	}
}

func TestUpdateRoutesEndpoints(t *testing.T) {
	routes := UpdateRoutes(newRouter(t, &spyTransport{}))
	if len(routes) != 2 {
		t.Fatalf("routes = %d, want 2", len(routes))
	}
	if routes[0].Endpoint != tele.OnText || routes[1].Endpoint != tele.OnMedia {
		t.Fatalf("unexpected endpoints: %v, %v", routes[0].Endpoint, routes[1].Endpoint)
	}
	for _, r := range routes {
		if r.Handler == nil {
			t.Fatal("nil handler")
		}
	}
}
