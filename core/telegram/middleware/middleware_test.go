package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]interface{}
}

func newFakeContext(updateID int, userID int64, text string) *fakeContext {
	msg := &tele.Message{
		Text:   text,
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Sender: &tele.User{ID: userID, Username: "tester"},
	}
	return &fakeContext{
		update: tele.Update{ID: updateID, Message: msg},
		store:  make(map[string]interface{}),
	}
}

func (f *fakeContext) Update() tele.Update     { return f.update }
func (f *fakeContext) Message() *tele.Message { return f.update.Message }
func (f *fakeContext) Sender() *tele.User     { return f.update.Message.Sender }
func (f *fakeContext) Chat() *tele.Chat       { return f.update.Message.Chat }
func (f *fakeContext) Text() string           { return f.update.Message.Text }
func (f *fakeContext) Get(key string) interface{} {
	return f.store[key]
}
func (f *fakeContext) Set(key string, v interface{}) { f.store[key] = v }

func TestRecoverMiddlewareSwallowsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error {
		panic("boom")
	})
	if err := h(newFakeContext(1, 10, "x")); err != nil {
		t.Fatalf("expected nil error after recover, got %v", err)
	}
}

func TestRecoverMiddlewarePassesErrors(t *testing.T) {
	want := errors.New("handler failed")
	h := RecoverMiddleware(func(tele.Context) error { return want })
	if err := h(newFakeContext(1, 10, "x")); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := newFakeContext(77, 5, "ping")
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rid != "77:5:5" {
		t.Fatalf("rid = %q, want 77:5:5", rid)
	}
	if _, ok := c.store["logger_ctx"]; !ok {
		t.Fatal("logging context not stored")
	}
}

func TestBaseContextParentsUpdateContext(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	c := newFakeContext(78, 5, "ping")
	var updCtx context.Context
	h := BaseContextMiddleware(base)(LoggerMiddleware(func(c tele.Context) error {
		updCtx, _ = c.Get("logger_ctx").(context.Context)
		return nil
	}))
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if updCtx == nil {
		t.Fatal("logging context not stored")
	}
	if updCtx.Err() != nil {
		t.Fatal("update context cancelled too early")
	}
	cancel()
	if !errors.Is(updCtx.Err(), context.Canceled) {
		t.Fatalf("update ctx err = %v, want cancellation from the run context", updCtx.Err())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Now:       func() time.Time { return clock },
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newFakeContext(1, 10, "a"))
	_ = h(newFakeContext(2, 10, "b"))
	_ = h(newFakeContext(3, 11, "c"))
	clock = clock.Add(2 * time.Second)
	_ = h(newFakeContext(4, 10, "d"))

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if limited != 1 {
		t.Fatalf("limited = %d, want 1", limited)
	}
}

func TestRateLimitMiddlewareExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"message": {}},
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })
	for i := 0; i < 3; i++ {
		_ = h(newFakeContext(i, 10, "spam"))
	}
	if calls != 3 {
		t.Fatalf("excluded updates were limited: calls = %d", calls)
	}
}
