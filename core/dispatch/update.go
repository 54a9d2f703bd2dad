// Package dispatch matches inbound updates against an ordered handler table
// and delivers the reply of the first matching entry.
package dispatch

import (
	"context"
	"fmt"
	"strings"
)

// Kind classifies an inbound update.
type Kind string

const (
	// KindCommand is a slash command; the payload is the command name without the slash.
	KindCommand Kind = "command"
	// KindText is free text; the payload is the raw message text.
	KindText Kind = "text"
	// KindMedia is an attachment; the payload is the media type, e.g. "photo".
	KindMedia Kind = "media"
)

// ParseKind maps a configuration value to a Kind.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindCommand, KindText, KindMedia:
		return k, nil
	}
	return "", fmt.Errorf("unknown update kind %q; allowed: command, text, media", raw)
}

// ReplyChannel is an opaque transport handle identifying the conversation to answer.
type ReplyChannel any

// Update is a single inbound event. It is never modified after the transport builds it.
type Update struct {
	ID      int
	Kind    Kind
	Payload string
	// Args holds command arguments; informational only, matching ignores it.
	Args    string
	ReplyTo ReplyChannel
}

// Reply is the outbound text produced by an action. An empty Text means no reply.
type Reply struct {
	Text string
}

// Empty reports whether the reply carries nothing to send.
func (r Reply) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Action computes the reply for a matched update.
type Action func(ctx context.Context, upd Update) (Reply, error)

// StaticReply returns an action that always answers with text.
func StaticReply(text string) Action {
	return func(context.Context, Update) (Reply, error) {
		return Reply{Text: text}, nil
	}
}

// Transport delivers replies to the conversation behind a ReplyChannel.
type Transport interface {
	Send(ctx context.Context, to ReplyChannel, text string) error
}

// TransportFunc adapts a bare function to the Transport interface.
type TransportFunc func(ctx context.Context, to ReplyChannel, text string) error

// Send executes the underlying function.
func (f TransportFunc) Send(ctx context.Context, to ReplyChannel, text string) error {
	return f(ctx, to, text)
}
