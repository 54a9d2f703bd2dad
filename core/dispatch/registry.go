package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/replybot/core/logger"
)

// Wildcard is the configuration spelling of a matcher that accepts any payload.
const Wildcard = "*"

// Matcher decides whether an entry applies to an update payload.
type Matcher struct {
	value string
	any   bool
}

// Exact matches payloads equal to value.
func Exact(value string) Matcher { return Matcher{value: value} }

// Any matches every payload of the entry kind.
func Any() Matcher { return Matcher{any: true} }

// ParseMatcher turns "*" into Any and everything else into Exact.
func ParseMatcher(raw string) Matcher {
	if strings.TrimSpace(raw) == Wildcard {
		return Any()
	}
	return Exact(raw)
}

// Match reports whether payload satisfies the matcher.
func (m Matcher) Match(payload string) bool {
	return m.any || m.value == payload
}

// IsAny reports whether the matcher is a wildcard.
func (m Matcher) IsAny() bool { return m.any }

func (m Matcher) String() string {
	if m.any {
		return Wildcard
	}
	return m.value
}

// HandlerEntry is one registered rule.
type HandlerEntry struct {
	Kind        Kind
	Matcher     Matcher
	Action      Action
	Description string
}

// EntryOption customises a registered entry.
type EntryOption func(*HandlerEntry)

// WithDescription attaches a human readable description, used for the command menu.
func WithDescription(desc string) EntryOption {
	return func(e *HandlerEntry) { e.Description = strings.TrimSpace(desc) }
}

// Registry holds handler entries in registration order.
// Registration happens at startup only; once sealed the registry is read
// without locks from any number of goroutines.
type Registry struct {
	entries []HandlerEntry
	sealed  atomic.Bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an entry. Earlier entries win when several match.
func (r *Registry) Register(kind Kind, matcher Matcher, action Action, opts ...EntryOption) error {
	if action == nil {
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelWarn, "register.handler.skip",
			slog.String("kind", string(kind)),
			slog.String("matcher", matcher.String()),
			slog.String("reason", "nil_action"),
		)
		return &ConfigurationError{Kind: kind, Matcher: matcher.String(), Reason: "action is required"}
	}
	if r.sealed.Load() {
		return &ConfigurationError{Kind: kind, Matcher: matcher.String(), Reason: "registry is sealed"}
	}
	entry := HandlerEntry{Kind: kind, Matcher: matcher, Action: action}
	for _, opt := range opts {
		if opt != nil {
			opt(&entry)
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

// Seal freezes the registry. Later Register calls fail.
func (r *Registry) Seal() {
	r.sealed.Store(true)
}

// Sealed reports whether the registry accepts no more entries.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// FindMatch returns the first entry whose kind and matcher accept the update.
func (r *Registry) FindMatch(upd Update) (HandlerEntry, bool) {
	if r == nil {
		return HandlerEntry{}, false
	}
	for _, e := range r.entries {
		if e.Kind == upd.Kind && e.Matcher.Match(upd.Payload) {
			return e, true
		}
	}
	return HandlerEntry{}, false
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns a copy of the registered entries in order.
func (r *Registry) Entries() []HandlerEntry {
	if r == nil {
		return nil
	}
	return append([]HandlerEntry(nil), r.entries...)
}

// Command is an exact command entry exposed in the bot command menu.
type Command struct {
	Name        string
	Description string
}

// Commands lists exact-match command entries that carry a description.
// Duplicates keep the first registration, matching FindMatch priority.
func (r *Registry) Commands() []Command {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(r.entries))
	var list []Command
	for _, e := range r.entries {
		if e.Kind != KindCommand || e.Matcher.IsAny() || e.Description == "" {
			continue
		}
		name := e.Matcher.String()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		list = append(list, Command{Name: name, Description: e.Description})
	}
	return list
}
