package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func noKeyring(service, user string) (string, error) {
	return "", errors.New("keyring disabled in tests")
}

func TestLoadDefaultsFromEnvOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := LoadWith("", noKeyring)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
	if len(cfg.Handlers) != 4 {
		t.Fatalf("expected default handler table, got %d rows", len(cfg.Handlers))
	}
	if cfg.Handlers[3].Match != "ping" || cfg.Handlers[3].Reply != "pong" {
		t.Fatalf("unexpected ping row: %+v", cfg.Handlers[3])
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
telegram:
  run_mode: polling
  longpoll_timeout_seconds: 20
router:
  action_timeout_ms: 1500
handlers:
  - kind: Command
    match: /about
    reply: "about text"
    description: About
  - kind: text
    match: "*"
    reply: fallback
`)
	t.Setenv("BOT_TOKEN", "1:x")
	t.Setenv("ROUTER_ACTION_TIMEOUT_MS", "2500")

	cfg, err := LoadWith(path, noKeyring)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("polling alias not normalized: %q", cfg.Telegram.RunMode)
	}
	if cfg.Telegram.LongPollTimeoutSeconds != 20 {
		t.Fatalf("timeout = %d", cfg.Telegram.LongPollTimeoutSeconds)
	}
	if cfg.Router.ActionTimeoutMS != 2500 {
		t.Fatalf("env override ignored: %d", cfg.Router.ActionTimeoutMS)
	}
	if len(cfg.Handlers) != 2 {
		t.Fatalf("handlers = %d, want 2", len(cfg.Handlers))
	}
	if cfg.Handlers[0].Kind != "command" || cfg.Handlers[0].Match != "about" {
		t.Fatalf("command row not normalized: %+v", cfg.Handlers[0])
	}
}

func TestLoadTokenFromKeyring(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	path := writeConfig(t, `
telegram:
  token_keyring:
    service: replybot
    user: main
`)
	var gotService, gotUser string
	cfg, err := LoadWith(path, func(service, user string) (string, error) {
		gotService, gotUser = service, user
		return " 42:secret \n", nil
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotService != "replybot" || gotUser != "main" {
		t.Fatalf("lookup called with %q/%q", gotService, gotUser)
	}
	if cfg.Telegram.Token != "42:secret" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
}

func TestLoadTokenIgnoredInYAML(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	path := writeConfig(t, `
telegram:
  token: "999:hardcoded"
`)
	_, err := LoadWith(path, noKeyring)
	if err == nil || !strings.Contains(err.Error(), "token is required") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestNormalizeValidation(t *testing.T) {
	cases := map[string]Config{
		"webhook without url": {
			Telegram: TelegramConfig{Token: "t", RunMode: "webhook"},
		},
		"unknown run mode": {
			Telegram: TelegramConfig{Token: "t", RunMode: "smoke"},
		},
		"bad exclusion": {
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"photo"}},
		},
		"negative timeout": {
			Telegram: TelegramConfig{Token: "t"},
			Router:   RouterConfig{ActionTimeoutMS: -1},
		},
		"empty match": {
			Telegram: TelegramConfig{Token: "t"},
			Handlers: []HandlerConfig{{Kind: "text", Reply: "x"}},
		},
		"blank match": {
			Telegram: TelegramConfig{Token: "t"},
			Handlers: []HandlerConfig{{Kind: "text", Match: "   ", Reply: "x"}},
		},
		"unknown media type": {
			Telegram: TelegramConfig{Token: "t"},
			Handlers: []HandlerConfig{{Kind: "media", Match: "gif", Reply: "x"}},
		},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNormalizeTrimsMatches(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{Token: "t"},
		Handlers: []HandlerConfig{
			{Kind: "media", Match: " Photo ", Reply: "a"},
			{Kind: "text", Match: " ping\t", Reply: "b"},
			{Kind: "command", Match: " /start", Reply: "c"},
			{Kind: "media", Match: "*", Reply: "d"},
		},
	}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []string{"photo", "ping", "start", "*"}
	for i, w := range want {
		if cfg.Handlers[i].Match != w {
			t.Errorf("handlers[%d].match = %q, want %q", i, cfg.Handlers[i].Match, w)
		}
	}
}
