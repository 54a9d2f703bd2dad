package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// KeyringConfig names an OS keyring entry holding the bot token.
type KeyringConfig struct {
	Service string `yaml:"service" envconfig:"BOT_TOKEN_KEYRING_SERVICE"`
	User    string `yaml:"user" envconfig:"BOT_TOKEN_KEYRING_USER"`
}

// TelegramConfig holds Telegram bot transport settings.
// The token is never read from the YAML file; it comes from BOT_TOKEN or the keyring.
type TelegramConfig struct {
	Token        string        `yaml:"-" envconfig:"BOT_TOKEN"`
	TokenKeyring KeyringConfig `yaml:"token_keyring"`
	RunMode      string        `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// PublishCommands sets the bot command menu from described command handlers.
	PublishCommands bool `yaml:"publish_commands" envconfig:"TELEGRAM_PUBLISH_COMMANDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RouterConfig tunes update routing and reply delivery.
type RouterConfig struct {
	// ActionTimeoutMS bounds a single handler call; 0 disables the limit.
	ActionTimeoutMS int `yaml:"action_timeout_ms" envconfig:"ROUTER_ACTION_TIMEOUT_MS"`
	// DeliveryRetries is the number of extra send attempts on transient network errors.
	DeliveryRetries   int `yaml:"delivery_retries" envconfig:"ROUTER_DELIVERY_RETRIES"`
	DeliveryBackoffMS int `yaml:"delivery_backoff_ms" envconfig:"ROUTER_DELIVERY_BACKOFF_MS"`
}

// HandlerConfig is one row of the reply table.
type HandlerConfig struct {
	Kind        string `yaml:"kind"`
	Match       string `yaml:"match"`
	Reply       string `yaml:"reply"`
	Description string `yaml:"description"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Router    RouterConfig    `yaml:"router"`
	Handlers  []HandlerConfig `yaml:"handlers"`
}

// TokenLookup resolves a token from a keyring entry.
type TokenLookup func(service, user string) (string, error)

// MediaTypes lists the payloads a media row can match.
var MediaTypes = []string{"photo", "voice", "audio", "animation", "document", "sticker", "video", "video_note"}

// DefaultHandlers reproduces the stock reply table.
func DefaultHandlers() []HandlerConfig {
	return []HandlerConfig{
		{Kind: "command", Match: "start", Reply: "Привет! Я NestJS Telegraf бот.", Description: "Start the bot"},
		{Kind: "command", Match: "help", Reply: "Отправь мне фото или напиши команду.", Description: "Show usage"},
		{Kind: "media", Match: "photo", Reply: "Фото получено, обрабатываю..."},
		{Kind: "text", Match: "ping", Reply: "pong"},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// An empty path skips the file. A missing token is resolved through the keyring.
func Load(path string) (*Config, error) {
	return LoadWith(path, keyringToken)
}

// LoadWith is Load with an explicit keyring lookup.
func LoadWith(path string, lookup TokenLookup) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" && cfg.Telegram.TokenKeyring.Service != "" && lookup != nil {
		token, err := lookup(cfg.Telegram.TokenKeyring.Service, cfg.Telegram.TokenKeyring.User)
		if err != nil {
			return nil, fmt.Errorf("failed to read token from keyring %q: %w", cfg.Telegram.TokenKeyring.Service, err)
		}
		cfg.Telegram.Token = strings.TrimSpace(token)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram token is required (BOT_TOKEN or telegram.token_keyring)")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if cfg.Router.ActionTimeoutMS < 0 {
		return fmt.Errorf("router.action_timeout_ms must be >= 0")
	}
	if cfg.Router.DeliveryRetries < 0 {
		return fmt.Errorf("router.delivery_retries must be >= 0")
	}
	if cfg.Router.DeliveryBackoffMS < 0 {
		return fmt.Errorf("router.delivery_backoff_ms must be >= 0")
	}

	if len(cfg.Handlers) == 0 {
		cfg.Handlers = DefaultHandlers()
	}
	for i, h := range cfg.Handlers {
		kind := strings.ToLower(strings.TrimSpace(h.Kind))
		match := strings.TrimSpace(h.Match)
		switch kind {
		case "command":
			match = strings.TrimPrefix(match, "/")
		case "media":
			match = strings.ToLower(match)
			if match != "" && match != "*" && !slices.Contains(MediaTypes, match) {
				return fmt.Errorf("handlers[%d].match: unknown media type %q (expected one of %s or *)", i, match, strings.Join(MediaTypes, ", "))
			}
		}
		if match == "" {
			return fmt.Errorf("handlers[%d].match is required", i)
		}
		cfg.Handlers[i].Kind = kind
		cfg.Handlers[i].Match = match
	}
	return nil
}
