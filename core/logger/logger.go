package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/m3rciful/replybot/core/buildinfo"
	coreconfig "github.com/m3rciful/replybot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// RunID identifies this process in every startup and shutdown line.
	RunID = uuid.NewString()

	// L is the base logger; component loggers below derive from it.
	L *slog.Logger

	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs handler registration and route wiring.
	TWire *slog.Logger
	// Dispatch logs routing summaries and handler failures.
	Dispatch *slog.Logger
	// Sender logs reply delivery attempts.
	Sender *slog.Logger
)

// settings is the logging setup derived from configuration and environment.
type settings struct {
	format   logFormat
	level    slog.Level
	keyOrder []string
	profile  string
	sampleN  int
	sampleD  int
	trace    bool
	file     string // empty when logging to stdout only
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		format:   formatJSON,
		level:    slog.LevelInfo,
		keyOrder: append([]string(nil), defaultKeyOrder...),
		profile:  "prod",
		sampleN:  1,
		sampleD:  50,
		trace:    envFlag("TRACE") || envFlag("LOG_TRACE"),
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(lc.Level))]; ok {
		s.level = lvl
	}
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.keyOrder = order
	}
	if raw := strings.TrimSpace(lc.DebugSample); raw != "" {
		switch num, den := parseRatioSpec(raw); {
		case num == 0 && den == 0:
			s.sampleN, s.sampleD = 0, 0
		case num > 0 && den > 0:
			s.sampleN, s.sampleD = num, den
		}
	}
	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if k := strings.TrimSpace(p); k != "" {
			order = append(order, k)
		}
	}
	return order
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// InitLogger configures the global structured logger. Only the first call has effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolveSettings(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleN, s.sampleD)
		traceOverride = s.trace

		outputs, closers := openOutputs(s.file)
		logClosers = closers
		logWriter = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		slog.SetDefault(L)

		wireComponents()
		logStartup(cfg, s)
	})
	return nil
}

// openOutputs always includes stdout. A log file that cannot be opened is
// reported on the standard logger and skipped.
func openOutputs(path string) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	if path == "" {
		return writers, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", filepath.Dir(path), err)
		return writers, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return writers, nil
	}
	return append(writers, f), []io.Closer{f}
}

func wireComponents() {
	if L == nil {
		return
	}
	TG = L.With("component", "tg")
	TWire = L.With("component", "tg.wire")
	Dispatch = L.With("component", "dispatch")
	Sender = L.With("component", "tg.sender")
}

func startupAttrs(cfg *coreconfig.Config, s settings) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("run_id", RunID),
		slog.String("version", buildinfo.Version),
		slog.String("go_version", runtime.Version()),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	}
	if cfg == nil {
		return attrs
	}
	return append(attrs,
		slog.String("mode", cfg.Telegram.RunMode),
		slog.Int("entries", len(cfg.Handlers)),
		slog.Int("action_timeout_ms", cfg.Router.ActionTimeoutMS),
		slog.Int("delivery_retries", cfg.Router.DeliveryRetries),
	)
}

func logStartup(cfg *coreconfig.Config, s settings) {
	if L == nil {
		return
	}
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup", startupAttrs(cfg, s)...)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	if logWriter != nil {
		errs = append(errs, logWriter.Flush(), logWriter.Close())
	}
	for _, c := range logClosers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// LogEvent writes a single event line; a nil logg falls back to the context logger and then L.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		logg = L
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component constructs a logger scoped to the provided component attribute.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return L
	}
	return L.With("component", trimmed)
}

// ShouldSampleDebug reports whether debug-level details should be logged for high-volume events.
func ShouldSampleDebug() bool {
	if traceOverride {
		return true
	}
	return debugSampler.Allow()
}
