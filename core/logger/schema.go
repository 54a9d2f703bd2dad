package logger

import "strings"

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var allowedStatus = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rate_limited": {},
}

// allowedOutcome mirrors the router outcomes plus transport-level ones.
var allowedOutcome = map[string]struct{}{
	"sent":            {},
	"no_match":        {},
	"empty_reply":     {},
	"handler_failed":  {},
	"delivery_failed": {},
	"rate_limited":    {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(allowed map[string]struct{}, value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	_, ok := allowed[value]
	return value, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"run_id",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"update_kind",
	"handler",
	"matcher",
	"outcome",
	"duration_ms",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"entries",
	"commands",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"timeout",
	"attempt",
	"attempts",
	"backoff_ms",
	"elapsed_ms",
}
