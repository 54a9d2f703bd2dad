package logger

import (
	"regexp"
	"time"
)

var tokenRe = regexp.MustCompile(`(bot)?[0-9]{5,}:[A-Za-z0-9_-]{20,}`)

// RoundMS rounds duration to the nearest millisecond for consistent logging.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Took returns rounded duration since start for compact logging.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RedactToken masks Telegram bot tokens, which leak into transport error messages via request URLs.
func RedactToken(s string) string {
	if s == "" {
		return s
	}
	return tokenRe.ReplaceAllString(s, "<redacted>")
}
