package telegram

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	// Long polling holds getUpdates open for the poll timeout, so the client
	// timeout must exceed the longest poll.
	clientTimeoutSlack = 15 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Bot API calls.
// Reply retries happen in the sender, not at the transport level.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if pollTimeout < 0 {
		pollTimeout = 0
	}
	return &http.Client{
		Timeout:   pollTimeout + clientTimeoutSlack,
		Transport: transport,
	}
}
