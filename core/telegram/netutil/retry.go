package netutil

import (
	"errors"
	"net"
	"net/url"
	"time"

	tele "gopkg.in/telebot.v4"
)

// ShouldRetry reports whether a network error is worth retrying.
// Only transient dial and timeout failures qualify.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Timeout() || opErr.Op == "dial") {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return ShouldRetry(urlErr.Err)
		}
	}
	return false
}

// RetryDelay returns how long to wait before attempt+1 and whether a retry makes
// sense at all. Flood control answers carry their own delay.
func RetryDelay(err error, attempt int, backoff time.Duration) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		if flood.RetryAfter <= 0 {
			return backoff, true
		}
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	if !ShouldRetry(err) {
		return 0, false
	}
	if attempt < 1 {
		attempt = 1
	}
	return backoff * time.Duration(attempt), true
}
