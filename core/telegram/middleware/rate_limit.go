package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/metrics"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	defaultLimiterUsers = 10000
	limiterIdleTTL      = 10 * time.Minute
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the minimum spacing between updates of one user.
	Interval time.Duration
	// Burst allows short bursts above the interval; defaults to 1.
	Burst int
	// Exclude names update kinds (see UpdateKind) that are never limited.
	Exclude   []string
	OnLimited tele.HandlerFunc
	// MaxUsers bounds how many per-user limiters are remembered.
	MaxUsers int
}

// UpdateKind classifies an update for rate limit exclusions and metrics.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware returns a middleware that enforces a token bucket per user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.MaxUsers <= 0 {
		opts.MaxUsers = defaultLimiterUsers
	}
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, kind := range opts.Exclude {
		excluded[strings.ToLower(strings.TrimSpace(kind))] = true
	}
	limiters := expirable.NewLRU[int64, *rate.Limiter](opts.MaxUsers, nil, limiterIdleTTL)
	limiterFor := func(userID int64) *rate.Limiter {
		if l, ok := limiters.Get(userID); ok {
			return l
		}
		l := rate.NewLimiter(rate.Every(opts.Interval), opts.Burst)
		limiters.Add(userID, l)
		return l
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c)
			if excluded[kind] {
				return next(c)
			}
			if limiterFor(user.ID).Allow() {
				return next(c)
			}

			metrics.RateLimited.WithLabelValues(kind).Inc()
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
