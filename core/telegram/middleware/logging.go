package middleware

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/metrics"
	"github.com/m3rciful/gobot-ui/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	payloadLogLimit = 256
	seenUpdatesSize = 4096
	seenUpdatesTTL  = 10 * time.Second
)

// seenUpdates remembers recently received update IDs, so an update that passes
// LoggerMiddleware twice (global chain plus a route wrapper) is counted once.
var seenUpdates = expirable.NewLRU[int, struct{}](seenUpdatesSize, nil, seenUpdatesTTL)

func firstSeen(updateID int) bool {
	if seenUpdates.Contains(updateID) {
		return false
	}
	seenUpdates.Add(updateID, struct{}{})
	return true
}

// LoggerMiddleware stores the request-scoped logging context and the rid on c,
// counts the update and, when sampled, logs update.received at debug level.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		ctx := logger.WithUpdateMeta(logger.WithRID(logger.Background(), rid), upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		tghelpers.StoreContext(c, ctx)

		if firstSeen(upd.ID) {
			metrics.Updates.WithLabelValues(UpdateKind(c)).Inc()
			if logger.ShouldSampleDebug() {
				logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", receivedAttrs(c)...)
			}
		}
		return next(c)
	}
}

func receivedAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok"), slog.String("kind", UpdateKind(c))}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}

	upd := c.Update()
	if upd.Callback != nil {
		unique, data := callbacks.ParseCallbackData(upd.Callback)
		if unique != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(unique, 128)))
		}
		if data != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(data, payloadLogLimit)))
		}
		return attrs
	}
	if m := upd.Message; m != nil {
		if m.Payload != "" && len(m.Text) > 0 && m.Text[0] == '/' {
			attrs = append(attrs, slog.String("channel", "deep_link"))
		}
		if m.Text != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(m.Text, payloadLogLimit)))
		}
	}
	return attrs
}
