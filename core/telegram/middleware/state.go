package middleware

import (
	"log/slog"

	"github.com/m3rciful/gobot-ui/core/logger"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"
	"github.com/m3rciful/gobot-ui/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// InState lets the update through only when the conversation is in expected.
// It needs state.WithSession upstream; updates without a session are dropped.
func InState(expected state.State) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			fsm, ok := state.FromContext(c)
			if !ok {
				logger.LogEvent(ctx, logger.STATE, slog.LevelDebug, "fsm.skip",
					slog.String("status", "skip"),
					slog.String("expected", string(expected)),
					slog.String("reason", "no_session"),
				)
				return nil
			}
			current, err := fsm.State(ctx)
			if err != nil {
				return err
			}
			event := "fsm.match"
			if current != expected {
				event = "fsm.skip"
			}
			logger.LogEvent(ctx, logger.STATE, slog.LevelDebug, event,
				slog.String("state", string(current)),
				slog.String("expected", string(expected)),
			)
			if current != expected {
				return nil
			}
			return next(c)
		}
	}
}
