package router

import (
	"log/slog"

	tg "github.com/m3rciful/gobot-ui/core/telegram"
	"github.com/m3rciful/gobot-ui/core/telegram/deeplink"
	"github.com/m3rciful/gobot-ui/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// StartOptions configures the /start route.
type StartOptions struct {
	// Plain handles /start without a matching deep link. When nil, a registered
	// "/start" command is used.
	Plain tele.HandlerFunc
}

// StartHandler routes /start through the registry's deep-link routes. The decoded
// record is stored for deeplink.FromContext.
func StartHandler(reg *tg.Registry, opts StartOptions) tele.HandlerFunc {
	plain := opts.Plain
	if plain == nil {
		if _, cmd, ok := reg.LookupCommand("/start"); ok {
			plain = cmd.Handler
		}
	}
	return func(c tele.Context) error {
		d := begin(c)
		arg := deeplink.StartPayload(c)

		if entry, rec, ok := reg.MatchStart(arg); ok {
			deeplink.Store(c, rec)
			return d.run("start."+handlerName(entry.Name), entry.Handler,
				slog.String("channel", "deep_link"), slog.String("schema", entry.Schema.Name))
		}

		var extras []slog.Attr
		if arg != "" {
			extras = append(extras, slog.String("reason", "no_deep_link_match"))
		}
		if plain == nil {
			d.skip("start", extras...)
			return nil
		}
		return d.run("start", plain, extras...)
	}
}

// StartRoute binds StartHandler to /start.
func StartRoute(reg *tg.Registry, opts StartOptions) tg.Route {
	return tg.Route{
		Endpoint: "/start",
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(StartHandler(reg, opts))),
	}
}
