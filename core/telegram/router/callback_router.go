package router

import (
	"log/slog"

	tg "github.com/m3rciful/gobot-ui/core/telegram"
	"github.com/m3rciful/gobot-ui/core/telegram/callbacks"
	"github.com/m3rciful/gobot-ui/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackHandler routes a callback update through the registry. Buttons carrying a
// telebot unique are looked up by that unique; raw payload tokens are matched
// against exact keys and then schemas.
func CallbackHandler(reg *tg.Registry, opts CallbackOptions) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		ac := &answerOnce{Context: c}
		d := begin(ac)
		defer ac.settle()

		unique, data := callbacks.ParseCallbackData(cb)
		lookup := data
		if unique != "" {
			lookup = unique
		}
		entry, ok := reg.MatchCallback(lookup)

		key := entry.Name
		if !ok {
			key = callbacks.CallbackKey(c, "")
		}
		name := "callback." + handlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		if !ok || entry.Handler == nil {
			fallback := reg.CallbackNotFound()
			if opts.NotFound != nil {
				fallback = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
			if fallback == nil {
				d.skip(name, extras...)
				return nil
			}
			return d.run(name, fallback, extras...)
		}

		return d.run(name, entry.Handler, extras...)
	}
}

// answerOnce records whether the handler answered the callback query. Telegram
// accepts one answer per query, so the router only answers for silent handlers.
type answerOnce struct {
	tele.Context
	answered bool
}

func (a *answerOnce) Respond(resp ...*tele.CallbackResponse) error {
	a.answered = true
	return a.Context.Respond(resp...)
}

func (a *answerOnce) RespondText(text string) error {
	a.answered = true
	return a.Context.RespondText(text)
}

func (a *answerOnce) RespondAlert(text string) error {
	a.answered = true
	return a.Context.RespondAlert(text)
}

// settle stops the client's loading spinner when nothing answered.
func (a *answerOnce) settle() {
	if !a.answered {
		_ = a.Context.Respond()
	}
}

// CallbackRoute returns a route that sends every callback through CallbackHandler.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(CallbackHandler(reg, opts))),
	}
}
