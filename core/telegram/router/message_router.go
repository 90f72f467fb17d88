package router

import (
	"strings"

	tg "github.com/m3rciful/gobot-ui/core/telegram"
	"github.com/m3rciful/gobot-ui/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the part of state.Manager the text router needs.
type FSM interface {
	InProgress(c tele.Context) bool
	Dispatch(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing. Conversations in
// progress take precedence over command aliases and fallbacks.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	onText := func(c tele.Context) error {
		d := begin(c)
		switch {
		case fsm != nil && fsm.InProgress(c):
			return d.run("fsm", fsm.Dispatch)
		case reg == nil:
		default:
			if key, cmd, ok := reg.LookupCommand(commandWord(c.Text())); ok && cmd.Handler != nil {
				return d.run(handlerName(key), cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return d.run("fallback", fb)
			}
		}
		if opts.UnknownText == nil {
			d.skip("unknown_text")
			return nil
		}
		return d.run("unknown_text", opts.UnknownText)
	}

	onDocument := func(c tele.Context) error {
		d := begin(c)
		switch {
		case fsm != nil && fsm.InProgress(c):
			return d.run("fsm_document", fsm.Dispatch)
		case opts.UnknownDocument != nil:
			return d.run("unexpected_document", opts.UnknownDocument)
		}
		d.skip("unexpected_document")
		return nil
	}

	guard := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: guard(onText)},
		{Endpoint: tele.OnDocument, Handler: guard(onDocument)},
	}
}

// commandWord picks the part of text that may name a command: the first word of
// a slash command, otherwise the whole trimmed text (a reply button label).
func commandWord(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		if i := strings.IndexAny(text, " \t\n"); i > 0 {
			return text[:i]
		}
	}
	return text
}
