package ui

import (
	tg "github.com/m3rciful/gobot-ui/core/telegram"
	"github.com/m3rciful/gobot-ui/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, callbacks, or expected documents.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// BindFallbacks installs p's callback fallback on reg and returns text router
// options carrying the rest.
func BindFallbacks(reg *tg.Registry, p FallbackProvider) router.TextOptions {
	if p == nil {
		return router.TextOptions{}
	}
	if reg != nil {
		if h := p.UnknownCallback(); h != nil {
			reg.SetCallbackNotFound(h)
		}
	}
	return router.TextOptions{
		UnknownText:     p.UnknownText(),
		UnknownDocument: p.UnknownDocument(),
	}
}
