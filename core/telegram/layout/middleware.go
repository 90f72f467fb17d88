package layout

import (
	"log/slog"

	"github.com/m3rciful/gobot-ui/core/logger"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"
	"github.com/m3rciful/gobot-ui/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const (
	contextKey = "layout_context"
	fsmKey     = "layout_fsm"
)

// Middleware injects a *Context and, when storage is available, an *FSM into
// every update.
type Middleware struct {
	Bot      Bot
	BotID    int64
	Handlers *Handlers
	// Storage is used when no state.Context was injected upstream.
	Storage state.Storage
	// Cache defaults to state.SharedCache; it is also installed on an upstream
	// state.Context so both views share it.
	Cache *state.Cache
}

// Use is the telebot middleware.
func (m *Middleware) Use(next tele.HandlerFunc) tele.HandlerFunc {
	if m.Handlers == nil {
		m.Handlers = NewHandlers()
	}
	return func(c tele.Context) error {
		c.Set(contextKey, NewContext(c, m.Bot, m.BotID, m.Handlers))
		if f := m.fsm(c); f != nil {
			c.Set(fsmKey, f)
		}
		return next(c)
	}
}

func (m *Middleware) fsm(c tele.Context) *FSM {
	if sc, ok := state.FromContext(c); ok {
		// Both views must share one cache or each serves the other's stale writes.
		if m.Cache != nil {
			sc.Cache = m.Cache
		}
		return NewFSM(sc.Storage, sc.Key, sc.Cache, m.Handlers)
	}
	if m.Storage == nil {
		return nil
	}
	key, err := state.KeyOf(c)
	if err != nil {
		return nil
	}
	return NewFSM(m.Storage, key, m.Cache, m.Handlers)
}

// ContextFrom returns the layout context injected by Middleware.
func ContextFrom(c tele.Context) (*Context, bool) {
	lc, ok := c.Get(contextKey).(*Context)
	return lc, ok && lc != nil
}

// FSMFrom returns the layout FSM injected by Middleware.
func FSMFrom(c tele.Context) (*FSM, bool) {
	f, ok := c.Get(fsmKey).(*FSM)
	return f, ok && f != nil
}

// Handle adapts h to telebot: the resulting layout is rendered over the current
// message and redirects are followed through the registry.
func (m *Middleware) Handle(h Handler) tele.HandlerFunc {
	return func(c tele.Context) error {
		lc, ok := ContextFrom(c)
		if !ok {
			if m.Handlers == nil {
				m.Handlers = NewHandlers()
			}
			lc = NewContext(c, m.Bot, m.BotID, m.Handlers)
			c.Set(contextKey, lc)
		}
		res, err := h(c)
		if err != nil {
			return err
		}
		l, err := resolve(c, lc.handlers, res)
		if err != nil {
			logger.LogEvent(tghelpers.BuildContext(c), logger.LAYOUT, slog.LevelWarn, "layout.resolve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return err
		}
		if l == nil {
			return nil
		}
		_, err = lc.Set(l)
		return err
	}
}

// Named registers h under name and returns its telebot adapter.
func (m *Middleware) Named(name string, h Handler) tele.HandlerFunc {
	if m.Handlers == nil {
		m.Handlers = NewHandlers()
	}
	m.Handlers.Add(name, h)
	return m.Handle(h)
}
