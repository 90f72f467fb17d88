package layout

import (
	"log/slog"

	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/metrics"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"
	"github.com/m3rciful/gobot-ui/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Context follows the messages rendered while handling one update. The first entry
// is the message of the original event; every rendered layout is pushed on top.
type Context struct {
	bot      Bot
	botID    int64
	handlers *Handlers
	update   tele.Context
	stack    []*tele.Message
}

// NewContext starts a layout context for the update c.
func NewContext(c tele.Context, b Bot, botID int64, handlers *Handlers) *Context {
	lc := &Context{bot: b, botID: botID, handlers: handlers, update: c}
	if m := eventMessage(c); m != nil {
		lc.stack = append(lc.stack, m)
	}
	return lc
}

// eventMessage is the message an update is about: the message itself, or the one
// carrying the pressed button.
func eventMessage(c tele.Context) *tele.Message {
	if cb := c.Callback(); cb != nil {
		return cb.Message
	}
	return c.Message()
}

// Update returns the original event.
func (lc *Context) Update() tele.Context { return lc.update }

// IsOriginal reports whether nothing has been rendered yet.
func (lc *Context) IsOriginal() bool { return len(lc.stack) <= 1 }

// Current returns the most recent message, or nil.
func (lc *Context) Current() *tele.Message {
	if len(lc.stack) == 0 {
		return nil
	}
	return lc.stack[len(lc.stack)-1]
}

// Set renders l over the current message: edit when the bot owns it, send otherwise.
func (lc *Context) Set(l *TextLayout) (*tele.Message, error) {
	msg, edited, err := l.Set(lc.bot, lc.botID, lc.Current())
	op := "send"
	if edited {
		op = "edit"
	}
	return lc.record(op, l, msg, err)
}

// Send renders l as a new message in the original chat.
func (lc *Context) Send(l *TextLayout) (*tele.Message, error) {
	var origin *tele.Message
	if len(lc.stack) > 0 {
		origin = lc.stack[0]
	}
	msg, err := l.Send(lc.bot, origin)
	return lc.record("send", l, msg, err)
}

// SendTo renders l as a new message in another chat.
func (lc *Context) SendTo(l *TextLayout, to tele.Recipient) (*tele.Message, error) {
	msg, err := l.SendTo(lc.bot, to)
	return lc.record("send_to", l, msg, err)
}

// Run resolves a named handler.
func (lc *Context) Run(name string) (Handler, error) {
	return lc.handlers.Get(name)
}

func (lc *Context) record(op string, l *TextLayout, msg *tele.Message, err error) (*tele.Message, error) {
	ctx := tghelpers.BuildContext(lc.update)
	kb := l.Keyboard.Len() > 0
	if err != nil {
		logger.Warn(ctx, "layout", "layout.render",
			slog.String("status", "fail"),
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, err
	}
	metrics.RecordMessage(op, kb)
	middleware.CountMessage(lc.update, kb)
	if msg != nil {
		lc.stack = append(lc.stack, msg)
	}
	logger.Debug(ctx, "layout", "layout.render",
		slog.String("status", "ok"),
		slog.String("op", op),
		slog.Bool("kb", kb),
		slog.Int("depth", len(lc.stack)),
	)
	return msg, nil
}
