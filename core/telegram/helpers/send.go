package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes the Send helpers through d. With nil they send inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// enqueue hands send to the dispatcher. A full or closed queue degrades to an
// inline send so the reply is not lost.
func enqueue(c tele.Context, action string, send func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return send()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, "sendMessage", send)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return send()
	}
	return err
}

// SendText sends text as is. Only the first opts value is used.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := []any{}
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return enqueue(c, "send.text", func() error { return c.Send(text, args...) })
}

// SendMD sends legacy Markdown.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return sendParsed(c, text, tele.ModeMarkdown, markup)
}

// SendMDV2 sends MarkdownV2; escape user input with format.EscapeV2.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return sendParsed(c, text, tele.ModeMarkdownV2, markup)
}

func sendParsed(c tele.Context, text string, mode tele.ParseMode, markup []*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: mode}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return SendText(c, text, opts)
}
