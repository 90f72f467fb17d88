package middleware

import (
	"github.com/m3rciful/gobot-ui/core/metrics"

	tele "gopkg.in/telebot.v4"
)

const (
	messagesKey = "messages"
	kbKey       = "kb"
)

// metricsContext wraps tele.Context to count sent messages and detect keyboard usage.
type metricsContext struct{ tele.Context }

// CountMessage records one outgoing message for the update. Senders that bypass
// tele.Context (layouts talk to the bot directly) call it themselves.
func CountMessage(c tele.Context, hasKB bool) {
	n, _ := c.Get(messagesKey).(int)
	c.Set(messagesKey, n+1)
	if hasKB {
		c.Set(kbKey, true)
	}
}

func (m metricsContext) counted(op string, hasKB bool, err error) error {
	if err == nil {
		CountMessage(m.Context, hasKB)
		metrics.RecordMessage(op, hasKB)
	}
	return err
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	return m.counted("send", hasKeyboard(opts), m.Context.Send(what, opts...))
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	return m.counted("reply", hasKeyboard(opts), m.Context.Reply(what, opts...))
}

// Edit proxies tele.Context.Edit while updating message counters.
func (m metricsContext) Edit(what interface{}, opts ...interface{}) error {
	return m.counted("edit", hasKeyboard(opts), m.Context.Edit(what, opts...))
}

// EditOrSend proxies tele.Context.EditOrSend while updating message counters.
func (m metricsContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return m.counted("edit_or_send", hasKeyboard(opts), m.Context.EditOrSend(what, opts...))
}

// EditOrReply proxies tele.Context.EditOrReply while updating message counters.
func (m metricsContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return m.counted("edit_or_reply", hasKeyboard(opts), m.Context.EditOrReply(what, opts...))
}

// MessageMetricsMiddleware instruments context to track messages count and keyboard usage.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(messagesKey, 0)
		c.Set(kbKey, false)
		return next(metricsContext{Context: c})
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(messagesKey).(int)
	kb, _ := c.Get(kbKey).(bool)
	return msgs, kb
}
