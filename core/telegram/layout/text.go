// Package layout renders screens ("layouts") into the chat and keeps track of the
// message that currently shows them.
//
// A handler returns a *TextLayout; the middleware edits the message the user
// interacted with when the bot owns it and sends a new one otherwise.
package layout

import (
	"errors"

	"github.com/m3rciful/gobot-ui/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// ErrNoChat reports an update without a chat to render into.
var ErrNoChat = errors.New("layout: no chat to render into")

// Bot is the part of *tele.Bot used for rendering.
type Bot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TextLayout is a text message with an optional inline keyboard.
type TextLayout struct {
	Text      string
	Keyboard  keyboard.Grid
	ParseMode tele.ParseMode
	// DisablePreview turns off link previews.
	DisablePreview bool
	// Options are passed to telebot unchanged, after the send options.
	Options []interface{}
}

// Text is a shorthand constructor.
func Text(text string, kb keyboard.Grid) *TextLayout {
	return &TextLayout{Text: text, Keyboard: kb}
}

func (*TextLayout) result() {}

func (l *TextLayout) opts() []interface{} {
	so := &tele.SendOptions{ParseMode: l.ParseMode}
	if l.Keyboard.Len() > 0 {
		so.ReplyMarkup = l.Keyboard.Markup()
	}
	out := []interface{}{so}
	if l.DisablePreview {
		out = append(out, tele.NoPreview)
	}
	return append(out, l.Options...)
}

// Set edits msg when it was sent by the bot identified by botID and sends a new
// message to msg's chat otherwise. It reports whether an edit happened.
func (l *TextLayout) Set(b Bot, botID int64, msg *tele.Message) (*tele.Message, bool, error) {
	if msg == nil {
		return nil, false, ErrNoChat
	}
	if msg.Sender != nil && msg.Sender.ID == botID {
		out, err := b.Edit(msg, l.Text, l.opts()...)
		return out, true, err
	}
	out, err := l.Send(b, msg)
	return out, false, err
}

// Send sends the layout to msg's chat.
func (l *TextLayout) Send(b Bot, msg *tele.Message) (*tele.Message, error) {
	if msg == nil || msg.Chat == nil {
		return nil, ErrNoChat
	}
	return l.SendTo(b, msg.Chat)
}

// SendTo sends the layout to an arbitrary chat.
func (l *TextLayout) SendTo(b Bot, to tele.Recipient) (*tele.Message, error) {
	if to == nil {
		return nil, ErrNoChat
	}
	return b.Send(to, l.Text, l.opts()...)
}
