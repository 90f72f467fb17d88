package keyboard

import (
	"errors"
	"fmt"
	"net/url"

	tele "gopkg.in/telebot.v4"
)

// ErrInvalidURL reports a link button whose URL is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("keyboard: invalid url")

// Button is an inline keyboard button.
type Button struct {
	tele.InlineButton
}

// Action sets what a button does when pressed.
type Action interface {
	apply(b *tele.InlineButton)
}

type callbackAction string

func (a callbackAction) apply(b *tele.InlineButton) { b.Data = string(a) }

type urlAction string

func (a urlAction) apply(b *tele.InlineButton) { b.URL = string(a) }

type webAppAction string

func (a webAppAction) apply(b *tele.InlineButton) { b.WebApp = &tele.WebApp{URL: string(a)} }

// Callback sends data back as callback_data. The data is used verbatim, without
// telebot's unique prefix, so callback routes match it as a whole.
func Callback(data string) Action { return callbackAction(data) }

// OpenURL opens a link. The URL must be an absolute http or https URL.
func OpenURL(rawURL string) (Action, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return urlAction(rawURL), nil
}

// MustOpenURL is OpenURL for literals.
func MustOpenURL(rawURL string) Action {
	a, err := OpenURL(rawURL)
	if err != nil {
		panic(err)
	}
	return a
}

// OpenWebApp launches a Web App.
func OpenWebApp(rawURL string) Action { return webAppAction(rawURL) }

// ShareText opens Telegram's share dialog prefilled with link and text.
func ShareText(link, text string) Action {
	q := url.Values{"url": {link}, "text": {text}}
	return urlAction("https://telegram.me/share/url?" + q.Encode())
}

// B creates a button.
func B(text string, action Action) *Button {
	b := &Button{InlineButton: tele.InlineButton{Text: text}}
	if action != nil {
		action.apply(&b.InlineButton)
	}
	return b
}

// BIf creates a button when show is true and returns a nil placeholder otherwise.
// Build drops placeholders.
func BIf(show bool, text string, action Action) *Button {
	if !show {
		return nil
	}
	return B(text, action)
}

// WithText returns a copy of b labelled text.
func (b *Button) WithText(text string) *Button {
	c := *b
	if b.WebApp != nil {
		w := *b.WebApp
		c.WebApp = &w
	}
	c.Text = text
	return &c
}

func (*Button) item() {}
