package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits Telebot's \f<unique>|<payload> encoding.
// Raw data without the \f marker has no unique part and is returned whole as payload.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := cb.Data
	if !strings.HasPrefix(raw, "\f") {
		return "", raw
	}
	unique, payload, _ := strings.Cut(raw[1:], "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique endpoint of a button, or the schema prefix of raw data.
func CallbackKey(c tele.Context, sep string) string {
	unique, payload := ParseCallbackData(c.Callback())
	if unique != "" {
		return unique
	}
	if sep == "" {
		sep = DefaultSeparator
	}
	head, _, _ := strings.Cut(payload, sep)
	return head
}

// CallbackPayload returns the payload part of the callback data.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}
