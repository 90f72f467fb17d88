// Package callbacks builds and matches inline-button callback data.
//
// Callback data is a payload token limited to 64 bytes. Buttons built by the keyboard
// package carry the raw token (no telebot unique), so routing happens on OnCallback by
// matching the token against registered schemas and exact sentinels.
package callbacks

import (
	"github.com/m3rciful/gobot-ui/core/metrics"
	"github.com/m3rciful/gobot-ui/core/payload"

	tele "gopkg.in/telebot.v4"
)

const (
	// MaxDataLen is the Bot API limit for callback_data, in bytes.
	MaxDataLen = 64
	// DefaultSeparator joins callback segments.
	DefaultSeparator = ":"
)

// Matcher decides whether raw callback data belongs to a route.
type Matcher interface {
	Match(data string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(data string) bool

// Match calls f.
func (f MatcherFunc) Match(data string) bool { return f(data) }

// Exact is a fixed callback token matched by equality.
type Exact string

// Match reports whether data equals the token.
func (e Exact) Match(data string) bool { return string(e) == data }

// String returns the token itself, so Exact can be used directly as button data.
func (e Exact) String() string { return string(e) }

// NewSchema declares a callback record: plain, ":"-separated, at most 64 bytes.
func NewSchema(prefix string, fields ...payload.Field) *payload.Schema {
	return &payload.Schema{
		Name:      prefix,
		Prefix:    prefix,
		Separator: DefaultSeparator,
		MaxLen:    MaxDataLen,
		Fields:    fields,
	}
}

// Decode decodes the update's callback payload with s.
func Decode(c tele.Context, s *payload.Schema) (payload.Record, error) {
	rec, err := s.Decode(CallbackPayload(c))
	metrics.RecordDecode("callback", err == nil)
	return rec, err
}

// Unpack decodes the update's callback payload into T.
func Unpack[T any](c tele.Context, t payload.Type[T]) (T, error) {
	v, err := t.Unpack(CallbackPayload(c))
	metrics.RecordDecode("callback", err == nil)
	return v, err
}
