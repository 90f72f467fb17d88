// Package deeplink packs payload records into t.me start links and routes /start
// commands carrying them.
package deeplink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/gobot-ui/core/metrics"
	"github.com/m3rciful/gobot-ui/core/payload"

	tele "gopkg.in/telebot.v4"
)

const (
	// MaxStartLen is the Bot API limit for the start parameter.
	MaxStartLen = 64
	// DefaultSeparator joins deep-link segments.
	DefaultSeparator = "_"

	contextKey = "deep_link"
)

// ErrUnsafePayload reports a start parameter Telegram would reject.
var ErrUnsafePayload = errors.New("deeplink: start parameter must be 1-64 characters of A-Z, a-z, 0-9, _ and -")

// NewSchema declares an encoded deep link: "_"-separated and passed through base64url.
func NewSchema(prefix string, fields ...payload.Field) *payload.Schema {
	return &payload.Schema{
		Name:      prefix,
		Prefix:    prefix,
		Separator: DefaultSeparator,
		Encoded:   true,
		Fields:    fields,
	}
}

// NewPlainSchema declares a deep link whose token is used verbatim.
func NewPlainSchema(prefix string, fields ...payload.Field) *payload.Schema {
	s := NewSchema(prefix, fields...)
	s.Encoded = false
	return s
}

// Encode packs values into a start parameter and checks it against the transport limits.
func Encode(s *payload.Schema, values ...any) (string, error) {
	token, err := s.Pack(values...)
	if err != nil {
		return "", err
	}
	if err := CheckStart(token); err != nil {
		return "", fmt.Errorf("%s: %w", s.Name, err)
	}
	return token, nil
}

// CheckStart validates a start parameter.
func CheckStart(token string) error {
	if token == "" || len(token) > MaxStartLen {
		return ErrUnsafePayload
	}
	for i := 0; i < len(token); i++ {
		ch := token[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_', ch == '-':
		default:
			return ErrUnsafePayload
		}
	}
	return nil
}

// Link builds https://t.me/<bot>?start=<token>.
func Link(botUsername, token string) string {
	return "https://t.me/" + strings.TrimPrefix(botUsername, "@") + "?start=" + token
}

// URL encodes values and returns the full start link.
func URL(botUsername string, s *payload.Schema, values ...any) (string, error) {
	token, err := Encode(s, values...)
	if err != nil {
		return "", err
	}
	return Link(botUsername, token), nil
}

// StartPayload returns the argument of a /start command, or "" for other updates.
func StartPayload(c tele.Context) string {
	m := c.Message()
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.Payload)
}

// Decode decodes the /start argument with s.
func Decode(c tele.Context, s *payload.Schema) (payload.Record, error) {
	arg := StartPayload(c)
	if arg == "" {
		return payload.Record{}, &payload.Error{Kind: payload.ErrDecode, Schema: s.Name, Detail: "no start parameter"}
	}
	return s.Decode(arg)
}

// Match decodes the /start argument with s and applies rule. Any decode failure is
// reported as no match. A nil rule accepts every decoded record.
func Match(c tele.Context, s *payload.Schema, rule func(payload.Record) bool) (payload.Record, bool) {
	rec, err := Decode(c, s)
	if err != nil {
		metrics.RecordDecode("deep_link", false)
		return payload.Record{}, false
	}
	metrics.RecordDecode("deep_link", true)
	if rule != nil && !rule(rec) {
		return payload.Record{}, false
	}
	return rec, true
}

// Filter runs next only for /start updates whose argument decodes under s and satisfies
// rule; the record is then available through FromContext. Other updates go to otherwise,
// which may be nil.
func Filter(s *payload.Schema, rule func(payload.Record) bool, otherwise tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			rec, ok := Match(c, s, rule)
			if !ok {
				if otherwise != nil {
					return otherwise(c)
				}
				return nil
			}
			c.Set(contextKey, rec)
			return next(c)
		}
	}
}

// FromContext returns the record stored by Filter or the start router.
func FromContext(c tele.Context) (payload.Record, bool) {
	rec, ok := c.Get(contextKey).(payload.Record)
	return rec, ok
}

// Store attaches rec to the update context.
func Store(c tele.Context, rec payload.Record) {
	c.Set(contextKey, rec)
}
