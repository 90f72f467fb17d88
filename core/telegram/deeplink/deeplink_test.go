package deeplink

import (
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/gobot-ui/core/payload"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	msg  *tele.Message
	vals map[string]any
}

func newContext(startArg string) *fakeContext {
	return &fakeContext{
		msg:  &tele.Message{Text: "/start " + startArg, Payload: startArg},
		vals: map[string]any{},
	}
}

func (f *fakeContext) Message() *tele.Message  { return f.msg }
func (f *fakeContext) Get(key string) any      { return f.vals[key] }
func (f *fakeContext) Set(key string, val any) { f.vals[key] = val }

var referral = NewSchema("ref",
	payload.Field{Name: "user", Kind: payload.KindInt},
	payload.Field{Name: "campaign", Kind: payload.KindString, Optional: true},
)

func TestEncodedLink(t *testing.T) {
	link, err := URL("@demo_bot", referral, 12345, "spring")
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	token := strings.TrimPrefix(link, "https://t.me/demo_bot?start=")
	if token == link {
		t.Fatalf("unexpected link %q", link)
	}
	if strings.Contains(token, "ref_") {
		t.Fatalf("encoded token leaks the plain form: %q", token)
	}

	rec, err := Decode(newContext(token), referral)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user, _ := rec.Int("user"); user != 12345 {
		t.Fatalf("user = %d", user)
	}
	if c, _ := rec.OptStr("campaign"); c != "spring" {
		t.Fatalf("campaign = %q", c)
	}
}

func TestPlainLink(t *testing.T) {
	promo := NewPlainSchema("promo", payload.Field{Name: "code", Kind: payload.KindString})
	token, err := Encode(promo, "SUMMER")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if token != "promo_SUMMER" {
		t.Fatalf("token = %q", token)
	}
	if _, err := Encode(promo, "SUM_MER"); !errors.Is(err, payload.ErrSeparatorCollision) {
		t.Fatalf("err = %v, want ErrSeparatorCollision", err)
	}
	if _, err := Encode(promo, "a b"); !errors.Is(err, ErrUnsafePayload) {
		t.Fatalf("err = %v, want ErrUnsafePayload", err)
	}
}

func TestStartLengthLimit(t *testing.T) {
	note := NewSchema("n", payload.Field{Name: "text", Kind: payload.KindString})
	// base64url of 48 bytes is exactly 64 characters.
	if _, err := Encode(note, strings.Repeat("x", 46)); err != nil {
		t.Fatalf("64 chars: %v", err)
	}
	if _, err := Encode(note, strings.Repeat("x", 47)); !errors.Is(err, ErrUnsafePayload) {
		t.Fatalf("err = %v, want ErrUnsafePayload", err)
	}
}

func TestMatchTreatsErrorsAsNoMatch(t *testing.T) {
	for _, arg := range []string{"", "!!!", "Zm9v", "cmVmX3g"} {
		if _, ok := Match(newContext(arg), referral, nil); ok {
			t.Fatalf("Match(%q) = true", arg)
		}
	}
}

func TestFilter(t *testing.T) {
	token, err := Encode(referral, 7, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	onlyUser7 := func(r payload.Record) bool {
		n, _ := r.Int("user")
		return n == 7
	}

	var got payload.Record
	var fellBack bool
	h := Filter(referral, onlyUser7, func(tele.Context) error {
		fellBack = true
		return nil
	})(func(c tele.Context) error {
		got, _ = FromContext(c)
		return nil
	})

	if err := h(newContext(token)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if n, _ := got.Int("user"); n != 7 || fellBack {
		t.Fatalf("filter did not pass the record through (user=%d, fallback=%v)", n, fellBack)
	}

	other, _ := Encode(referral, 8, nil)
	if err := h(newContext(other)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !fellBack {
		t.Fatal("rule rejection should reach the fallback")
	}
}
