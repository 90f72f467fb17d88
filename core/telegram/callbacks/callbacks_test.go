package callbacks

import (
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/gobot-ui/core/payload"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	cb *tele.Callback
}

func (f *fakeContext) Callback() *tele.Callback { return f.cb }

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name    string
		cb      *tele.Callback
		unique  string
		payload string
	}{
		{"nil", nil, "", ""},
		{"raw", &tele.Callback{Data: "buy:1:2"}, "", "buy:1:2"},
		{"unique marker", &tele.Callback{Data: "\fmenu|open"}, "menu", "open"},
		{"unique marker no payload", &tele.Callback{Data: "\fmenu"}, "menu", ""},
		{"resolved by telebot", &tele.Callback{Unique: "menu", Data: "open"}, "menu", "open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, p := ParseCallbackData(tt.cb)
			if u != tt.unique || p != tt.payload {
				t.Fatalf("ParseCallbackData = (%q, %q), want (%q, %q)", u, p, tt.unique, tt.payload)
			}
		})
	}
}

func TestCallbackKey(t *testing.T) {
	c := &fakeContext{cb: &tele.Callback{Data: "buy:1:2"}}
	if got := CallbackKey(c, ""); got != "buy" {
		t.Fatalf("CallbackKey = %q, want buy", got)
	}
	c.cb = &tele.Callback{Unique: "menu", Data: "x:y"}
	if got := CallbackKey(c, ""); got != "menu" {
		t.Fatalf("CallbackKey = %q, want menu", got)
	}
}

func TestExact(t *testing.T) {
	back := Exact("back")
	if !back.Match("back") {
		t.Fatal("exact token did not match itself")
	}
	for _, other := range []string{"Back", "back:", "back ", ""} {
		if back.Match(other) {
			t.Fatalf("Exact matched %q", other)
		}
	}
}

func TestSchemaLimit(t *testing.T) {
	s := NewSchema("note", payload.Field{Name: "text", Kind: payload.KindString})

	fits := strings.Repeat("a", MaxDataLen-len("note:"))
	token, err := s.Pack(fits)
	if err != nil {
		t.Fatalf("pack at limit: %v", err)
	}
	if len(token) != MaxDataLen {
		t.Fatalf("len = %d", len(token))
	}
	if _, err := s.Pack(fits + "a"); !errors.Is(err, payload.ErrPayloadTooLong) {
		t.Fatalf("err = %v, want ErrPayloadTooLong", err)
	}
}

func TestDecodeFromContext(t *testing.T) {
	s := NewSchema("buy",
		payload.Field{Name: "id", Kind: payload.KindInt},
		payload.Field{Name: "qty", Kind: payload.KindInt},
	)
	c := &fakeContext{cb: &tele.Callback{Data: s.MustPack(10, 3)}}
	rec, err := Decode(c, s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if qty, _ := rec.Int("qty"); qty != 3 {
		t.Fatalf("qty = %d", qty)
	}

	c.cb = &tele.Callback{Data: "sell:10:3"}
	if _, err := Decode(c, s); !errors.Is(err, payload.ErrPrefixMismatch) {
		t.Fatalf("err = %v, want ErrPrefixMismatch", err)
	}
}
