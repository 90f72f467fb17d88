package keyboard

import (
	"errors"
	"net/url"
	"testing"
)

func TestOpenURL(t *testing.T) {
	for _, ok := range []string{"https://example.com", "http://example.com/a?b=c"} {
		if _, err := OpenURL(ok); err != nil {
			t.Fatalf("OpenURL(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "example.com", "ftp://example.com", "https://", "tg://resolve"} {
		if _, err := OpenURL(bad); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("OpenURL(%q) err = %v, want ErrInvalidURL", bad, err)
		}
	}
}

func TestShareText(t *testing.T) {
	cases := []struct{ link, text string }{
		{"https://t.me/demo_bot", "hello world"},
		{"https://t.me/demo_bot?start=a", "Tom & Jerry = 1+1"},
		{"https://t.me/demo_bot?start=a&b=c", "50% off #deal"},
	}
	for _, tc := range cases {
		b := B("Share", ShareText(tc.link, tc.text))
		u, err := url.Parse(b.URL)
		if err != nil {
			t.Fatalf("parse %q: %v", b.URL, err)
		}
		if u.Host != "telegram.me" || u.Path != "/share/url" {
			t.Fatalf("URL = %q", b.URL)
		}
		q := u.Query()
		if got := q.Get("url"); got != tc.link {
			t.Fatalf("url = %q, want %q", got, tc.link)
		}
		if got := q.Get("text"); got != tc.text {
			t.Fatalf("text = %q, want %q", got, tc.text)
		}
	}
}

func TestOpenWebApp(t *testing.T) {
	b := B("App", OpenWebApp("https://app.example.com"))
	if b.WebApp == nil || b.WebApp.URL != "https://app.example.com" {
		t.Fatalf("WebApp = %+v", b.WebApp)
	}
	c := b.WithText("Open")
	if c.Text != "Open" || b.Text != "App" {
		t.Fatalf("WithText texts = %q / %q", c.Text, b.Text)
	}
	if c.WebApp == b.WebApp {
		t.Fatal("WithText shares the WebApp pointer")
	}
}

func TestBIf(t *testing.T) {
	if BIf(false, "x", Callback("x")) != nil {
		t.Fatal("hidden button should be nil")
	}
	if b := BIf(true, "x", Callback("y")); b == nil || b.Data != "y" {
		t.Fatalf("BIf(true) = %+v", b)
	}
}

func TestCancel(t *testing.T) {
	if b := Cancel("date:cancel"); b.Text != defaultCancelButtonText || b.Data != "date:cancel" {
		t.Fatalf("Cancel() = %+v", b)
	}
	if b := Cancel("x", "Back"); b.Text != "Back" {
		t.Fatalf("Cancel(label) text = %q", b.Text)
	}
}
