package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

// emit writes one event through a fresh handler and returns the trimmed line.
func emit(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	LogEvent(ctx, slog.New(handler).With("component", component), level, event, attrs...)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := emit(t, formatKV, ctx, "layout", slog.LevelInfo, "layout.render",
		slog.String("op", "edit"),
		slog.String("status", "ok"),
	)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=layout", "event=layout.render", "status=ok", "rid=rid-123"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	line := emit(t, formatJSON, ctx, "state", slog.LevelError, "fsm.lookup_failed",
		slog.String("err", "boom"),
		slog.String("state", "await_name"),
		slog.String("status", "fail"),
	)
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	assertOrder(t, line,
		`{"ts":`, `"level":"ERROR"`, `"component":"state"`, `"event":"fsm.lookup_failed"`,
		`"status":"fail"`, `"rid":"rid-json"`, `"state":"await_name"`, `"err":"boom"`,
	)
}

func TestStructuredHandlerDomainKeys(t *testing.T) {
	line := emit(t, formatKV, Background(), "payload", slog.LevelWarn, "payload.decode",
		slog.String("field", "id"),
		slog.String("schema", "item"),
		slog.String("channel", "callback"),
		slog.String("err_code", "TYPE_MISMATCH"),
	)
	assertOrder(t, line, "event=payload.decode", "schema=item", "field=id", "channel=callback", "err_code=TYPE_MISMATCH")
}

func TestStructuredHandlerDropsEmptyAndUnknownCache(t *testing.T) {
	line := emit(t, formatKV, Background(), "state", slog.LevelDebug, "fsm.dispatch",
		slog.String("state", ""),
		slog.String("cache", "bogus"),
	)
	if strings.Contains(line, "state=") || strings.Contains(line, "cache=") {
		t.Fatalf("expected empty state and unknown cache to be dropped, got %s", line)
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	line := emit(t, formatKV, WithRID(Background(), rawRID), "app", slog.LevelInfo, "rid.test",
		slog.String("status", "ok"),
	)
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	rawRID := "12:34:56"
	line := emit(t, formatJSON, WithRID(Background(), rawRID), "app", slog.LevelInfo, "rid.test",
		slog.String("status", "ok"),
	)
	for _, want := range []string{`"rid":"` + CompactRID(rawRID) + `"`, `"rid_full":"` + rawRID + `"`, `"ts_unix_nano"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in JSON output, got %s", want, line)
		}
	}
}

func TestComponentLoggersReadyBeforeInit(t *testing.T) {
	if STATE == nil || LAYOUT == nil || TG == nil {
		t.Fatal("component loggers must be usable before InitLogger")
	}
}

func assertOrder(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%s not found in order within %s", p, line)
		}
		pos = idx
	}
}

func TestParseSample(t *testing.T) {
	cases := map[string][2]int{
		"":     {1, 50},
		"10":   {1, 10},
		"3/7":  {3, 7},
		"0":    {0, 0},
		"oops": {1, 50},
	}
	for in, want := range cases {
		n, d := parseSample(in)
		if n != want[0] || d != want[1] {
			t.Fatalf("parseSample(%q) = %d/%d, want %d/%d", in, n, d, want[0], want[1])
		}
	}
}

func TestDebugSampler(t *testing.T) {
	var s debugSampler
	s.set(1, 3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.allow())
	}
	want := []bool{true, false, false, true, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("allow #%d = %v, want %v (%v)", i, got[i], want[i], got)
		}
	}
	s.set(0, 0)
	if !s.allow() {
		t.Fatal("disabled sampler must allow everything")
	}
}

func TestCompactRIDAndSanitize(t *testing.T) {
	if got := CompactRID(BuildRID(35, 36, 0)); got != "z.10.0" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID changed foreign rid: %q", got)
	}
	if got := SanitizeLimit("a\x00b\u200bc\td", 4); got != "abc\t" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}
