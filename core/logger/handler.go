package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders one flat line per record with a stable key order.
// Groups are flattened into dotted keys.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	jsonOut := h.cfg.format == formatJSON

	e := newEntry()
	ts := r.Time.UTC()
	e.fields["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	e.fields["level"] = levelName(r.Level.String())
	if jsonOut {
		e.fields["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.attrs {
		e.add(h.prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.add(h.prefix, a)
		return true
	})
	for _, a := range contextAttrs(ctx) {
		if _, set := e.fields[a.Key]; !set {
			e.add("", a)
		}
	}

	if rid, ok := e.str("rid"); ok && rid != "" {
		if compact := CompactRID(rid); compact != rid {
			e.fields["rid"] = compact
			if _, set := e.fields["rid_full"]; jsonOut && !set {
				e.fields["rid_full"] = rid
			}
		}
	}
	if ev, _ := e.str("event"); ev == "" {
		e.fields["event"] = cmpOr(r.Message, "unknown")
	}
	if c, _ := e.str("component"); c == "" {
		e.fields["component"] = "app"
	}
	normalizeEnums(e)
	e.prune()

	var line []byte
	if jsonOut {
		var err error
		if line, err = e.json(h.cfg.keyOrder); err != nil {
			return err
		}
	} else {
		line = e.kv(h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clone(h.attrs), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func cmpOr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// entry is a record flattened to scalar fields.
type entry struct {
	fields map[string]any
}

func newEntry() *entry {
	return &entry{fields: make(map[string]any, 16)}
}

func (e *entry) add(prefix string, a slog.Attr) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			e.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := scalar(key, v); ok {
		e.fields[k] = val
	}
}

func (e *entry) str(key string) (string, bool) {
	v, ok := e.fields[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (e *entry) prune() {
	for k, v := range e.fields {
		if v == nil || v == "" {
			delete(e.fields, k)
		}
	}
}

// keys returns the field names: known keys in order, then the rest sorted.
func (e *entry) keys(order []string) []string {
	keys := make([]string, 0, len(e.fields))
	known := make(map[string]bool, len(order))
	for _, k := range order {
		known[k] = true
		if _, ok := e.fields[k]; ok {
			keys = append(keys, k)
		}
	}
	n := len(keys)
	for k := range e.fields {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[n:])
	return keys
}

func (e *entry) json(order []string) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range e.keys(order) {
		data, err := json.Marshal(e.fields[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, data...)
	}
	return append(buf, '}'), nil
}

func (e *entry) kv(order []string) []byte {
	var b strings.Builder
	for i, k := range e.keys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(e.fields[k])
		if strings.ContainsFunc(s, needsQuote) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

// scalar converts v to a JSON-friendly value. Durations become integer
// milliseconds under a key ending in _ms.
func scalar(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case error:
		return key, x.Error(), true
	case fmt.Stringer:
		return key, x.String(), true
	case string:
		return key, strings.TrimSpace(x), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}
