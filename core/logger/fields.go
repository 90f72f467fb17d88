package logger

import "strings"

// defaultKeyOrder fixes the position of well-known keys; the rest follow sorted.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type",
	"handler", "op", "cb_key", "outcome", "duration_ms",
	"messages", "kb", "count", "cache", "payload", "username",
	"mode", "listen", "public_url", "http_code", "db", "host", "port",
	"state", "schema", "field", "channel", "driver", "depth",
	"err", "err_code", "retryable", "attempts", "backoff_ms",
}

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// enumFields restricts a few keys to known values. Unknown status values are kept
// lowercased; unknown cache and outcome values are dropped.
var enumFields = map[string]struct {
	values map[string]bool
	keep   bool
}{
	"status":  {values: set("ok", "fail", "skip", "retry", "rate_limited", "cancelled"), keep: true},
	"cache":   {values: set("hit", "miss", "refresh")},
	"outcome": {values: set("ok", "fail", "cancelled", "rate_limited")},
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

func levelName(level string) string {
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

func normalizeEnums(e *entry) {
	for key, rule := range enumFields {
		raw, ok := e.str(key)
		if !ok || raw == "" {
			continue
		}
		v := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case rule.values[v], rule.keep:
			e.fields[key] = v
		default:
			delete(e.fields, key)
		}
	}
}
