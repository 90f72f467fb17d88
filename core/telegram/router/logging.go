package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/metrics"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"
	"github.com/m3rciful/gobot-ui/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

const errLogLimit = 256

// dispatch times one routed update. Each update ends in exactly one
// handler.handled line, written by run or skip.
type dispatch struct {
	c     tele.Context
	start time.Time
}

func begin(c tele.Context) dispatch {
	return dispatch{c: c, start: time.Now()}
}

// run invokes h under the given handler name.
func (d dispatch) run(name string, h tele.HandlerFunc, extras ...slog.Attr) error {
	tghelpers.WithHandler(d.c, name)
	err := h(d.c)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	d.finish(name, status, err, extras)
	return err
}

// skip records an update nobody handled.
func (d dispatch) skip(name string, extras ...slog.Attr) {
	d.finish(name, "skip", nil, extras)
}

func (d dispatch) finish(name, status string, err error, extras []slog.Attr) {
	ctx := tghelpers.WithHandler(d.c, name)
	took := time.Since(d.start)
	metrics.RecordHandler(name, status, took)

	msgs, kb := middleware.GetCounters(d.c)
	attrs := make([]slog.Attr, 0, 8+len(extras))
	attrs = append(attrs,
		slog.String("status", status),
		slog.String("handler", name),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), errLogLimit)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

// handlerName turns a command or callback key into a metric-friendly label.
func handlerName(key string) string {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "unknown"
	}
	return strings.ToLower(strings.Join(strings.Fields(key), "_"))
}

// errorCode prefers an error's own Code() and falls back to its type name.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
