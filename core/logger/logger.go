// Package logger is the structured logging layer of the bot: one slog handler
// writing JSON or key=value lines with a fixed key order, per-component loggers
// and request correlation carried in context.Context.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/gobot-ui/core/buildinfo"
	coreconfig "github.com/m3rciful/gobot-ui/core/config"
)

var (
	initOnce sync.Once
	shutdown sync.Once

	writer  *asyncWriter
	closers []io.Closer

	levelVar slog.LevelVar
	sampler  debugSampler

	// L is the base logger.
	L *slog.Logger

	// DB logs connection pool events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs schema migrations.
	MIG *slog.Logger
	// TWire logs handler and route wiring.
	TWire *slog.Logger
	// STATE logs FSM storage and dispatch events.
	STATE *slog.Logger
	// LAYOUT logs layout rendering and redirects.
	LAYOUT *slog.Logger
)

// Until InitLogger runs, component loggers write through slog's default handler.
func init() {
	sampler.set(1, 50)
	setBase(slog.Default())
}

func setBase(base *slog.Logger) {
	L = base
	DB = base.With("component", "db")
	TG = base.With("component", "tg")
	MIG = base.With("component", "db.migrate")
	TWire = base.With("component", "tg.wire")
	STATE = base.With("component", "state")
	LAYOUT = base.With("component", "layout")
}

// InitLogger installs the structured handler as slog's default. Only the first
// call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		levelVar.Set(parseLevel(lc.Level))
		sampler.set(parseSample(lc.DebugSample))

		var outputs []io.Writer
		outputs, closers, err = openOutputs(lc)
		if err != nil {
			return
		}
		writer = newAsyncWriter(outputs, 64*1024)
		base := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   writer,
			format:   parseFormat(lc),
			keyOrder: parseKeyOrder(lc.KeysOrder),
		}))
		slog.SetDefault(base)
		setBase(base)

		version, commit, built := buildinfo.Resolve()
		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", version),
			slog.String("build_commit", commit),
			slog.String("build_date", built),
			slog.String("profile", cmpOr(strings.ToLower(strings.TrimSpace(lc.Profile)), "prod")),
		)
	})
	return err
}

// Shutdown flushes buffered output and closes log files.
func Shutdown() error {
	var errs []error
	shutdown.Do(func() {
		if writer != nil {
			errs = append(errs, writer.Flush(), writer.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}

func parseFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch strings.ToLower(lc.Profile) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	var order []string
	if raw = strings.TrimSpace(raw); raw != "default" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parseSample reads "N/M" or "M" (meaning 1/M). "0" disables sampling; garbage
// falls back to 1/50.
func parseSample(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, 50
	}
	num, den := "1", raw
	if a, b, ok := strings.Cut(raw, "/"); ok {
		num, den = a, b
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(num))
	d, err2 := strconv.Atoi(strings.TrimSpace(den))
	switch {
	case err1 != nil || err2 != nil:
		return 1, 50
	case n <= 0 || d <= 0:
		return 0, 0
	}
	return n, d
}

func openOutputs(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir == "" || file == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", dir, err)
		return writers, nil, nil
	}
	path := filepath.Join(dir, file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return writers, nil, nil
	}
	return append(writers, f), []io.Closer{f}, nil
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent logs attrs under event with logg, falling back to the context logger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs event for component at level.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
// TRACE=1 (or LOG_TRACE=1) disables sampling.
func ShouldSampleDebug() bool {
	if truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE")) {
		return true
	}
	return sampler.allow()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// debugSampler lets num out of every den events through.
type debugSampler struct {
	ratio atomic.Uint64 // num<<32 | den
	count atomic.Uint64
}

func (s *debugSampler) set(num, den int) {
	if num > den {
		num = den
	}
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	s.ratio.Store(uint64(num)<<32 | uint64(den))
	s.count.Store(0)
}

func (s *debugSampler) allow() bool {
	r := s.ratio.Load()
	num, den := r>>32, r&0xffffffff
	if num == 0 || den == 0 {
		return true
	}
	return (s.count.Add(1)-1)%den < num
}
