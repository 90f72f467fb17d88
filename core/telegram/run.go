package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/gobot-ui/core/config"
	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/metrics"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"
	tgsender "github.com/m3rciful/gobot-ui/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route
	// Wire runs once the bot exists (its identity is known) and may add
	// middlewares and routes that depend on it, such as layout rendering.
	Wire func(ctx context.Context, bot *tele.Bot, reg *Registry) ([]Middleware, []Route, error)

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	poller := NewPoller(cfg)
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: NewAPIClient(),
	}

	buildStart := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	useHelperDispatcher := !opts.DisableHelperDispatcher
	if useHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	release := func() {
		dispatcher.Close()
		if useHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	rt := Runtime{
		Bot:        bot,
		Dispatcher: dispatcher,
		Registry:   reg,
	}

	logMode(ctx, poller, buildTook)
	if _, polling := poller.(*tele.LongPoller); polling && !opts.DisableWebhookCleanup {
		// A webhook left over from an earlier deployment blocks getUpdates.
		if err := bot.RemoveWebhook(false); err != nil {
			logger.Warn(ctx, "tg", "webhook.remove", slog.String("err", err.Error()))
		} else {
			logger.Debug(ctx, "tg", "webhook.remove", slog.String("status", "ok"))
		}
	}

	mws, routes := opts.Middlewares, opts.Routes
	if opts.Wire != nil {
		extraMws, extraRoutes, err := opts.Wire(ctx, bot, reg)
		if err != nil {
			release()
			return fmt.Errorf("telegram: wiring failed: %w", err)
		}
		mws = append(append([]Middleware(nil), mws...), extraMws...)
		routes = append(append([]Route(nil), routes...), extraRoutes...)
	}

	for _, mw := range mws {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}

	for _, route := range routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
	}
	logger.TWire.Info("tg.wire",
		slog.String("event", "routes"),
		slog.Int("middlewares", len(mws)),
		slog.Int("routes", len(routes)),
	)

	InitBotCommands(bot, reg)

	stopMetrics := serveMetrics(cfg.Metrics)
	defer stopMetrics()

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()

	var runErr error
	select {
	case <-stopped:
	case <-ctx.Done():
		bot.Stop()
		<-stopped
		if err := ctx.Err(); !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	if opts.OnStop != nil {
		// ctx is already done here; hooks get a fresh one carrying its values.
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			runErr = err
		}
	}
	release()
	return runErr
}

func logMode(ctx context.Context, poller tele.Poller, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(took))}
	switch p := poller.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("poll_timeout", p.Timeout),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode", attrs...)
}

// serveMetrics exposes Prometheus metrics when a listen address is configured.
// The returned function shuts the server down.
func serveMetrics(mc coreconfig.MetricsConfig) func() {
	if mc.Listen == "" {
		return func() {}
	}
	metrics.Init()
	path := mc.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	srv := &http.Server{Addr: mc.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.TG.Error("metrics server failed",
				slog.String("event", "metrics.serve"),
				slog.String("listen", mc.Listen),
				slog.String("err", err.Error()),
			)
		}
	}()
	logger.TG.Info("metrics server started",
		slog.String("event", "metrics.serve"),
		slog.String("listen", mc.Listen),
	)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
