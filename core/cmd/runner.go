// Package cmd is the shared entry point of bot binaries: it loads the config,
// bootstraps the application and runs the Telegram runtime until SIGINT/SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/gobot-ui/core/config"
	"github.com/m3rciful/gobot-ui/core/logger"
	coretelegram "github.com/m3rciful/gobot-ui/core/telegram"
)

const defaultConfigEnv = "CONFIG_PATH"

// ConfigCarrier exposes access to the embedded core configuration.
// *coreconfig.Config is its own carrier.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is what Bootstrap returns: something able to describe its bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wire a binary. LoadConfig and Bootstrap are required; the rest have defaults.
type Options struct {
	// ConfigEnvVar names the variable holding the config path (CONFIG_PATH).
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

var (
	errNoLoader    = errors.New("cmd: LoadConfig is required")
	errNoBootstrap = errors.New("cmd: Bootstrap is required")
)

func (o Options) configPath() (string, error) {
	env := o.ConfigEnvVar
	if env == "" {
		env = defaultConfigEnv
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if o.DefaultConfigPath != "" {
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: set %s or DefaultConfigPath", env)
}

// Run loads the config, bootstraps the app and blocks in the bot runtime.
func Run(opts Options) error {
	return RunContext(context.Background(), opts)
}

// RunContext is Run with a parent context; the bot also stops on SIGINT/SIGTERM.
func RunContext(parent context.Context, opts Options) error {
	switch {
	case opts.LoadConfig == nil:
		return errNoLoader
	case opts.Bootstrap == nil:
		return errNoBootstrap
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	// The structured logger is configured by LoadConfig, so this line goes to the std logger.
	log.Printf("loading config: %s", path)
	carrier, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if carrier == nil || carrier.CoreConfig() == nil {
		return errors.New("cmd: loaded config has no core section")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	app, err := opts.Bootstrap(ctx, carrier)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	closeLogger := opts.ShutdownLogger
	if closeLogger == nil {
		closeLogger = logger.Shutdown
	}
	defer func() {
		if err := closeLogger(); err != nil {
			log.Printf("logger shutdown: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	withLifecycleLogs(&runOpts, started)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// withLifecycleLogs logs app.ready after the app's own OnStart and app.shutdown
// before its OnStop.
func withLifecycleLogs(o *coretelegram.RunOptions, started time.Time) {
	onStart, onStop := o.OnStart, o.OnStop
	o.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.Duration("startup", time.Since(started)),
		}
		if rt.Registry != nil {
			attrs = append(attrs, slog.Int("callbacks", len(rt.Registry.ListCallbacks())))
		}
		logger.Info(ctx, "app", "ready", attrs...)
		return nil
	}
	o.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}
