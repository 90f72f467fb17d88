package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/gobot-ui/core/config"
	coretelegram "github.com/m3rciful/gobot-ui/core/telegram"
)

type stubApp struct {
	started, stopped int
}

func (a *stubApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.started++; return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { a.stopped++; return nil },
	}, nil
}

func TestRunContextWiresHooks(t *testing.T) {
	t.Setenv("UIDEMO_CONFIG", "from-env.yaml")
	app := &stubApp{}
	var loaded string
	err := RunContext(context.Background(), Options{
		ConfigEnvVar:      "UIDEMO_CONFIG",
		DefaultConfigPath: "ignored.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return &coreconfig.Config{}, nil
		},
		Bootstrap:      func(context.Context, ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, o coretelegram.RunOptions) error {
			require.NoError(t, o.OnStart(ctx, coretelegram.Runtime{}))
			return o.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	require.Equal(t, "from-env.yaml", loaded)
	require.Equal(t, 1, app.started)
	require.Equal(t, 1, app.stopped)
}

func TestRunContextErrors(t *testing.T) {
	require.ErrorIs(t, RunContext(context.Background(), Options{}), errNoLoader)

	load := func(string) (ConfigCarrier, error) { return &coreconfig.Config{}, nil }
	require.ErrorIs(t, RunContext(context.Background(), Options{LoadConfig: load}), errNoBootstrap)

	t.Setenv(defaultConfigEnv, "")
	err := RunContext(context.Background(), Options{
		LoadConfig: load,
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	require.ErrorContains(t, err, "CONFIG_PATH")

	boom := errors.New("boom")
	err = RunContext(context.Background(), Options{
		DefaultConfigPath: "x.yaml",
		LoadConfig:        load,
		Bootstrap:         func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
}
