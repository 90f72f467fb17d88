package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/gobot-ui/core/config"
	coredatabase "github.com/m3rciful/gobot-ui/core/database"
	"github.com/m3rciful/gobot-ui/core/telegram/state"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunMemory(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{Storage: coreconfig.StorageConfig{Driver: coreconfig.StorageMemory}},
		LoggerInit: noLogger,
	})
	require.NoError(t, err)
	defer res.Close()
	assert.IsType(t, &state.MemoryStorage{}, res.Storage)
	assert.Nil(t, res.DB)
}

func TestRunRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &coreconfig.Config{Storage: coreconfig.StorageConfig{
		Driver: coreconfig.StorageRedis,
		Redis:  coreconfig.RedisConfig{Addr: mr.Addr(), Prefix: "ui"},
	}}
	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	defer res.Close()

	key := state.Key{ChatID: 1, UserID: 2}
	require.NoError(t, res.Storage.SetState(context.Background(), key, "menu"))
	got, err := mr.Get("ui:1:2:state")
	require.NoError(t, err)
	assert.Equal(t, "menu", got)
}

func TestRunPostgresFailures(t *testing.T) {
	cfg := &coreconfig.Config{Storage: coreconfig.StorageConfig{
		Driver:   coreconfig.StoragePostgres,
		Postgres: coreconfig.PostgresConfig{Host: "db", Port: "5432", Name: "ui", Migrate: true},
	}}
	boom := errors.New("refused")

	_, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(_ context.Context, dc coredatabase.Config) (*sqlx.DB, error) {
			assert.Equal(t, "ui", dc.Name)
			return nil, boom
		},
	})
	assert.ErrorIs(t, err, boom)

	_, err = Run(context.Background(), Options{Config: cfg, LoggerInit: func(*coreconfig.Config) error { return boom }})
	assert.ErrorIs(t, err, boom)
}
