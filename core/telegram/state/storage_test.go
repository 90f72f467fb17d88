package state

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStorageSuite(t *testing.T, st Storage) {
	t.Helper()
	ctx := context.Background()
	key := Key{ChatID: -100, UserID: 42}
	other := Key{ChatID: -100, UserID: 43}

	t.Run("unknown key is idle and empty", func(t *testing.T) {
		s, err := st.State(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, s)

		d, err := st.Data(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, d)
	})

	t.Run("state round trip", func(t *testing.T) {
		require.NoError(t, st.SetState(ctx, key, "order:qty"))
		s, err := st.State(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, State("order:qty"), s)

		s, err = st.State(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, s, "keys must not leak into each other")

		require.NoError(t, st.SetState(ctx, key, StateIdle))
		s, err = st.State(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, s)
	})

	t.Run("set and update data", func(t *testing.T) {
		require.NoError(t, st.SetData(ctx, key, Data{"a": "1", "b": "2"}))

		merged, err := st.UpdateData(ctx, key, Data{"b": "3", "c": "4"})
		require.NoError(t, err)
		assert.Equal(t, Data{"a": "1", "b": "3", "c": "4"}, merged)

		d, err := st.Data(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, merged, d)
	})

	t.Run("returned data is a copy", func(t *testing.T) {
		d, err := st.Data(ctx, key)
		require.NoError(t, err)
		d["a"] = "mutated"

		again, err := st.Data(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "1", again["a"])
	})

	t.Run("replace with empty data", func(t *testing.T) {
		require.NoError(t, st.SetData(ctx, key, Data{}))
		d, err := st.Data(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, d)
	})
}

func TestMemoryStorage(t *testing.T) {
	st := NewMemoryStorage()
	runStorageSuite(t, st)
	assert.Zero(t, st.Len(), "idle sessions without data are collected")
	require.NoError(t, st.Close())
}

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := NewRedisStorage(rdb, RedisOptions{Prefix: "test", DataTTL: time.Hour})
	t.Cleanup(func() { _ = st.Close() })

	runStorageSuite(t, st)

	ctx := context.Background()
	key := Key{ChatID: 1, UserID: 2}
	_, err := st.UpdateData(ctx, key, Data{"x": "y"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:1:2:data"))
	assert.Equal(t, time.Hour, mr.TTL("test:1:2:data"))

	mr.FastForward(2 * time.Hour)
	d, err := st.Data(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, d, "data expires with its TTL")
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("GOBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GOBOT_TEST_POSTGRES_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TEMP TABLE fsm_state (
		chat_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		state TEXT NOT NULL DEFAULT '',
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (chat_id, user_id))`)
	require.NoError(t, err)

	st := NewPostgresStorage(db)
	t.Cleanup(func() { _ = st.Close() })
	runStorageSuite(t, st)
}
