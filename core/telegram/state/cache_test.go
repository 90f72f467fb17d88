package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStorage struct {
	*MemoryStorage
	reads int
	fail  error
}

func (c *countingStorage) Data(ctx context.Context, key Key) (Data, error) {
	c.reads++
	if c.fail != nil {
		return nil, c.fail
	}
	return c.MemoryStorage.Data(ctx, key)
}

func TestCacheLoadReadsThroughOnce(t *testing.T) {
	ctx := context.Background()
	backing := &countingStorage{MemoryStorage: NewMemoryStorage()}
	key := Key{ChatID: 1, UserID: 1}
	require.NoError(t, backing.SetData(ctx, key, Data{"k": "v"}))

	c := NewCache(4, time.Hour)
	for i := 0; i < 3; i++ {
		d, err := c.Load(ctx, backing, key)
		require.NoError(t, err)
		assert.Equal(t, Data{"k": "v"}, d)
	}
	assert.Equal(t, 1, backing.reads)

	c.Forget(key)
	_, err := c.Load(ctx, backing, key)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.reads)
}

func TestCacheLoadError(t *testing.T) {
	boom := errors.New("boom")
	backing := &countingStorage{MemoryStorage: NewMemoryStorage(), fail: boom}
	c := NewCache(4, time.Hour)

	_, err := c.Load(context.Background(), backing, Key{UserID: 1})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len(), "failed reads are not cached")
}

func TestCacheCapacity(t *testing.T) {
	c := NewCache(2, time.Hour)
	for i := int64(1); i <= 3; i++ {
		c.Put(Key{UserID: i}, Data{"i": i})
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(Key{UserID: 1})
	assert.False(t, ok, "least recently used key is evicted")
}

func TestCacheCopies(t *testing.T) {
	c := NewCache(0, 0)
	key := Key{UserID: 7}
	src := Data{"a": "1"}
	c.Put(key, src)
	src["a"] = "2"

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "1", got["a"])
}

func TestContextKeepsLayoutKeys(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	key := Key{ChatID: 2, UserID: 2}
	require.NoError(t, storage.SetData(ctx, key, Data{"name": "Ann", LayoutKeyPrefix + "screen": "menu"}))

	sc := &Context{Storage: storage, Key: key, Cache: NewCache(8, 0)}
	d, err := sc.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, Data{"name": "Ann"}, d)

	merged, err := sc.UpdateData(ctx, Data{"age": 3, LayoutKeyPrefix + "screen": "x"})
	require.NoError(t, err)
	assert.Equal(t, Data{"name": "Ann", "age": 3}, merged)

	require.NoError(t, sc.SetState(ctx, "await_name"))
	require.NoError(t, sc.Clear(ctx))
	raw, err := storage.Data(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, Data{LayoutKeyPrefix + "screen": "menu"}, raw)
	st, _ := sc.State(ctx)
	assert.Equal(t, StateIdle, st)
}
