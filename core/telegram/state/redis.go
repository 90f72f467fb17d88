package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "fsm"
	updateRetries      = 5
)

// RedisOptions configures RedisStorage.
type RedisOptions struct {
	// Prefix namespaces the keys; defaults to "fsm".
	Prefix string
	// StateTTL and DataTTL expire idle conversations. Zero keeps them forever.
	StateTTL time.Duration
	DataTTL  time.Duration
}

// RedisStorage stores state as a plain string and data as a JSON document.
type RedisStorage struct {
	rdb  redis.UniversalClient
	opts RedisOptions
}

// NewRedisStorage wraps an existing client. The storage owns the client and closes it.
func NewRedisStorage(rdb redis.UniversalClient, opts RedisOptions) *RedisStorage {
	if opts.Prefix == "" {
		opts.Prefix = defaultRedisPrefix
	}
	return &RedisStorage{rdb: rdb, opts: opts}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int, opts RedisOptions) (*RedisStorage, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStorage(rdb, opts), nil
}

func (r *RedisStorage) key(k Key, part string) string {
	return r.opts.Prefix + ":" + k.String() + ":" + part
}

// State returns the stored state or StateIdle.
func (r *RedisStorage) State(ctx context.Context, key Key) (State, error) {
	v, err := r.rdb.Get(ctx, r.key(key, "state")).Result()
	if errors.Is(err, redis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, fmt.Errorf("redis get state: %w", err)
	}
	return State(v), nil
}

// SetState stores st; StateIdle deletes the key.
func (r *RedisStorage) SetState(ctx context.Context, key Key, st State) error {
	k := r.key(key, "state")
	var err error
	if st == StateIdle {
		err = r.rdb.Del(ctx, k).Err()
	} else {
		err = r.rdb.Set(ctx, k, string(st), r.opts.StateTTL).Err()
	}
	if err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}

// Data returns the stored data or an empty map.
func (r *RedisStorage) Data(ctx context.Context, key Key) (Data, error) {
	return readData(ctx, r.rdb, r.key(key, "data"))
}

// SetData replaces the stored data; empty data deletes the key.
func (r *RedisStorage) SetData(ctx context.Context, key Key, data Data) error {
	return writeData(ctx, r.rdb, r.key(key, "data"), data, r.opts.DataTTL)
}

// UpdateData merges patch inside a WATCH transaction, retrying on concurrent writes.
func (r *RedisStorage) UpdateData(ctx context.Context, key Key, patch Data) (Data, error) {
	k := r.key(key, "data")
	var out Data
	txf := func(tx *redis.Tx) error {
		cur, err := readData(ctx, tx, k)
		if err != nil {
			return err
		}
		for name, v := range patch {
			cur[name] = v
		}
		raw, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("encode data: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, raw, r.opts.DataTTL)
			return nil
		})
		if err == nil {
			out = cur
		}
		return err
	}
	for i := 0; i < updateRetries; i++ {
		err := r.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis update data: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("redis update data: %w", redis.TxFailedErr)
}

// Close closes the underlying client.
func (r *RedisStorage) Close() error {
	return r.rdb.Close()
}

func readData(ctx context.Context, c redis.Cmdable, k string) (Data, error) {
	raw, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return Data{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get data: %w", err)
	}
	out := Data{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return out, nil
}

func writeData(ctx context.Context, c redis.Cmdable, k string, data Data, ttl time.Duration) error {
	if len(data) == 0 {
		if err := c.Del(ctx, k).Err(); err != nil {
			return fmt.Errorf("redis del data: %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	if err := c.Set(ctx, k, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set data: %w", err)
	}
	return nil
}
