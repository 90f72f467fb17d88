package state

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/gobot-ui/core/logger"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "fsm_context"

// Context is the FSM view of one conversation, bound to a storage and key. Data
// goes through Cache (SharedCache when nil) so it stays coherent with other views
// of the same key. Keys carrying LayoutKeyPrefix are hidden and left untouched.
type Context struct {
	Storage Storage
	Key     Key
	Cache   *Cache
}

func (f *Context) cache() *Cache {
	if f.Cache == nil {
		return SharedCache()
	}
	return f.Cache
}

// State returns the conversation state.
func (f *Context) State(ctx context.Context) (State, error) {
	return f.Storage.State(ctx, f.Key)
}

// SetState moves the conversation to st.
func (f *Context) SetState(ctx context.Context, st State) error {
	return f.Storage.SetState(ctx, f.Key, st)
}

// Data returns the conversation data.
func (f *Context) Data(ctx context.Context) (Data, error) {
	d, err := f.cache().Load(ctx, f.Storage, f.Key)
	if err != nil {
		return nil, err
	}
	return withoutReserved(d), nil
}

// SetData replaces the conversation data.
func (f *Context) SetData(ctx context.Context, data Data) error {
	cur, err := f.cache().Load(ctx, f.Storage, f.Key)
	if err != nil {
		return err
	}
	next := withoutReserved(data)
	for k, v := range cur {
		if strings.HasPrefix(k, LayoutKeyPrefix) {
			next[k] = v
		}
	}
	if err := f.Storage.SetData(ctx, f.Key, next); err != nil {
		f.cache().Forget(f.Key)
		return err
	}
	f.cache().Put(f.Key, next)
	return nil
}

// UpdateData merges patch into the conversation data.
func (f *Context) UpdateData(ctx context.Context, patch Data) (Data, error) {
	d, err := f.Storage.UpdateData(ctx, f.Key, withoutReserved(patch))
	if err != nil {
		f.cache().Forget(f.Key)
		return nil, err
	}
	f.cache().Put(f.Key, d)
	return withoutReserved(d), nil
}

// Clear resets state and data.
func (f *Context) Clear(ctx context.Context) error {
	if err := f.Storage.SetState(ctx, f.Key, StateIdle); err != nil {
		return err
	}
	return f.SetData(ctx, nil)
}

// WithSessionCache is WithSession with an explicit data cache.
func WithSessionCache(st Storage, cache *Cache) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			key, err := KeyOf(c)
			if err != nil {
				logger.LogEvent(tghelpers.BuildContext(c), logger.STATE, slog.LevelDebug, "fsm.no_key",
					slog.String("status", "skip"),
				)
				return next(c)
			}
			c.Set(contextKey, &Context{Storage: st, Key: key, Cache: cache})
			return next(c)
		}
	}
}

// WithSession injects an FSM Context for the update's key into the handler context.
// Updates without a key pass through untouched.
func WithSession(st Storage) tele.MiddlewareFunc {
	return WithSessionCache(st, nil)
}

// FromContext returns the FSM Context injected by WithSession.
func FromContext(c tele.Context) (*Context, bool) {
	f, ok := c.Get(contextKey).(*Context)
	return f, ok && f != nil
}
