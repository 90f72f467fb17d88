package layout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/gobot-ui/core/telegram/state"
)

// LayoutKeyPrefix marks data keys owned by the layout machinery.
const LayoutKeyPrefix = state.LayoutKeyPrefix

const nextCallbackKey = "next_callback"

// ErrNoNextCallback is returned by PopNextCallback when nothing was scheduled.
var ErrNoNextCallback = errors.New("layout: no next callback")

// FSM is a per-update view over state storage. User data and layout data live in
// the same document; layout keys carry LayoutKeyPrefix and are hidden from Data.
type FSM struct {
	storage  state.Storage
	key      state.Key
	cache    *state.Cache
	handlers *Handlers
}

// NewFSM builds a view for key. A nil cache uses state.SharedCache.
func NewFSM(s state.Storage, key state.Key, cache *state.Cache, handlers *Handlers) *FSM {
	if cache == nil {
		cache = state.SharedCache()
	}
	if handlers == nil {
		handlers = NewHandlers()
	}
	return &FSM{storage: s, key: key, cache: cache, handlers: handlers}
}

// Key returns the conversation key.
func (f *FSM) Key() state.Key { return f.key }

// State returns the current state.
func (f *FSM) State(ctx context.Context) (state.State, error) {
	return f.storage.State(ctx, f.key)
}

// SetState moves the conversation to st.
func (f *FSM) SetState(ctx context.Context, st state.State) error {
	return f.storage.SetState(ctx, f.key, st)
}

func (f *FSM) all(ctx context.Context) (state.Data, error) {
	return f.cache.Load(ctx, f.storage, f.key)
}

func (f *FSM) store(ctx context.Context, d state.Data) error {
	if err := f.storage.SetData(ctx, f.key, d); err != nil {
		f.cache.Forget(f.key)
		return err
	}
	f.cache.Put(f.key, d)
	return nil
}

func (f *FSM) merge(ctx context.Context, patch state.Data) (state.Data, error) {
	d, err := f.storage.UpdateData(ctx, f.key, patch)
	if err != nil {
		f.cache.Forget(f.key)
		return nil, err
	}
	f.cache.Put(f.key, d)
	return d, nil
}

// split separates user keys from layout keys; layout keys lose their prefix.
func split(d state.Data) (user, lt state.Data) {
	user, lt = state.Data{}, state.Data{}
	for k, v := range d {
		if name, ok := strings.CutPrefix(k, LayoutKeyPrefix); ok {
			lt[name] = v
			continue
		}
		user[k] = v
	}
	return user, lt
}

func join(user, lt state.Data) state.Data {
	out := make(state.Data, len(user)+len(lt))
	for k, v := range user {
		if !strings.HasPrefix(k, LayoutKeyPrefix) {
			out[k] = v
		}
	}
	for k, v := range lt {
		out[LayoutKeyPrefix+k] = v
	}
	return out
}

// Data returns the user data.
func (f *FSM) Data(ctx context.Context) (state.Data, error) {
	d, err := f.all(ctx)
	if err != nil {
		return nil, err
	}
	user, _ := split(d)
	return user, nil
}

// SetData replaces the user data. Layout data is preserved.
func (f *FSM) SetData(ctx context.Context, data state.Data) error {
	d, err := f.all(ctx)
	if err != nil {
		return err
	}
	_, lt := split(d)
	return f.store(ctx, join(data, lt))
}

// UpdateData merges patch into the user data and returns the result. Keys that
// look like layout keys are ignored.
func (f *FSM) UpdateData(ctx context.Context, patch state.Data) (state.Data, error) {
	d, err := f.merge(ctx, join(patch, nil))
	if err != nil {
		return nil, err
	}
	user, _ := split(d)
	return user, nil
}

// Clear resets the state and the user data; layout data survives.
func (f *FSM) Clear(ctx context.Context) error {
	if err := f.SetState(ctx, state.StateIdle); err != nil {
		return err
	}
	return f.SetData(ctx, nil)
}

// Drop resets everything, layout data included.
func (f *FSM) Drop(ctx context.Context) error {
	if err := f.SetState(ctx, state.StateIdle); err != nil {
		return err
	}
	return f.store(ctx, state.Data{})
}

// LayoutData returns the layout data with prefixes stripped.
func (f *FSM) LayoutData(ctx context.Context) (state.Data, error) {
	d, err := f.all(ctx)
	if err != nil {
		return nil, err
	}
	_, lt := split(d)
	return lt, nil
}

// UpdateLayoutData merges patch into the layout data.
func (f *FSM) UpdateLayoutData(ctx context.Context, patch state.Data) (state.Data, error) {
	d, err := f.merge(ctx, join(nil, patch))
	if err != nil {
		return nil, err
	}
	_, lt := split(d)
	return lt, nil
}

// SetLayoutData replaces the layout data. User data is preserved.
func (f *FSM) SetLayoutData(ctx context.Context, data state.Data) error {
	d, err := f.all(ctx)
	if err != nil {
		return err
	}
	user, _ := split(d)
	return f.store(ctx, join(user, data))
}

// SetNextCallback schedules the handler registered under name for the next update.
func (f *FSM) SetNextCallback(ctx context.Context, name string) error {
	if !f.handlers.Has(name) {
		return fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	_, err := f.UpdateLayoutData(ctx, state.Data{nextCallbackKey: name})
	return err
}

// PopNextCallback removes the scheduled handler and returns it.
func (f *FSM) PopNextCallback(ctx context.Context) (Handler, error) {
	d, err := f.all(ctx)
	if err != nil {
		return nil, err
	}
	user, lt := split(d)
	name, _ := lt[nextCallbackKey].(string)
	if name == "" {
		return nil, ErrNoNextCallback
	}
	delete(lt, nextCallbackKey)
	if err := f.store(ctx, join(user, lt)); err != nil {
		return nil, err
	}
	return f.handlers.Get(name)
}
