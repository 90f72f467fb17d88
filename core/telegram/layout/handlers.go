package layout

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrHandlerNotFound reports a layout handler name that was never registered.
var ErrHandlerNotFound = errors.New("layout: handler not found")

// Handlers maps names to layout handlers so they can be stored in FSM data and
// resolved later.
type Handlers struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlers creates an empty registry.
func NewHandlers() *Handlers {
	return &Handlers{handlers: make(map[string]Handler)}
}

// Add registers h under name, replacing an earlier registration.
func (r *Handlers) Add(name string, h Handler) {
	if name == "" || h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Get resolves name.
func (r *Handlers) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	return h, nil
}

// Has reports whether name is registered.
func (r *Handlers) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Handlers) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
