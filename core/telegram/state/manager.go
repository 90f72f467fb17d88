package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/gobot-ui/core/logger"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Manager routes text updates of conversations in progress to per-state handlers.
type Manager struct {
	storage  Storage
	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewManager builds a Manager on top of st.
func NewManager(st Storage) *Manager {
	return &Manager{storage: st, handlers: make(map[State]tele.HandlerFunc)}
}

// Storage returns the backing storage.
func (m *Manager) Storage() Storage { return m.storage }

// RegisterHandler associates a state with its handler.
func (m *Manager) RegisterHandler(st State, h tele.HandlerFunc) {
	if h == nil || st == StateIdle {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

// InProgress reports whether the update's conversation has an active state.
func (m *Manager) InProgress(c tele.Context) bool {
	key, err := KeyOf(c)
	if err != nil {
		return false
	}
	st, err := m.storage.State(tghelpers.BuildContext(c), key)
	if err != nil {
		logger.Warn(tghelpers.BuildContext(c), "state", "fsm.lookup_failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return false
	}
	return st != StateIdle
}

// Dispatch executes the handler registered for the conversation's current state, if any.
func (m *Manager) Dispatch(c tele.Context) error {
	key, err := KeyOf(c)
	if err != nil {
		return err
	}
	ctx := tghelpers.BuildContext(c)
	current, err := m.storage.State(ctx, key)
	if err != nil {
		return err
	}
	m.mu.RLock()
	handler, ok := m.handlers[current]
	m.mu.RUnlock()

	status := "ok"
	if !ok {
		status = "skip"
	}
	logger.Debug(ctx, "state", "fsm.dispatch",
		slog.String("status", status),
		slog.String("state", string(current)),
	)
	if !ok {
		return nil
	}
	return handler(c)
}
