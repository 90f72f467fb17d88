package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/metrics"
	"github.com/m3rciful/gobot-ui/core/payload"
	"github.com/m3rciful/gobot-ui/core/telegram/callbacks"
	"github.com/m3rciful/gobot-ui/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// CallbackEntry is a callback route: raw callback data accepted by Matcher goes
// to Handler.
type CallbackEntry struct {
	Name    string
	Matcher callbacks.Matcher
	Handler tele.HandlerFunc
}

// StartEntry is a deep-link route: a /start argument that decodes under Schema
// and satisfies Rule (nil accepts all) goes to Handler.
type StartEntry struct {
	Name    string
	Schema  *payload.Schema
	Rule    func(payload.Record) bool
	Handler tele.HandlerFunc
}

// Registry holds bot commands, callback routes and deep-link routes.
type Registry struct {
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	matchers         []CallbackEntry
	starts           []StartEntry
	callbacksMu      sync.RWMutex
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			_ = c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
			return nil
		},
	}
}

// RegisterCommand adds a new command. Invalid and duplicate names are logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil {
		return
	}
	if err := cmd.Validate(name); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", err.Error()),
		)
		return
	}
	name = commands.Normalize(name)
	if _, dup := r.commands[name]; dup {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns the commands sorted by name. With visibleOnly, hidden and
// admin commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if !visibleOnly || cmd.Listed() {
			list = append(list, tele.Command{Text: name, Description: cmd.Description})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves name or one of the aliases to the registered command.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = commands.Normalize(name)
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		if cmd.Answers(name) {
			return key, cmd, true
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback adds a callback handler for an exact key: a telebot unique or
// a whole raw token such as a callbacks.Exact sentinel.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback safely returns handler by key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// RegisterCallbackMatcher adds a callback route tried in registration order after
// exact keys. A *payload.Schema is a Matcher; its routes match when the data fully decodes.
func (r *Registry) RegisterCallbackMatcher(name string, m callbacks.Matcher, handler tele.HandlerFunc) error {
	if r == nil || name == "" || m == nil || handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", name),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	if s, ok := m.(*payload.Schema); ok {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("callback %s: %w", name, err)
		}
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	for _, e := range r.matchers {
		if e.Name == name {
			logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
				slog.String("key", name),
			)
			return fmt.Errorf("callback already registered: %s", name)
		}
	}
	r.matchers = append(r.matchers, CallbackEntry{Name: name, Matcher: m, Handler: handler})
	return nil
}

// MatchCallback resolves callback data: exact keys first, then matchers in order.
func (r *Registry) MatchCallback(data string) (CallbackEntry, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	if h, ok := r.callbacks[data]; ok {
		return CallbackEntry{Name: data, Matcher: callbacks.Exact(data), Handler: h}, true
	}
	for _, e := range r.matchers {
		if e.Matcher.Match(data) {
			return e, true
		}
	}
	return CallbackEntry{}, false
}

// ListCallbacks returns sorted keys and matcher names (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks)+len(r.matchers))
	for k := range r.callbacks {
		names = append(names, k)
	}
	for _, e := range r.matchers {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// RegisterStart adds a deep-link route. Routes are tried in registration order.
func (r *Registry) RegisterStart(name string, s *payload.Schema, rule func(payload.Record) bool, handler tele.HandlerFunc) error {
	if r == nil || name == "" || s == nil || handler == nil {
		return errors.New("invalid start registration")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	for _, e := range r.starts {
		if e.Name == name {
			return fmt.Errorf("start route already registered: %s", name)
		}
	}
	r.starts = append(r.starts, StartEntry{Name: name, Schema: s, Rule: rule, Handler: handler})
	return nil
}

// MatchStart finds the first deep-link route accepting arg. Decode failures are
// treated as no match.
func (r *Registry) MatchStart(arg string) (StartEntry, payload.Record, bool) {
	if arg == "" {
		return StartEntry{}, payload.Record{}, false
	}
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	for _, e := range r.starts {
		rec, err := e.Schema.Decode(arg)
		metrics.RecordDecode("deep_link", err == nil)
		if err != nil {
			continue
		}
		if e.Rule != nil && !e.Rule(rec) {
			continue
		}
		return e, rec, true
	}
	return StartEntry{}, payload.Record{}, false
}

// HasStartRoutes reports whether any deep-link route was registered.
func (r *Registry) HasStartRoutes() bool {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	return len(r.starts) > 0
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets a global fallback handler for unknown text messages.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// InitBotCommands sets the Telegram bot commands shown in the command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	commands := reg.ListCommands(true)
	if err := bot.SetCommands(commands); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
