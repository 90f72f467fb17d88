package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/gobot-ui/core/telegram/keyboard"
	"github.com/m3rciful/gobot-ui/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const botID = 100

type call struct {
	op   string
	chat int64
	text string
	kb   bool
}

type fakeBot struct {
	calls  []call
	nextID int
	err    error
}

func markupOf(opts []interface{}) bool {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok && so.ReplyMarkup != nil {
			return true
		}
	}
	return false
}

func (b *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if b.err != nil {
		return nil, b.err
	}
	chat := to.(*tele.Chat)
	b.nextID++
	b.calls = append(b.calls, call{op: "send", chat: chat.ID, text: what.(string), kb: markupOf(opts)})
	return &tele.Message{ID: b.nextID, Chat: chat, Sender: &tele.User{ID: botID}, Text: what.(string)}, nil
}

func (b *fakeBot) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := msg.(*tele.Message)
	b.calls = append(b.calls, call{op: "edit", chat: m.Chat.ID, text: what.(string), kb: markupOf(opts)})
	out := *m
	out.Text = what.(string)
	return &out, nil
}

type fakeContext struct {
	tele.Context
	upd  tele.Update
	vals map[string]any
}

func (f *fakeContext) Update() tele.Update       { return f.upd }
func (f *fakeContext) Message() *tele.Message    { return f.upd.Message }
func (f *fakeContext) Callback() *tele.Callback  { return f.upd.Callback }
func (f *fakeContext) Get(key string) any        { return f.vals[key] }
func (f *fakeContext) Set(key string, v any)     { f.vals[key] = v }
func (f *fakeContext) Chat() *tele.Chat {
	if m := f.upd.Message; m != nil {
		return m.Chat
	}
	if cb := f.upd.Callback; cb != nil && cb.Message != nil {
		return cb.Message.Chat
	}
	return nil
}

func (f *fakeContext) Sender() *tele.User {
	if m := f.upd.Message; m != nil {
		return m.Sender
	}
	if cb := f.upd.Callback; cb != nil {
		return cb.Sender
	}
	return nil
}

func userMessage(text string) *fakeContext {
	return &fakeContext{
		upd: tele.Update{ID: 1, Message: &tele.Message{
			ID: 10, Text: text,
			Sender: &tele.User{ID: 7},
			Chat:   &tele.Chat{ID: 7},
		}},
		vals: map[string]any{},
	}
}

func buttonPress(data string) *fakeContext {
	return &fakeContext{
		upd: tele.Update{ID: 2, Callback: &tele.Callback{
			Data:   data,
			Sender: &tele.User{ID: 7},
			Message: &tele.Message{
				ID: 11, Text: "menu",
				Sender: &tele.User{ID: botID},
				Chat:   &tele.Chat{ID: 7},
			},
		}},
		vals: map[string]any{},
	}
}

func menu(title string) *TextLayout {
	return Text(title, keyboard.Build(keyboard.B("Next", keyboard.Callback("next"))))
}

func TestTextLayoutSetSendsToUserMessage(t *testing.T) {
	bot := &fakeBot{}
	msg, edited, err := menu("hello").Set(bot, botID, userMessage("/start").Message())
	require.NoError(t, err)
	assert.False(t, edited)
	assert.Equal(t, []call{{op: "send", chat: 7, text: "hello", kb: true}}, bot.calls)
	assert.Equal(t, "hello", msg.Text)
}

func TestTextLayoutSetEditsOwnMessage(t *testing.T) {
	bot := &fakeBot{}
	_, edited, err := Text("plain", keyboard.Grid{}).Set(bot, botID, buttonPress("x").Callback().Message)
	require.NoError(t, err)
	assert.True(t, edited)
	assert.Equal(t, []call{{op: "edit", chat: 7, text: "plain"}}, bot.calls)
}

func TestTextLayoutNoChat(t *testing.T) {
	bot := &fakeBot{}
	_, _, err := menu("x").Set(bot, botID, nil)
	assert.ErrorIs(t, err, ErrNoChat)
	_, err = menu("x").SendTo(bot, nil)
	assert.ErrorIs(t, err, ErrNoChat)
	assert.Empty(t, bot.calls)
}

func TestContextStack(t *testing.T) {
	bot := &fakeBot{}
	c := userMessage("/start")
	lc := NewContext(c, bot, botID, NewHandlers())
	assert.True(t, lc.IsOriginal())

	first, err := lc.Set(menu("one"))
	require.NoError(t, err)
	assert.False(t, lc.IsOriginal())
	assert.Same(t, first, lc.Current())

	// The second render replaces the bot's own message.
	_, err = lc.Set(menu("two"))
	require.NoError(t, err)
	_, err = lc.Send(menu("three"))
	require.NoError(t, err)
	_, err = lc.SendTo(menu("four"), &tele.Chat{ID: 99})
	require.NoError(t, err)

	assert.Equal(t, []call{
		{op: "send", chat: 7, text: "one", kb: true},
		{op: "edit", chat: 7, text: "two", kb: true},
		{op: "send", chat: 7, text: "three", kb: true},
		{op: "send", chat: 99, text: "four", kb: true},
	}, bot.calls)
	assert.Equal(t, 4, c.vals["messages"])
}

func TestContextRenderError(t *testing.T) {
	bot := &fakeBot{err: errors.New("forbidden")}
	lc := NewContext(userMessage("hi"), bot, botID, NewHandlers())
	_, err := lc.Set(menu("x"))
	require.Error(t, err)
	assert.True(t, lc.IsOriginal())
}

func TestHandlersRegistry(t *testing.T) {
	hs := NewHandlers()
	hs.Add("b", func(tele.Context) (Result, error) { return nil, nil })
	hs.Add("a", func(tele.Context) (Result, error) { return nil, nil })
	hs.Add("", func(tele.Context) (Result, error) { return nil, nil })

	assert.Equal(t, []string{"a", "b"}, hs.Names())
	assert.True(t, hs.Has("a"))
	_, err := hs.Get("missing")
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestMiddlewareHandleRendersAndRedirects(t *testing.T) {
	bot := &fakeBot{}
	m := &Middleware{Bot: bot, BotID: botID, Storage: state.NewMemoryStorage(), Cache: state.NewCache(8, 0)}
	m.Named("home", func(tele.Context) (Result, error) { return menu("home"), nil })
	back := m.Handle(func(tele.Context) (Result, error) { return Redirect("home"), nil })

	c := buttonPress("back")
	require.NoError(t, m.Use(back)(c))
	assert.Equal(t, []call{{op: "edit", chat: 7, text: "home", kb: true}}, bot.calls)

	_, ok := FSMFrom(c)
	assert.True(t, ok)
	_, ok = ContextFrom(c)
	assert.True(t, ok)
}

func TestMiddlewareRedirectErrors(t *testing.T) {
	bot := &fakeBot{}
	m := &Middleware{Bot: bot, BotID: botID}
	m.Named("loop", func(tele.Context) (Result, error) { return Redirect("loop"), nil })

	err := m.Use(m.Handle(func(tele.Context) (Result, error) { return Redirect("loop"), nil }))(userMessage("x"))
	assert.ErrorIs(t, err, ErrRedirectLoop)

	err = m.Use(m.Handle(func(tele.Context) (Result, error) { return Redirect("nowhere"), nil }))(userMessage("x"))
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	var nothing *TextLayout
	err = m.Use(m.Handle(func(tele.Context) (Result, error) { return nothing, nil }))(userMessage("x"))
	assert.NoError(t, err)
	assert.Empty(t, bot.calls)
}

func newFSM(t *testing.T) (*FSM, state.Storage) {
	t.Helper()
	storage := state.NewMemoryStorage()
	hs := NewHandlers()
	hs.Add("confirm", func(tele.Context) (Result, error) { return menu("confirmed"), nil })
	return NewFSM(storage, state.Key{ChatID: 1, UserID: 1}, state.NewCache(8, 0), hs), storage
}

func TestFSMSeparatesLayoutData(t *testing.T) {
	ctx := context.Background()
	f, storage := newFSM(t)

	require.NoError(t, f.SetLayoutData(ctx, state.Data{"screen": "menu"}))
	require.NoError(t, f.SetData(ctx, state.Data{"name": "Ann"}))

	user, err := f.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Data{"name": "Ann"}, user)

	lt, err := f.LayoutData(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Data{"screen": "menu"}, lt)

	raw, err := storage.Data(ctx, f.Key())
	require.NoError(t, err)
	assert.Equal(t, state.Data{"name": "Ann", LayoutKeyPrefix + "screen": "menu"}, raw)

	merged, err := f.UpdateData(ctx, state.Data{"age": 30, LayoutKeyPrefix + "screen": "hacked"})
	require.NoError(t, err)
	assert.Equal(t, state.Data{"name": "Ann", "age": 30}, merged)

	lt, err = f.UpdateLayoutData(ctx, state.Data{"page": 2})
	require.NoError(t, err)
	assert.Equal(t, state.Data{"screen": "menu", "page": 2}, lt)
}

func TestFSMClearKeepsLayoutDropDoesNot(t *testing.T) {
	ctx := context.Background()
	f, _ := newFSM(t)

	require.NoError(t, f.SetState(ctx, "await_name"))
	require.NoError(t, f.SetData(ctx, state.Data{"name": "Ann"}))
	require.NoError(t, f.SetLayoutData(ctx, state.Data{"screen": "menu"}))

	require.NoError(t, f.Clear(ctx))
	st, err := f.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.StateIdle, st)
	user, _ := f.Data(ctx)
	assert.Empty(t, user)
	lt, _ := f.LayoutData(ctx)
	assert.Equal(t, state.Data{"screen": "menu"}, lt)

	require.NoError(t, f.Drop(ctx))
	lt, _ = f.LayoutData(ctx)
	assert.Empty(t, lt)
}

func TestFSMNextCallback(t *testing.T) {
	ctx := context.Background()
	f, _ := newFSM(t)

	_, err := f.PopNextCallback(ctx)
	assert.ErrorIs(t, err, ErrNoNextCallback)

	assert.ErrorIs(t, f.SetNextCallback(ctx, "unknown"), ErrHandlerNotFound)
	require.NoError(t, f.SetNextCallback(ctx, "confirm"))

	h, err := f.PopNextCallback(ctx)
	require.NoError(t, err)
	res, err := h(nil)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", res.(*TextLayout).Text)

	_, err = f.PopNextCallback(ctx)
	assert.ErrorIs(t, err, ErrNoNextCallback)
}

func TestFSMAndSessionViewsStayCoherent(t *testing.T) {
	ctx := context.Background()
	storage := state.NewMemoryStorage()
	cache := state.NewCache(8, 0)
	key := state.Key{ChatID: 1, UserID: 1}
	f := NewFSM(storage, key, cache, nil)
	sc := &state.Context{Storage: storage, Key: key, Cache: cache}

	_, err := f.UpdateData(ctx, state.Data{"step": "one"})
	require.NoError(t, err)
	_, err = f.UpdateLayoutData(ctx, state.Data{"screen": "menu"})
	require.NoError(t, err)

	require.NoError(t, sc.Clear(ctx))
	user, err := f.Data(ctx)
	require.NoError(t, err)
	assert.Empty(t, user)
	lt, err := f.LayoutData(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Data{"screen": "menu"}, lt)

	_, err = sc.UpdateData(ctx, state.Data{"step": "two"})
	require.NoError(t, err)
	user, _ = f.Data(ctx)
	assert.Equal(t, state.Data{"step": "two"}, user)

	require.NoError(t, f.SetData(ctx, state.Data{"step": "three"}))
	seen, err := sc.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Data{"step": "three"}, seen)
}

func TestMiddlewareSharesCacheWithSession(t *testing.T) {
	ctx := context.Background()
	storage := state.NewMemoryStorage()
	cache := state.NewCache(8, 0)
	m := &Middleware{Bot: &fakeBot{}, BotID: botID, Cache: cache}

	var sc *state.Context
	var f *FSM
	h := state.WithSession(storage)(m.Use(func(c tele.Context) error {
		sc, _ = state.FromContext(c)
		f, _ = FSMFrom(c)
		return nil
	}))
	require.NoError(t, h(userMessage("hi")))
	require.NotNil(t, f)
	assert.Same(t, cache, sc.Cache)

	_, err := f.UpdateData(ctx, state.Data{"step": "one"})
	require.NoError(t, err)
	require.NoError(t, sc.SetData(ctx, state.Data{"step": "two"}))
	user, err := f.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Data{"step": "two"}, user)
}
