package state

import (
	"context"
	"errors"
	"maps"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = ""

// ErrNoKey is returned when an update carries neither a chat nor a sender.
var ErrNoKey = errors.New("state: update has no chat or sender")

// Key addresses one conversation: a user inside a chat.
type Key struct {
	ChatID int64
	UserID int64
}

// String renders the key as "<chat>:<user>".
func (k Key) String() string {
	return strconv.FormatInt(k.ChatID, 10) + ":" + strconv.FormatInt(k.UserID, 10)
}

// KeyOf derives the storage key from an update.
// Updates without a chat (inline queries) fall back to the sender's private chat.
func KeyOf(c tele.Context) (Key, error) {
	var k Key
	if u := c.Sender(); u != nil {
		k.UserID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		k.ChatID = ch.ID
	} else {
		k.ChatID = k.UserID
	}
	if k.ChatID == 0 && k.UserID == 0 {
		return Key{}, ErrNoKey
	}
	return k, nil
}

// Data is the free-form conversation data. Backends store it as JSON, so values
// come back as JSON types (numbers as float64).
type Data map[string]any

// Clone returns a shallow copy; a nil Data clones to an empty map.
func (d Data) Clone() Data {
	if d == nil {
		return Data{}
	}
	return maps.Clone(d)
}

// Storage persists FSM state and data. Implementations are safe for concurrent use.
type Storage interface {
	State(ctx context.Context, key Key) (State, error)
	SetState(ctx context.Context, key Key, st State) error
	Data(ctx context.Context, key Key) (Data, error)
	SetData(ctx context.Context, key Key, data Data) error
	// UpdateData merges patch into the stored data and returns the result.
	UpdateData(ctx context.Context, key Key, patch Data) (Data, error)
	Close() error
}
