// Package commands describes slash commands and their visibility in the bot menu.
package commands

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var (
	ErrNoHandler     = errors.New("command has no handler")
	ErrNoDescription = errors.New("command has no description")
	ErrNoSlash       = errors.New("command name must start with a slash")
)

// Command is a registered slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are guarded by the admin check and never listed.
	AdminOnly bool
	Hidden    bool
	// Aliases may be given with or without the leading slash.
	Aliases []string
}

// Normalize lowercases name, strips a @botname suffix and adds the slash.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name != "" && name[0] != '/' {
		name = "/" + name
	}
	return name
}

// Validate reports why cmd cannot be registered under name.
func (cmd Command) Validate(name string) error {
	switch {
	case !strings.HasPrefix(name, "/"):
		return ErrNoSlash
	case cmd.Handler == nil:
		return ErrNoHandler
	case cmd.Description == "":
		return ErrNoDescription
	}
	return nil
}

// Listed reports whether the command belongs in the public command menu.
func (cmd Command) Listed() bool {
	return !cmd.Hidden && !cmd.AdminOnly
}

// Answers reports whether name (already normalized) is one of the aliases.
func (cmd Command) Answers(name string) bool {
	for _, alias := range cmd.Aliases {
		if Normalize(alias) == name {
			return true
		}
	}
	return false
}
