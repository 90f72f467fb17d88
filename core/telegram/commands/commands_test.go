package commands

import (
	"testing"

	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestNormalize(t *testing.T) {
	for in, want := range map[string]string{
		"start":           "/start",
		"/Menu":           "/menu",
		" /help@demo_bot": "/help",
		"":                "",
	} {
		require.Equal(t, want, Normalize(in), in)
	}
}

func TestValidateAndAliases(t *testing.T) {
	h := func(tele.Context) error { return nil }
	cmd := Command{Handler: h, Description: "Menu", Aliases: []string{"m", "/Home"}}

	require.NoError(t, cmd.Validate("/menu"))
	require.ErrorIs(t, cmd.Validate("menu"), ErrNoSlash)
	require.ErrorIs(t, Command{Description: "x"}.Validate("/x"), ErrNoHandler)
	require.ErrorIs(t, Command{Handler: h}.Validate("/x"), ErrNoDescription)

	require.True(t, cmd.Answers("/m"))
	require.True(t, cmd.Answers("/home"))
	require.False(t, cmd.Answers("/menu"))

	require.True(t, cmd.Listed())
	cmd.AdminOnly = true
	require.False(t, cmd.Listed())
}
