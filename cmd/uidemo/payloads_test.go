package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/gobot-ui/core/payload"
	"github.com/m3rciful/gobot-ui/core/telegram/callbacks"
	"github.com/m3rciful/gobot-ui/core/telegram/deeplink"
)

func TestCatalogButtonsFitCallbackData(t *testing.T) {
	sc := newSchemas(":", "_")
	for _, it := range catalog {
		data, err := sc.item.Pack(it.itemRef)
		require.NoError(t, err)
		require.LessOrEqual(t, len(data), callbacks.MaxDataLen)

		ref, err := sc.item.Unpack(data)
		require.NoError(t, err)
		require.Equal(t, it.itemRef, ref)
		require.False(t, sc.page.Match(data), "item data must not route to the page screen")
	}
}

func TestPageSchemaRejectsNegative(t *testing.T) {
	sc := newSchemas(":", "_")
	_, err := sc.page.Pack(-1)
	require.ErrorIs(t, err, payload.ErrInvalidValue)

	token, err := sc.page.Pack(2)
	require.NoError(t, err)
	require.Equal(t, "page:2", token)
}

func TestReferralLink(t *testing.T) {
	sc := newSchemas(":", "_")
	link, err := deeplink.URL("ui_demo_bot", sc.referral, int64(4242))
	require.NoError(t, err)

	token, err := deeplink.Encode(sc.referral, int64(4242))
	require.NoError(t, err)
	require.Equal(t, "https://t.me/ui_demo_bot?start="+token, link)

	rec, err := sc.referral.Decode(token)
	require.NoError(t, err)
	from, err := rec.Int("from")
	require.NoError(t, err)
	require.EqualValues(t, 4242, from)
}

func TestRemindAtRoundsUp(t *testing.T) {
	at := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 9, 19, 0, 0, 0, time.UTC), remindAt(at))
}

func TestUnixOf(t *testing.T) {
	for _, v := range []any{int64(7), 7, float64(7), "7"} {
		n, ok := unixOf(v)
		require.True(t, ok)
		require.EqualValues(t, 7, n)
	}
	_, ok := unixOf(nil)
	require.False(t, ok)
}
