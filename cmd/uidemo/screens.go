package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/gobot-ui/core/telegram/callbacks"
	"github.com/m3rciful/gobot-ui/core/telegram/deeplink"
	"github.com/m3rciful/gobot-ui/core/telegram/format"
	tghelpers "github.com/m3rciful/gobot-ui/core/telegram/helpers"
	"github.com/m3rciful/gobot-ui/core/telegram/keyboard"
	"github.com/m3rciful/gobot-ui/core/telegram/layout"
	"github.com/m3rciful/gobot-ui/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const (
	pageSize = 2

	stateAwaitDate state.State = "await_date"

	screenMenu     = "menu"
	screenDateDone = "date.done"
)

// screens renders the demo bot's layouts.
type screens struct {
	schemas  schemas
	username string
}

func (s *screens) menu(c tele.Context) (layout.Result, error) {
	name := "there"
	if u := c.Sender(); u != nil && u.FirstName != "" {
		name = u.FirstName
	}
	var share *keyboard.Button
	if s.username != "" && c.Sender() != nil {
		if link, err := deeplink.URL(s.username, s.schemas.referral, c.Sender().ID); err == nil {
			if open, err := keyboard.OpenURL(link); err == nil {
				share = keyboard.B("Invite a friend", open)
			}
		}
	}
	page0, err := s.schemas.page.Pack(0)
	if err != nil {
		return nil, err
	}
	return &layout.TextLayout{
		Text:      fmt.Sprintf("*Hi, %s\\!*\nPick a section:", format.EscapeV2(name)),
		ParseMode: tele.ModeMarkdownV2,
		Keyboard: keyboard.Build(
			keyboard.Row{
				keyboard.B("Catalog", keyboard.Callback(page0)),
				keyboard.B("Pick a date", keyboard.Callback(dateAskData.String())),
			},
			share,
		),
		DisablePreview: true,
	}, nil
}

func (s *screens) page(c tele.Context) (layout.Result, error) {
	rec, err := callbacks.Decode(c, s.schemas.page)
	if err != nil {
		return nil, err
	}
	n, err := rec.Int("n")
	if err != nil {
		return nil, err
	}
	from := int(n) * pageSize
	if from >= len(catalog) {
		return layout.Redirect(screenMenu), nil
	}
	to := min(from+pageSize, len(catalog))

	buttons := make([]*keyboard.Button, 0, pageSize)
	for _, it := range catalog[from:to] {
		data, err := s.schemas.item.Pack(it.itemRef)
		if err != nil {
			return nil, err
		}
		buttons = append(buttons, keyboard.B(it.Title, keyboard.Callback(data)))
	}
	prev, _ := s.schemas.page.Pack(max(n-1, 0))
	next, _ := s.schemas.page.Pack(n + 1)
	nav := keyboard.Row{
		keyboard.BIf(n > 0, "« Prev", keyboard.Callback(prev)),
		keyboard.BIf(to < len(catalog), "Next »", keyboard.Callback(next)),
	}
	kb := keyboard.Build(keyboard.Chunk(1, buttons...), nav, keyboard.B("Back", keyboard.Callback(menuData.String())))
	return layout.Text(fmt.Sprintf("Catalog, page %d of %d", n+1, (len(catalog)+pageSize-1)/pageSize), kb), nil
}

func (s *screens) item(c tele.Context) (layout.Result, error) {
	ref, err := callbacks.Unpack(c, s.schemas.item)
	if err != nil {
		return nil, err
	}
	it, ok := findItem(ref)
	if !ok {
		_ = c.Respond(&tele.CallbackResponse{Text: "This item is gone"})
		return layout.Redirect(screenMenu), nil
	}
	if f, ok := layout.FSMFrom(c); ok {
		if _, err := f.UpdateData(tghelpers.BuildContext(c), state.Data{"last_item": it.ID}); err != nil {
			return nil, err
		}
	}
	page, _ := s.schemas.page.Pack(int64(catalogIndex(ref) / pageSize))
	return layout.Text(
		fmt.Sprintf("%s (%s)\nPrice: %s", it.Title, it.Kind, it.Price.StringFixed(2)),
		keyboard.Build(keyboard.B("Back to catalog", keyboard.Callback(page))),
	), nil
}

func catalogIndex(ref itemRef) int {
	for i, it := range catalog {
		if it.itemRef == ref {
			return i
		}
	}
	return 0
}

func (s *screens) askDate(c tele.Context) (layout.Result, error) {
	f, ok := layout.FSMFrom(c)
	if !ok {
		return nil, fmt.Errorf("no session for date entry")
	}
	ctx := tghelpers.BuildContext(c)
	if err := f.SetState(ctx, stateAwaitDate); err != nil {
		return nil, err
	}
	if err := f.SetNextCallback(ctx, screenDateDone); err != nil {
		return nil, err
	}
	return layout.Text(
		"Send a date, e.g. 2025-03-09 or 9.3.2025 18:30",
		keyboard.Build(keyboard.Cancel(dateCancelData.String())),
	), nil
}

func (s *screens) cancelDate(c tele.Context) (layout.Result, error) {
	if f, ok := layout.FSMFrom(c); ok {
		if err := f.Clear(tghelpers.BuildContext(c)); err != nil {
			return nil, err
		}
	}
	return layout.Redirect(screenMenu), nil
}

// enterDate handles text while a date is awaited. A parsed date continues with the
// handler stored as next callback.
func (s *screens) enterDate(c tele.Context) (layout.Result, error) {
	f, ok := layout.FSMFrom(c)
	if !ok {
		return nil, fmt.Errorf("no session for date entry")
	}
	t, ok := tghelpers.ParseFlexibleDate(c.Text(), nil)
	if !ok {
		if lc, ok := layout.ContextFrom(c); ok {
			_, err := lc.Send(layout.Text("Could not read that date, try again.", keyboard.Build(keyboard.Cancel(dateCancelData.String()))))
			return nil, err
		}
		return nil, nil
	}
	ctx := tghelpers.BuildContext(c)
	if _, err := f.UpdateData(ctx, state.Data{"date": t.Unix()}); err != nil {
		return nil, err
	}
	if err := f.SetState(ctx, state.StateIdle); err != nil {
		return nil, err
	}
	next, err := f.PopNextCallback(ctx)
	if err != nil {
		return nil, err
	}
	return next(c)
}

func (s *screens) dateDone(c tele.Context) (layout.Result, error) {
	f, ok := layout.FSMFrom(c)
	if !ok {
		return layout.Redirect(screenMenu), nil
	}
	data, err := f.Data(tghelpers.BuildContext(c))
	if err != nil {
		return nil, err
	}
	unix, ok := unixOf(data["date"])
	if !ok {
		return layout.Redirect(screenMenu), nil
	}
	at := time.Unix(unix, 0)
	rem, err := s.schemas.remind.Pack(remindAt(at))
	if err != nil {
		return nil, err
	}
	return layout.Text(
		"Saved "+at.Format("Mon, 02 Jan 2006 15:04"),
		keyboard.Build(
			keyboard.B("Remind me an hour later", keyboard.Callback(rem)),
			keyboard.B("Menu", keyboard.Callback(menuData.String())),
		),
	), nil
}

// unixOf accepts the number shapes a storage round trip can produce.
func unixOf(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func (s *screens) remind(c tele.Context) error {
	rec, err := callbacks.Decode(c, s.schemas.remind)
	if err != nil {
		return err
	}
	at, err := rec.Time("at")
	if err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "Reminder set for " + at.Local().Format("02.01.2006 15:04")})
}

func (s *screens) referral(c tele.Context) (layout.Result, error) {
	rec, ok := deeplink.FromContext(c)
	if !ok {
		return layout.Redirect(screenMenu), nil
	}
	from, err := rec.Int("from")
	if err != nil {
		return nil, err
	}
	if f, ok := layout.FSMFrom(c); ok {
		if _, err := f.UpdateLayoutData(tghelpers.BuildContext(c), state.Data{"referrer": from}); err != nil {
			return nil, err
		}
	}
	if lc, ok := layout.ContextFrom(c); ok {
		if _, err := lc.Send(layout.Text("You were invited by user "+strconv.FormatInt(from, 10)+".", keyboard.Grid{})); err != nil {
			return nil, err
		}
	}
	return layout.Redirect(screenMenu), nil
}

// fallbacks answers updates no route claimed.
type fallbacks struct{}

func (fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		if strings.HasPrefix(c.Text(), "/") {
			return tghelpers.SendText(c, "Unknown command. Try /start.")
		}
		return tghelpers.SendText(c, "I did not get that. Try /start.")
	}
}

func (fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "Files are not supported here.")
	}
}

func (fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "This button has expired"})
	}
}
