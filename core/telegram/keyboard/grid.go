// Package keyboard assembles inline keyboards.
package keyboard

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidOperand reports a Grid.Add argument that is neither a button nor a grid.
	ErrInvalidOperand = errors.New("keyboard: operand must be a button or a grid")
	// ErrIndexOutOfRange reports a row index outside the grid.
	ErrIndexOutOfRange = errors.New("keyboard: row index out of range")
)

// Item is anything Build accepts: *Button (a nil *Button or a nil Item is a
// placeholder), Row or Grid.
type Item interface {
	item()
}

// Row is always rendered as one keyboard row, whatever the orientation.
type Row []*Button

func (Row) item() {}

func (r Row) compact() []Button {
	out := make([]Button, 0, len(r))
	for _, b := range r {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}

// Grid is an immutable list of non-empty button rows.
type Grid struct {
	rows [][]Button
}

func (Grid) item() {}

type buildState uint8

const (
	scanning buildState = iota
	consumingRun
)

// Build lays items out with vertical runs: every bare button gets its own row.
func Build(items ...Item) Grid {
	return BuildWith(true, items...)
}

// BuildWith lays items out left to right. A Row becomes one row with placeholders
// removed, a Grid contributes its rows unchanged, and a run of consecutive bare
// buttons and placeholders becomes one row per button when vertical is true or a
// single row otherwise. Empty rows are never emitted.
func BuildWith(vertical bool, items ...Item) Grid {
	var (
		rows  [][]Button
		run   []Button
		state = scanning
	)
	endRun := func() {
		if state != consumingRun {
			return
		}
		switch {
		case len(run) == 0:
		case vertical:
			for _, b := range run {
				rows = append(rows, []Button{b})
			}
		default:
			rows = append(rows, run)
		}
		run = nil
		state = scanning
	}

	for _, it := range items {
		switch v := it.(type) {
		case nil:
			state = consumingRun
		case *Button:
			state = consumingRun
			if v != nil {
				run = append(run, *v)
			}
		case Row:
			endRun()
			if r := v.compact(); len(r) > 0 {
				rows = append(rows, r)
			}
		case Grid:
			endRun()
			rows = append(rows, v.rows...)
		}
	}
	endRun()
	return Grid{rows: rows}
}

// Add returns a grid with item appended: a *Button as a new one-button row, a Grid
// as all of its rows. Anything else fails with ErrInvalidOperand.
func (g Grid) Add(item Item) (Grid, error) {
	switch v := item.(type) {
	case *Button:
		if v == nil {
			return g, fmt.Errorf("%w: nil button", ErrInvalidOperand)
		}
		return Grid{rows: appendRows(g.rows, []Button{*v})}, nil
	case Grid:
		return Grid{rows: appendRows(g.rows, v.rows...)}, nil
	default:
		return g, fmt.Errorf("%w: got %T", ErrInvalidOperand, item)
	}
}

// WithoutRow returns a grid without row i.
func (g Grid) WithoutRow(i int) (Grid, error) {
	if i < 0 || i >= len(g.rows) {
		return g, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(g.rows))
	}
	rows := make([][]Button, 0, len(g.rows)-1)
	rows = append(rows, g.rows[:i]...)
	rows = append(rows, g.rows[i+1:]...)
	return Grid{rows: rows}, nil
}

// Len returns the number of rows.
func (g Grid) Len() int { return len(g.rows) }

// Rows returns a copy of the rows.
func (g Grid) Rows() [][]Button {
	out := make([][]Button, len(g.rows))
	for i, r := range g.rows {
		out[i] = append([]Button(nil), r...)
	}
	return out
}

// Inline converts the grid to telebot's inline keyboard rows.
func (g Grid) Inline() [][]tele.InlineButton {
	out := make([][]tele.InlineButton, len(g.rows))
	for i, r := range g.rows {
		row := make([]tele.InlineButton, len(r))
		for j, b := range r {
			row[j] = b.InlineButton
		}
		out[i] = row
	}
	return out
}

// Markup wraps the grid as reply markup for Send and Edit.
func (g Grid) Markup() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: g.Inline()}
}

// FromMarkup rebuilds a grid from an inline keyboard, dropping empty rows.
func FromMarkup(m *tele.ReplyMarkup) Grid {
	if m == nil {
		return Grid{}
	}
	var rows [][]Button
	for _, r := range m.InlineKeyboard {
		if len(r) == 0 {
			continue
		}
		row := make([]Button, len(r))
		for j, b := range r {
			row[j] = Button{InlineButton: b}
		}
		rows = append(rows, row)
	}
	return Grid{rows: rows}
}

func appendRows(base [][]Button, extra ...[]Button) [][]Button {
	out := make([][]Button, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
