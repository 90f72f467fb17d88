package keyboard

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func labels(g Grid) [][]string {
	out := [][]string{}
	for _, r := range g.Rows() {
		row := make([]string, len(r))
		for i, b := range r {
			row[i] = b.Text
		}
		out = append(out, row)
	}
	return out
}

func btn(text string) *Button { return B(text, Callback(text)) }

func TestBuild(t *testing.T) {
	a, b, c, d := btn("A"), btn("B"), btn("C"), btn("D")
	x := Build(Row{a, b}, Row{c})

	tests := []struct {
		name     string
		vertical bool
		items    []Item
		want     [][]string
	}{
		{"bare run vertical", true, []Item{a, nil, b}, [][]string{{"A"}, {"B"}}},
		{"bare run horizontal", false, []Item{a, nil, b}, [][]string{{"A", "B"}}},
		{"sequence vertical", true, []Item{Row{a, nil, b}}, [][]string{{"A", "B"}}},
		{"sequence horizontal", false, []Item{Row{a, nil, b}}, [][]string{{"A", "B"}}},
		{"grid then button", true, []Item{x, c}, [][]string{{"A", "B"}, {"C"}, {"C"}}},
		{"run ends at sequence", false, []Item{a, b, Row{c}, d}, [][]string{{"A", "B"}, {"C"}, {"D"}}},
		{"run ends at grid", false, []Item{a, x, b, c}, [][]string{{"A"}, {"A", "B"}, {"C"}, {"B", "C"}}},
		{"placeholders only", true, []Item{nil, (*Button)(nil)}, [][]string{}},
		{"placeholder run before sequence", true, []Item{nil, nil, Row{a}}, [][]string{{"A"}}},
		{"empty sequence dropped", true, []Item{Row{nil}, a}, [][]string{{"A"}}},
		{"hidden button", true, []Item{BIf(false, "H", nil), a}, [][]string{{"A"}}},
		{"nothing", true, nil, [][]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := labels(BuildWith(tt.vertical, tt.items...))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildFlattensGrid(t *testing.T) {
	x := Build(btn("A"), btn("B"))
	if x.Len() != 2 {
		t.Fatalf("gridX rows = %d", x.Len())
	}
	got := labels(Build(x, btn("C")))
	want := [][]string{{"A"}, {"B"}, {"C"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestGridAdd(t *testing.T) {
	g := Build(btn("A"))

	withBtn, err := g.Add(btn("B"))
	if err != nil {
		t.Fatalf("add button: %v", err)
	}
	withGrid, err := withBtn.Add(BuildWith(false, btn("C"), btn("D")))
	if err != nil {
		t.Fatalf("add grid: %v", err)
	}
	want := [][]string{{"A"}, {"B"}, {"C", "D"}}
	if diff := cmp.Diff(want, labels(withGrid)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if g.Len() != 1 {
		t.Fatalf("Add mutated the receiver: %d rows", g.Len())
	}

	for _, bad := range []Item{Row{btn("X")}, nil, (*Button)(nil)} {
		if _, err := g.Add(bad); !errors.Is(err, ErrInvalidOperand) {
			t.Fatalf("Add(%T) err = %v, want ErrInvalidOperand", bad, err)
		}
	}
}

func TestWithoutRow(t *testing.T) {
	g := Build(btn("R0"), btn("R1"), btn("R2"))

	got, err := g.WithoutRow(1)
	if err != nil {
		t.Fatalf("WithoutRow(1): %v", err)
	}
	if diff := cmp.Diff([][]string{{"R0"}, {"R2"}}, labels(got)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if g.Len() != 3 {
		t.Fatalf("receiver changed: %d rows", g.Len())
	}

	for _, i := range []int{5, 3, -1} {
		if _, err := g.WithoutRow(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("WithoutRow(%d) err = %v, want ErrIndexOutOfRange", i, err)
		}
	}
}

func TestMarkup(t *testing.T) {
	m := BuildWith(false, btn("A"), B("Site", MustOpenURL("https://example.com"))).Markup()
	if len(m.InlineKeyboard) != 1 || len(m.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard %+v", m.InlineKeyboard)
	}
	if m.InlineKeyboard[0][0].Data != "A" || m.InlineKeyboard[0][1].URL != "https://example.com" {
		t.Fatalf("unexpected buttons %+v", m.InlineKeyboard[0])
	}
	if diff := cmp.Diff([][]string{{"A", "Site"}}, labels(FromMarkup(m))); diff != "" {
		t.Fatalf("FromMarkup mismatch (-want +got):\n%s", diff)
	}
}

func TestChunk(t *testing.T) {
	g := Chunk(2, btn("1"), nil, btn("2"), btn("3"))
	if diff := cmp.Diff([][]string{{"1", "2"}, {"3"}}, labels(g)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}
