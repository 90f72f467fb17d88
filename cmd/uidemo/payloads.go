package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/gobot-ui/core/payload"
	"github.com/m3rciful/gobot-ui/core/telegram/callbacks"
	"github.com/m3rciful/gobot-ui/core/telegram/deeplink"
)

type itemKind string

const (
	kindBook itemKind = "book"
	kindFilm itemKind = "film"
)

func (k itemKind) EnumValue() any { return string(k) }

type itemRef struct {
	ID   int64
	Kind itemKind
}

type item struct {
	itemRef
	Title string
	Price decimal.Decimal
}

var catalog = []item{
	{itemRef{1, kindBook}, "The Go Programming Language", decimal.RequireFromString("39.90")},
	{itemRef{2, kindFilm}, "Hackers", decimal.RequireFromString("4.99")},
	{itemRef{3, kindBook}, "Designing Data-Intensive Applications", decimal.RequireFromString("44.00")},
	{itemRef{4, kindFilm}, "The Social Network", decimal.RequireFromString("5.49")},
	{itemRef{5, kindBook}, "Concurrency in Go", decimal.RequireFromString("32.50")},
}

func findItem(ref itemRef) (item, bool) {
	for _, it := range catalog {
		if it.itemRef == ref {
			return it, true
		}
	}
	return item{}, false
}

const (
	menuData       = callbacks.Exact("menu")
	dateAskData    = callbacks.Exact("date:ask")
	dateCancelData = callbacks.Exact("date:cancel")
)

// schemas groups every payload the demo packs into buttons and links.
type schemas struct {
	page     *payload.Schema
	item     payload.Type[itemRef]
	remind   *payload.Schema
	referral *payload.Schema
}

func newSchemas(callbackSep, deepLinkSep string) schemas {
	page := callbacks.NewSchema("page", payload.Field{
		Name: "n",
		Kind: payload.KindInt,
		Validate: func(v payload.Value) error {
			if n, _ := v.Int(); n < 0 {
				return fmt.Errorf("negative page %d", n)
			}
			return nil
		},
	})
	itemSchema := callbacks.NewSchema("item",
		payload.Field{Name: "id", Kind: payload.KindInt},
		payload.Field{Name: "kind", Kind: payload.KindEnum, Members: []payload.Value{
			payload.String(string(kindBook)),
			payload.String(string(kindFilm)),
		}},
	)
	remind := callbacks.NewSchema("rem", payload.Field{Name: "at", Kind: payload.KindTime})
	referral := deeplink.NewSchema("ref", payload.Field{Name: "from", Kind: payload.KindInt})

	for _, s := range []*payload.Schema{page, itemSchema, remind} {
		s.Separator = callbackSep
	}
	referral.Separator = deepLinkSep

	return schemas{
		page: page,
		item: payload.Type[itemRef]{
			Schema: itemSchema,
			Values: func(r itemRef) []any { return []any{r.ID, r.Kind} },
			Build: func(r payload.Record) (itemRef, error) {
				id, err := r.Int("id")
				if err != nil {
					return itemRef{}, err
				}
				m, err := r.Member("kind")
				if err != nil {
					return itemRef{}, err
				}
				kind, _ := m.Str()
				return itemRef{ID: id, Kind: itemKind(kind)}, nil
			},
		},
		remind:   remind,
		referral: referral,
	}
}

// remindAt rounds t to the next full hour so the button payload stays short.
func remindAt(t time.Time) time.Time {
	return t.Truncate(time.Hour).Add(time.Hour)
}
