// Package collection implements the operations on the user's owned cards.
// A collection is an ordered list with one entry per card identity.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/cards"
)

// ErrCardNotOwned is returned when removing a card that is not in the
// collection.
var ErrCardNotOwned = errors.New("card not in collection")

// Store persists the collection as a single document.
type Store interface {
	LoadCollection(ctx context.Context) ([]cards.Card, error)
	SaveCollection(ctx context.Context, list []cards.Card) error
}

// Merge adds incoming cards to existing. Cards already owned have their
// counts increased; new cards are appended in order of first appearance.
// An incoming card with a zero count counts as one copy.
func Merge(existing, incoming []cards.Card) []cards.Card {
	out := make([]cards.Card, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	add := func(c cards.Card) {
		n := c.Count
		if n < 1 {
			n = 1
		}
		if i, ok := index[c.ID]; ok {
			out[i].Count += n
			return
		}
		c.Count = n
		index[c.ID] = len(out)
		out = append(out, c)
	}

	for _, c := range existing {
		if c.Count <= 0 {
			continue
		}
		add(c)
	}
	for _, c := range incoming {
		add(c)
	}
	return out
}

// Remove takes count copies of the card with id out of list and returns the
// updated list plus the number of copies actually removed. Counts above the
// owned amount are clamped; an entry reaching zero is dropped.
func Remove(list []cards.Card, id string, count int) ([]cards.Card, int, error) {
	if count < 1 {
		return nil, 0, fmt.Errorf("count must be at least 1, got %d", count)
	}

	out := make([]cards.Card, 0, len(list))
	removed := 0
	for _, c := range list {
		if c.ID != id || removed > 0 {
			out = append(out, c)
			continue
		}
		removed = min(count, c.Count)
		c.Count -= removed
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	if removed == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrCardNotOwned, id)
	}
	return out, removed, nil
}

// Find returns the owned entry for id.
func Find(list []cards.Card, id string) (cards.Card, bool) {
	for _, c := range list {
		if c.ID == id {
			return c, true
		}
	}
	return cards.Card{}, false
}

// Value is the market value of every owned copy.
func Value(list []cards.Card) decimal.Decimal {
	total := decimal.Zero
	for _, c := range list {
		total = total.Add(c.Price().Mul(decimal.NewFromInt(int64(c.Count))))
	}
	return total
}

// Stats summarizes a collection.
type Stats struct {
	UniqueCards int                  `json:"uniqueCards"`
	TotalCards  int                  `json:"totalCards"`
	ByRarity    map[cards.Rarity]int `json:"byRarity"`
	BySet       map[string]int       `json:"bySet"`
	Value       decimal.Decimal      `json:"value"`
}

// ComputeStats counts unique and total cards, copies per rarity and per set.
func ComputeStats(list []cards.Card) Stats {
	s := Stats{
		ByRarity: make(map[cards.Rarity]int),
		BySet:    make(map[string]int),
		Value:    Value(list),
	}
	for _, c := range list {
		s.UniqueCards++
		s.TotalCards += c.Count
		s.ByRarity[cards.ParseRarity(string(c.Rarity))] += c.Count
		s.BySet[strings.ToLower(c.SetCode)] += c.Count
	}
	return s
}

// SortBy orders filtered results.
type SortBy string

const (
	SortNone  SortBy = ""
	SortName  SortBy = "name"
	SortPrice SortBy = "price"
	SortCount SortBy = "count"
)

// Filter narrows a collection. Empty fields match everything.
type Filter struct {
	SetCode string
	Rarity  cards.Rarity
	SortBy  SortBy
}

// Apply returns the cards matching f, sorted as requested.
func (f Filter) Apply(list []cards.Card) []cards.Card {
	out := make([]cards.Card, 0, len(list))
	for _, c := range list {
		if f.SetCode != "" && !strings.EqualFold(c.SetCode, f.SetCode) {
			continue
		}
		if f.Rarity != "" && cards.ParseRarity(string(c.Rarity)) != cards.ParseRarity(string(f.Rarity)) {
			continue
		}
		out = append(out, c)
	}

	switch f.SortBy {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	case SortPrice:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price().GreaterThan(out[j].Price()) })
	case SortCount:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	}
	return out
}

// searchSource adapts a card list to fuzzy.Source.
type searchSource []cards.Card

func (s searchSource) Len() int            { return len(s) }
func (s searchSource) String(i int) string { return strings.ToLower(s[i].Name) }

// Search returns cards whose names fuzzy-match query, best match first. An
// empty query returns the list unchanged.
func Search(list []cards.Card, query string) []cards.Card {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return list
	}

	matches := fuzzy.FindFrom(query, searchSource(list))
	out := make([]cards.Card, len(matches))
	for i, m := range matches {
		out[i] = list[m.Index]
	}
	return out
}
