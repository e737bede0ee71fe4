package booster

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Unopened is a booster the user bought and has not opened yet.
type Unopened struct {
	ID       uuid.UUID `json:"id"`
	SetCode  string    `json:"setCode"`
	Type     Type      `json:"type"`
	ColorHex string    `json:"colorHex,omitempty"`
}

// NewUnopened creates a booster with a fresh identity.
func NewUnopened(setCode string, t Type, colorHex string) Unopened {
	return Unopened{
		ID:       uuid.New(),
		SetCode:  strings.ToLower(setCode),
		Type:     t,
		ColorHex: colorHex,
	}
}

// Store persists the list of unopened boosters as a single document.
type Store interface {
	LoadUnopenedBoosters(ctx context.Context) ([]Unopened, error)
	SaveUnopenedBoosters(ctx context.Context, list []Unopened) error
}

// Key groups unopened boosters for display.
type Key struct {
	SetCode string `json:"setCode"`
	Type    Type   `json:"type"`
}

// Group is a count of unopened boosters sharing a Key.
type Group struct {
	Key
	Count int `json:"count"`
}

// GroupCounts counts boosters by (set code, type), ordered by set code then
// type.
func GroupCounts(list []Unopened) []Group {
	counts := make(map[Key]int)
	for _, b := range list {
		counts[Key{SetCode: b.SetCode, Type: b.Type}]++
	}

	groups := make([]Group, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, Group{Key: k, Count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].SetCode != groups[j].SetCode {
			return groups[i].SetCode < groups[j].SetCode
		}
		return groups[i].Type < groups[j].Type
	})
	return groups
}

// Find returns the booster with the given id.
func Find(list []Unopened, id uuid.UUID) (Unopened, bool) {
	for _, b := range list {
		if b.ID == id {
			return b, true
		}
	}
	return Unopened{}, false
}

// Without returns list minus the booster with the given id. The second
// result is false when no booster matched.
func Without(list []Unopened, id uuid.UUID) ([]Unopened, bool) {
	out := make([]Unopened, 0, len(list))
	removed := false
	for _, b := range list {
		if !removed && b.ID == id {
			removed = true
			continue
		}
		out = append(out, b)
	}
	return out, removed
}
