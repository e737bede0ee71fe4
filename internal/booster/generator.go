// Package booster generates the contents of opened boosters and models the
// boosters a user can buy and keep unopened.
package booster

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/cards"
)

// DefaultSlotSize is the number of cards in a uniformly drawn booster.
const DefaultSlotSize = 12

// Rarity-slotted composition.
const (
	commonSlots   = 10
	uncommonSlots = 3
	rareSlots     = 1
)

// ErrEmptyPool is returned when a booster is requested from an empty card
// pool. It usually means the catalog fetch for the set failed upstream.
var ErrEmptyPool = errors.New("card pool is empty")

// Policy selects how an opened booster is composed.
type Policy string

const (
	// PolicyUniform draws a fixed number of cards uniformly from the pool.
	PolicyUniform Policy = "uniform"
	// PolicyRarity draws commons, uncommons and one rare-or-mythic slot.
	PolicyRarity Policy = "rarity"
)

// ParsePolicy validates a policy name. The empty string selects uniform.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyUniform:
		return PolicyUniform, nil
	case PolicyRarity:
		return PolicyRarity, nil
	}
	return "", fmt.Errorf("unknown pack policy %q", s)
}

// Generator draws booster contents from a card pool. It is safe for
// concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator seeded from the current time.
func NewGenerator() *Generator {
	return NewGeneratorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGeneratorWithRand creates a generator over the given source of
// randomness. Tests pass a fixed seed.
func NewGeneratorWithRand(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Open composes a booster according to the policy.
func (g *Generator) Open(policy Policy, pool []cards.Card, slotSize int) ([]cards.Card, error) {
	if policy == PolicyRarity {
		return g.OpenPackByRarity(pool)
	}
	return g.OpenPack(pool, slotSize)
}

// OpenPack draws min(slotSize, distinct cards in pool) cards uniformly at
// random without replacement. A slotSize below 1 is treated as 1.
func (g *Generator) OpenPack(pool []cards.Card, slotSize int) ([]cards.Card, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	if slotSize < 1 {
		slotSize = 1
	}

	candidates := distinct(pool)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.shuffle(candidates)
	if slotSize > len(candidates) {
		slotSize = len(candidates)
	}
	return candidates[:slotSize:slotSize], nil
}

// OpenPackByRarity draws up to 10 commons, up to 3 uncommons and one card
// from the union of rares and mythics. Tiers without cards contribute
// nothing, so the result holds between 0 and 14 cards.
func (g *Generator) OpenPackByRarity(pool []cards.Card) ([]cards.Card, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	var commons, uncommons, rares []cards.Card
	for _, c := range distinct(pool) {
		switch cards.ParseRarity(string(c.Rarity)) {
		case cards.RarityCommon:
			commons = append(commons, c)
		case cards.RarityUncommon:
			uncommons = append(uncommons, c)
		case cards.RarityRare, cards.RarityMythic:
			rares = append(rares, c)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	selected := make([]cards.Card, 0, commonSlots+uncommonSlots+rareSlots)
	selected = append(selected, g.take(commons, commonSlots)...)
	selected = append(selected, g.take(uncommons, uncommonSlots)...)
	selected = append(selected, g.take(rares, rareSlots)...)
	g.shuffle(selected)

	return selected, nil
}

// ReplacementCandidate picks a random card from pool that has an image and
// whose identity is not already in current. It reports false when no such
// card exists.
func (g *Generator) ReplacementCandidate(current, pool []cards.Card) (cards.Card, bool) {
	taken := make(map[string]struct{}, len(current))
	for _, c := range current {
		taken[c.ID] = struct{}{}
	}

	available := make([]cards.Card, 0, len(pool))
	for _, c := range distinct(pool) {
		if _, ok := taken[c.ID]; ok || !c.HasImage() {
			continue
		}
		available = append(available, c)
	}
	if len(available) == 0 {
		return cards.Card{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return available[g.rng.Intn(len(available))], true
}

// PackValue sums the market prices of the given cards. Missing or
// unparsable prices count as zero.
func PackValue(list []cards.Card) decimal.Decimal {
	total := decimal.Zero
	for _, c := range list {
		total = total.Add(c.Price())
	}
	return total
}

// take shuffles tier in place and returns at most n cards from it.
// Callers hold g.mu.
func (g *Generator) take(tier []cards.Card, n int) []cards.Card {
	g.shuffle(tier)
	if n > len(tier) {
		n = len(tier)
	}
	return tier[:n]
}

// shuffle is a Fisher-Yates shuffle over the generator's source.
// Callers hold g.mu.
func (g *Generator) shuffle(list []cards.Card) {
	g.rng.Shuffle(len(list), func(i, j int) {
		list[i], list[j] = list[j], list[i]
	})
}

// distinct copies pool keeping the first occurrence of each card id.
func distinct(pool []cards.Card) []cards.Card {
	seen := make(map[string]struct{}, len(pool))
	out := make([]cards.Card, 0, len(pool))
	for _, c := range pool {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
