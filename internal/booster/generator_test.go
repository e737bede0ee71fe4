package booster

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/cards"
)

func newTestGenerator(seed int64) *Generator {
	return NewGeneratorWithRand(rand.New(rand.NewSource(seed)))
}

// makePool builds a pool with the given number of cards per rarity.
func makePool(counts map[cards.Rarity]int) []cards.Card {
	var pool []cards.Card
	for _, r := range []cards.Rarity{cards.RarityCommon, cards.RarityUncommon, cards.RarityRare, cards.RarityMythic} {
		for i := 0; i < counts[r]; i++ {
			pool = append(pool, cards.Card{
				ID:       fmt.Sprintf("%s-%d", r, i),
				Name:     fmt.Sprintf("%s card %d", r, i),
				Rarity:   r,
				ImageURL: fmt.Sprintf("https://img.test/%s-%d.jpg", r, i),
			})
		}
	}
	return pool
}

func assertUnique(t *testing.T, list []cards.Card) {
	t.Helper()
	seen := make(map[string]bool)
	for _, c := range list {
		if seen[c.ID] {
			t.Fatalf("duplicate card %s in result", c.ID)
		}
		seen[c.ID] = true
	}
}

func assertFromPool(t *testing.T, list, pool []cards.Card) {
	t.Helper()
	ids := make(map[string]bool)
	for _, c := range pool {
		ids[c.ID] = true
	}
	for _, c := range list {
		if !ids[c.ID] {
			t.Fatalf("card %s is not in the pool", c.ID)
		}
	}
}

func TestOpenPack_Size(t *testing.T) {
	pool := makePool(map[cards.Rarity]int{cards.RarityCommon: 30})

	tests := []struct {
		name     string
		poolSize int
		slotSize int
		want     int
	}{
		{"slot smaller than pool", 30, 12, 12},
		{"slot equals pool", 12, 12, 12},
		{"slot larger than pool", 5, 12, 5},
		{"single card", 1, 12, 1},
		{"zero slot clamps to one", 30, 0, 1},
	}

	for seed := int64(0); seed < 20; seed++ {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				g := newTestGenerator(seed)
				got, err := g.OpenPack(pool[:tt.poolSize], tt.slotSize)
				if err != nil {
					t.Fatalf("OpenPack() error = %v", err)
				}
				if len(got) != tt.want {
					t.Errorf("len(OpenPack()) = %d, want %d", len(got), tt.want)
				}
				assertUnique(t, got)
				assertFromPool(t, got, pool)
			})
		}
	}
}

func TestOpenPack_ScenarioA(t *testing.T) {
	pool := makePool(map[cards.Rarity]int{
		cards.RarityRare:   5,
		cards.RarityCommon: 10,
		cards.RarityMythic: 5,
	})
	if len(pool) != 20 {
		t.Fatalf("pool size = %d, want 20", len(pool))
	}

	got, err := newTestGenerator(42).OpenPack(pool, DefaultSlotSize)
	if err != nil {
		t.Fatalf("OpenPack() error = %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("len(OpenPack()) = %d, want 12", len(got))
	}
	assertUnique(t, got)
	assertFromPool(t, got, pool)
}

func TestOpenPack_DuplicateIDsInPool(t *testing.T) {
	pool := []cards.Card{{ID: "a"}, {ID: "a"}, {ID: "b"}}

	got, err := newTestGenerator(1).OpenPack(pool, 12)
	if err != nil {
		t.Fatalf("OpenPack() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(OpenPack()) = %d, want 2", len(got))
	}
	assertUnique(t, got)
}

func TestOpenPack_DoesNotMutatePool(t *testing.T) {
	pool := makePool(map[cards.Rarity]int{cards.RarityCommon: 15})
	before := cards.IDs(pool)

	if _, err := newTestGenerator(7).OpenPack(pool, 12); err != nil {
		t.Fatalf("OpenPack() error = %v", err)
	}

	for i, id := range cards.IDs(pool) {
		if id != before[i] {
			t.Fatalf("pool order changed at %d: %s != %s", i, id, before[i])
		}
	}
}

func TestOpenPack_EmptyPool(t *testing.T) {
	g := newTestGenerator(1)
	if _, err := g.OpenPack(nil, 12); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("OpenPack(nil) error = %v, want ErrEmptyPool", err)
	}
	if _, err := g.OpenPackByRarity(nil); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("OpenPackByRarity(nil) error = %v, want ErrEmptyPool", err)
	}
}

func TestOpenPackByRarity_Composition(t *testing.T) {
	tests := []struct {
		name   string
		counts map[cards.Rarity]int
		want   map[cards.Rarity]int
		total  int
	}{
		{
			name:   "saturated tiers",
			counts: map[cards.Rarity]int{cards.RarityCommon: 40, cards.RarityUncommon: 20, cards.RarityRare: 10, cards.RarityMythic: 4},
			want:   map[cards.Rarity]int{cards.RarityCommon: 10, cards.RarityUncommon: 3},
			total:  14,
		},
		{
			name:   "under-populated tiers",
			counts: map[cards.Rarity]int{cards.RarityCommon: 4, cards.RarityUncommon: 1},
			want:   map[cards.Rarity]int{cards.RarityCommon: 4, cards.RarityUncommon: 1},
			total:  5,
		},
		{
			name:   "only mythics",
			counts: map[cards.Rarity]int{cards.RarityMythic: 3},
			want:   map[cards.Rarity]int{},
			total:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := makePool(tt.counts)
			got, err := newTestGenerator(3).OpenPackByRarity(pool)
			if err != nil {
				t.Fatalf("OpenPackByRarity() error = %v", err)
			}
			if len(got) != tt.total {
				t.Fatalf("len(OpenPackByRarity()) = %d, want %d", len(got), tt.total)
			}
			assertUnique(t, got)

			byRarity := make(map[cards.Rarity]int)
			for _, c := range got {
				byRarity[c.Rarity]++
			}
			for r, n := range tt.want {
				if byRarity[r] != n {
					t.Errorf("%s count = %d, want %d", r, byRarity[r], n)
				}
			}
			if rareSlot := byRarity[cards.RarityRare] + byRarity[cards.RarityMythic]; rareSlot > 1 {
				t.Errorf("rare/mythic count = %d, want at most 1", rareSlot)
			}
		})
	}
}

func TestOpenPackByRarity_UnknownRaritiesIgnored(t *testing.T) {
	pool := []cards.Card{{ID: "s1", Rarity: "special"}, {ID: "b1", Rarity: "bonus"}}

	got, err := newTestGenerator(1).OpenPackByRarity(pool)
	if err != nil {
		t.Fatalf("OpenPackByRarity() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(OpenPackByRarity()) = %d, want 0", len(got))
	}
}

func TestGenerator_OpenDispatchesOnPolicy(t *testing.T) {
	pool := makePool(map[cards.Rarity]int{cards.RarityCommon: 40, cards.RarityUncommon: 20, cards.RarityRare: 10})
	g := newTestGenerator(5)

	uniform, err := g.Open(PolicyUniform, pool, 12)
	if err != nil || len(uniform) != 12 {
		t.Errorf("Open(uniform) = %d cards, %v; want 12, nil", len(uniform), err)
	}
	rarity, err := g.Open(PolicyRarity, pool, 12)
	if err != nil || len(rarity) != 14 {
		t.Errorf("Open(rarity) = %d cards, %v; want 14, nil", len(rarity), err)
	}
}

func TestReplacementCandidate(t *testing.T) {
	pool := makePool(map[cards.Rarity]int{cards.RarityCommon: 10})
	pool = append(pool, cards.Card{ID: "no-image"})

	for seed := int64(0); seed < 50; seed++ {
		g := newTestGenerator(seed)
		current := pool[:6]

		got, ok := g.ReplacementCandidate(current, pool)
		if !ok {
			t.Fatal("ReplacementCandidate() found nothing")
		}
		for _, c := range current {
			if c.ID == got.ID {
				t.Fatalf("replacement %s is already in the pack", got.ID)
			}
		}
		if !got.HasImage() {
			t.Fatalf("replacement %s has no image", got.ID)
		}
	}
}

func TestReplacementCandidate_None(t *testing.T) {
	pool := makePool(map[cards.Rarity]int{cards.RarityCommon: 3})
	pool = append(pool, cards.Card{ID: "no-image"})

	if _, ok := newTestGenerator(1).ReplacementCandidate(pool[:3], pool); ok {
		t.Error("expected no replacement when the only spare card lacks an image")
	}
}

func TestPackValue_ScenarioD(t *testing.T) {
	list := []cards.Card{
		{ID: "a", PriceUSD: "2.50"},
		{ID: "b"},
		{ID: "c", PriceUSD: "0.10"},
	}

	got := PackValue(list)
	if !got.Equal(decimal.RequireFromString("2.60")) {
		t.Errorf("PackValue() = %s, want 2.60", got)
	}
}

func TestPackValue_NoDrift(t *testing.T) {
	list := make([]cards.Card, 1000)
	for i := range list {
		list[i] = cards.Card{ID: fmt.Sprint(i), PriceUSD: "0.10"}
	}

	if got := PackValue(list); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("PackValue() = %s, want 100", got)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyUniform {
		t.Errorf("ParsePolicy(\"\") = %q, %v", p, err)
	}
	if p, err := ParsePolicy("rarity"); err != nil || p != PolicyRarity {
		t.Errorf("ParsePolicy(rarity) = %q, %v", p, err)
	}
	if _, err := ParsePolicy("weighted"); err == nil {
		t.Error("ParsePolicy(weighted) should fail")
	}
}
