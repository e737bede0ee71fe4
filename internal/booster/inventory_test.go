package booster

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCounts(t *testing.T) {
	list := []Unopened{
		NewUnopened("TDM", TypePlay, ""),
		NewUnopened("tdm", TypePlay, ""),
		NewUnopened("tdm", TypeCollector, ""),
		NewUnopened("neo", TypePlay, "#FF1493"),
	}

	groups := GroupCounts(list)
	require.Len(t, groups, 3)
	assert.Equal(t, Group{Key: Key{SetCode: "neo", Type: TypePlay}, Count: 1}, groups[0])
	assert.Equal(t, Group{Key: Key{SetCode: "tdm", Type: TypeCollector}, Count: 1}, groups[1])
	assert.Equal(t, Group{Key: Key{SetCode: "tdm", Type: TypePlay}, Count: 2}, groups[2])
}

func TestWithout(t *testing.T) {
	a := NewUnopened("tdm", TypePlay, "")
	b := NewUnopened("tdm", TypePlay, "")

	rest, ok := Without([]Unopened{a, b}, a.ID)
	require.True(t, ok)
	require.Len(t, rest, 1)
	assert.Equal(t, b.ID, rest[0].ID)

	_, ok = Without(rest, a.ID)
	assert.False(t, ok)
}

func TestNewUnopened_UniqueIDs(t *testing.T) {
	a := NewUnopened("woe", TypePlay, "")
	b := NewUnopened("woe", TypePlay, "")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestFindProduct(t *testing.T) {
	p, ok := FindProduct("TDM")
	require.True(t, ok)
	assert.Equal(t, "TARKIR: DRAGONSTORM", p.SetName)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("26.28")))

	_, ok = FindProduct("xyz")
	assert.False(t, ok)
}

func TestProduct_PriceFor(t *testing.T) {
	p, _ := FindProduct("otj")
	multiplier := decimal.RequireFromString("2.5")

	assert.True(t, p.PriceFor(TypePlay, multiplier).Equal(decimal.RequireFromString("19.80")))
	assert.True(t, p.PriceFor(TypeCollector, multiplier).Equal(decimal.RequireFromString("49.50")))
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"": TypePlay, "play": TypePlay, "Collector": TypeCollector} {
		got, err := ParseType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("draft")
	assert.Error(t, err)
}
