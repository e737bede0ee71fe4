// Package cards defines the card model shared by the catalog, the pack
// generator and the collection.
package cards

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rarity is a card's rarity tier. Values outside the known tiers are kept
// verbatim so catalog data with unexpected rarities ("special", "bonus")
// still round-trips.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityMythic   Rarity = "mythic"
)

// ParseRarity normalizes a catalog rarity string.
func ParseRarity(s string) Rarity {
	return Rarity(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether r is one of the four standard tiers.
func (r Rarity) Known() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityMythic:
		return true
	}
	return false
}

// Card is a single card as seen by the user: catalog metadata plus the
// number of copies owned.
type Card struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TypeLine   string `json:"type_line,omitempty"`
	ManaCost   string `json:"mana_cost,omitempty"`
	OracleText string `json:"oracle_text,omitempty"`
	Rarity     Rarity `json:"rarity,omitempty"`
	SetCode    string `json:"set,omitempty"`
	SetName    string `json:"set_name,omitempty"`

	// ImageURL is empty when the catalog has no artwork for the card.
	ImageURL string `json:"image_url,omitempty"`

	// PriceUSD is the catalog market price kept as the catalog's decimal
	// string ("0.80"). Empty when the catalog has no price.
	PriceUSD string `json:"price_usd,omitempty"`

	// Count is the number of owned copies. Zero means the card is not in
	// the collection.
	Count int `json:"count"`
}

// HasImage reports whether the card has an image reference.
func (c Card) HasImage() bool {
	return c.ImageURL != ""
}

// Price returns the market price, or zero when it is absent or unparsable.
func (c Card) Price() decimal.Decimal {
	if c.PriceUSD == "" {
		return decimal.Zero
	}
	p, err := decimal.NewFromString(c.PriceUSD)
	if err != nil {
		return decimal.Zero
	}
	return p
}

// String implements fmt.Stringer.
func (c Card) String() string {
	set := c.SetCode
	if set == "" {
		set = "-"
	}
	rarity := string(c.Rarity)
	if rarity == "" {
		rarity = "-"
	}
	return fmt.Sprintf("Card(name: %s, set: %s, rarity: %s)", c.Name, set, rarity)
}

// IDs returns the identities of the given cards in order.
func IDs(list []Card) []string {
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.ID
	}
	return ids
}
