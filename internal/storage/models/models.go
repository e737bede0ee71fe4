// Package models holds the rows stored by the repositories.
package models

import "time"

// Document keys. Each key holds one whole JSON document.
const (
	DocBalance          = "balance"
	DocCollection       = "collection"
	DocUnopenedBoosters = "unopened_boosters"
)

// Document is one persisted JSON document.
type Document struct {
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// SetCard is a cached catalog card belonging to a cached pool. CacheKey
// identifies the pool ("tdm" or "tdm:1-286").
type SetCard struct {
	CacheKey  string
	CardID    string
	Position  int
	SetCode   string
	Name      string
	Rarity    string
	Data      []byte
	FetchedAt time.Time
}
