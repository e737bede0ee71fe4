package events

import "github.com/shopspring/decimal"

// Event types.
const (
	TypeBalanceUpdated    = "balance:updated"
	TypeBoosterPurchased  = "booster:purchased"
	TypeBoosterOpened     = "booster:opened"
	TypeCollectionUpdated = "collection:updated"
	TypeHistoryCleared    = "history:cleared"
	TypeCardsSold         = "cards:sold"
)

// BalanceUpdatedEvent is the payload for balance:updated events.
type BalanceUpdatedEvent struct {
	Balance decimal.Decimal `json:"balance"`
	Change  decimal.Decimal `json:"change"`
	Reason  string          `json:"reason"` // Transaction type that caused the change
}

// BoosterPurchasedEvent is the payload for booster:purchased events.
type BoosterPurchasedEvent struct {
	SetCode  string          `json:"setCode"`
	Type     string          `json:"type"`
	Quantity int             `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

// BoosterOpenedEvent is the payload for booster:opened events.
type BoosterOpenedEvent struct {
	BoosterID string          `json:"boosterId"`
	PackID    string          `json:"packId"`
	SetCode   string          `json:"setCode"`
	Cards     int             `json:"cards"`
	Value     decimal.Decimal `json:"value"`
}

// CollectionUpdatedEvent is the payload for collection:updated events.
type CollectionUpdatedEvent struct {
	CardsAdded   int `json:"cardsAdded"`
	CardsRemoved int `json:"cardsRemoved"`
	UniqueCards  int `json:"uniqueCards"`
}

// HistoryClearedEvent is the payload for history:cleared events.
type HistoryClearedEvent struct {
	Removed int `json:"removed"` // Number of transactions dropped
}

// CardsSoldEvent is the payload for cards:sold events.
type CardsSoldEvent struct {
	Source string          `json:"source"` // "pack" or "collection"
	Count  int             `json:"count"`
	Value  decimal.Decimal `json:"value"`
}
