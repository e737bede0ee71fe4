package facade

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/collection"
	"github.com/blackmagic-app/blackmagic/internal/events"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

// CollectionFacade handles all collection-related operations.
type CollectionFacade struct {
	services *Services
}

// NewCollectionFacade creates a new CollectionFacade with the given services.
func NewCollectionFacade(services *Services) *CollectionFacade {
	return &CollectionFacade{services: services}
}

// GetCollection returns the owned cards matching filter.
func (f *CollectionFacade) GetCollection(ctx context.Context, filter collection.Filter) ([]cards.Card, error) {
	owned, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(owned), nil
}

// Search returns owned cards whose names fuzzy-match query.
func (f *CollectionFacade) Search(ctx context.Context, query string) ([]cards.Card, error) {
	owned, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	return collection.Search(owned, query), nil
}

// Card returns one owned card.
func (f *CollectionFacade) Card(ctx context.Context, cardID string) (cards.Card, error) {
	owned, err := f.load(ctx)
	if err != nil {
		return cards.Card{}, err
	}
	c, ok := collection.Find(owned, cardID)
	if !ok {
		return cards.Card{}, appError("You do not own this card", fmt.Errorf("%w: %s", collection.ErrCardNotOwned, cardID))
	}
	return c, nil
}

// Stats summarizes the collection.
func (f *CollectionFacade) Stats(ctx context.Context) (collection.Stats, error) {
	owned, err := f.load(ctx)
	if err != nil {
		return collection.Stats{}, err
	}
	return collection.ComputeStats(owned), nil
}

// Value returns the market value of the collection.
func (f *CollectionFacade) Value(ctx context.Context) (decimal.Decimal, error) {
	owned, err := f.load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return collection.Value(owned), nil
}

// Sell removes count copies of a card and credits their value. The
// collection is written first; if the credit then fails, a
// *ledger.PartialFailureError is returned and logged.
func (f *CollectionFacade) Sell(ctx context.Context, cardID string, count int) (*SaleResult, error) {
	if count < 1 {
		return nil, appError("Count must be at least 1", ErrInvalidInput)
	}

	s := f.services
	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	owned, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	card, ok := collection.Find(owned, cardID)
	if !ok {
		return nil, appError("You do not own this card", fmt.Errorf("%w: %s", collection.ErrCardNotOwned, cardID))
	}

	remaining, removed, err := collection.Remove(owned, cardID, count)
	if err != nil {
		if errors.Is(err, collection.ErrCardNotOwned) {
			return nil, appError("You do not own this card", err)
		}
		return nil, appError("Could not sell this card", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	value := card.Price().Mul(decimal.NewFromInt(int64(removed)))
	sold := card
	sold.Count = removed

	if err := s.Collection.SaveCollection(ctx, remaining); err != nil {
		return nil, appError("Could not save your collection", err)
	}
	s.emit(ctx, events.TypeCollectionUpdated, events.CollectionUpdatedEvent{
		CardsRemoved: removed,
		UniqueCards:  len(remaining),
	})

	s.emit(ctx, events.TypeCardsSold, events.CardsSoldEvent{Source: "collection", Count: removed, Value: value})

	result := &SaleResult{Sold: []cards.Card{sold}, Value: value}
	if !value.IsPositive() {
		balance, err := s.Ledger.Balance(ctx)
		if err != nil {
			return nil, appError("Could not read your balance", err)
		}
		result.Balance = balance
		return result, nil
	}

	description := fmt.Sprintf("Sold %d x %s", removed, card.Name)
	balance, err := s.Ledger.RecordTransaction(ctx, ledger.TypeSellCard, value, description)
	if err != nil {
		pf := &ledger.PartialFailureError{Op: "sell", Applied: "collection", Pending: "balance", Err: err}
		s.logger().Error("Card removed from collection but sale not credited",
			"card", cardID, "name", card.Name, "count", removed, "value", value.StringFixed(2), "error", err)
		return nil, appError("The card was removed but the sale could not be credited", pf)
	}
	result.Balance = balance
	s.emitBalance(ctx, balance, value, ledger.TypeSellCard)

	s.logger().Info("Sold card", "card", cardID, "count", removed, "value", value.StringFixed(2))
	return result, nil
}

// RefreshPrices updates the prices of owned cards from the catalog.
func (f *CollectionFacade) RefreshPrices(ctx context.Context) (int, error) {
	s := f.services
	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	owned, err := f.load(ctx)
	if err != nil {
		return 0, err
	}
	if len(owned) == 0 {
		return 0, nil
	}

	fresh, err := s.Catalog.RefreshPrices(ctx, owned)
	if err != nil {
		return 0, appError("Could not refresh prices. Check your connection and try again.", err)
	}

	changed := 0
	for i := range owned {
		if owned[i].PriceUSD != fresh[i].PriceUSD {
			changed++
		}
	}
	if err := s.Collection.SaveCollection(ctx, fresh); err != nil {
		return 0, appError("Could not save your collection", err)
	}

	s.logger().Info("Refreshed collection prices", "cards", len(owned), "changed", changed)
	return changed, nil
}

func (f *CollectionFacade) load(ctx context.Context) ([]cards.Card, error) {
	owned, err := f.services.Collection.LoadCollection(ctx)
	if err != nil {
		return nil, appError("Could not load your collection", err)
	}
	return owned, nil
}
