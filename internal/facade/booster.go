package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/catalog"
	"github.com/blackmagic-app/blackmagic/internal/collection"
	"github.com/blackmagic-app/blackmagic/internal/events"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

// openedPack is a pack being looked at. Packs live in memory until kept or
// sold out.
type openedPack struct {
	id        uuid.UUID
	boosterID uuid.UUID
	setCode   string
	btype     booster.Type
	cards     []cards.Card
	pool      []cards.Card
	openedAt  time.Time
}

// PackView is an opened pack as shown to the user.
type PackView struct {
	ID        uuid.UUID       `json:"id"`
	BoosterID uuid.UUID       `json:"boosterId"`
	SetCode   string          `json:"setCode"`
	Type      booster.Type    `json:"type"`
	Cards     []cards.Card    `json:"cards"`
	Value     decimal.Decimal `json:"value"`
	OpenedAt  time.Time       `json:"openedAt"`

	// Replaced lists cards swapped out because their artwork could not be
	// loaded.
	Replaced []string `json:"replaced,omitempty"`
}

// SaleResult describes a completed sale.
type SaleResult struct {
	Sold    []cards.Card    `json:"sold"`
	Value   decimal.Decimal `json:"value"`
	Balance decimal.Decimal `json:"balance"`

	// Pack is the remaining pack after selling from it, nil when the pack
	// was closed.
	Pack *PackView `json:"pack,omitempty"`
}

// KeepResult describes a pack moved into the collection.
type KeepResult struct {
	Added       int `json:"added"`
	UniqueCards int `json:"uniqueCards"`
}

// BoosterFacade opens boosters and settles the opened packs.
type BoosterFacade struct {
	services *Services

	mu    sync.Mutex
	packs map[uuid.UUID]*openedPack
}

// NewBoosterFacade creates a new BoosterFacade with the given services.
func NewBoosterFacade(services *Services) *BoosterFacade {
	return &BoosterFacade{
		services: services,
		packs:    make(map[uuid.UUID]*openedPack),
	}
}

// ListUnopened returns unopened boosters grouped by set and type.
func (f *BoosterFacade) ListUnopened(ctx context.Context) ([]booster.Group, error) {
	list, err := f.services.Boosters.LoadUnopenedBoosters(ctx)
	if err != nil {
		return nil, appError("Could not load your boosters", err)
	}
	return booster.GroupCounts(list), nil
}

// Unopened returns every unopened booster.
func (f *BoosterFacade) Unopened(ctx context.Context) ([]booster.Unopened, error) {
	list, err := f.services.Boosters.LoadUnopenedBoosters(ctx)
	if err != nil {
		return nil, appError("Could not load your boosters", err)
	}
	return list, nil
}

// Open generates the contents of an unopened booster. Cards whose artwork
// cannot be loaded are swapped for other cards of the set. The booster is
// removed from the unopened list once the pack exists.
func (f *BoosterFacade) Open(ctx context.Context, boosterID uuid.UUID) (*PackView, error) {
	s := f.services
	settings := s.Settings()

	list, err := s.Boosters.LoadUnopenedBoosters(ctx)
	if err != nil {
		return nil, appError("Could not load your boosters", err)
	}
	b, ok := booster.Find(list, boosterID)
	if !ok {
		return nil, appError("Booster not found", fmt.Errorf("%w: booster %s", ErrNotFound, boosterID))
	}

	pool, err := f.pool(ctx, b.SetCode)
	if err != nil {
		return nil, appError(fmt.Sprintf("Could not load the cards of %s. Check your connection and try again.", strings.ToUpper(b.SetCode)), err)
	}

	contents, err := s.Generator.Open(settings.Policy, pool, settings.SlotSize)
	if err != nil {
		return nil, appError("This booster came out empty", fmt.Errorf("%w: %v", catalog.ErrDataUnavailable, err))
	}

	var replaced []string
	if settings.VerifyImages && s.Images != nil {
		contents, replaced = f.replaceUnavailable(ctx, contents, pool)
	}

	s.flowMu.Lock()
	list, err = s.Boosters.LoadUnopenedBoosters(ctx)
	if err == nil {
		var removed bool
		if list, removed = booster.Without(list, boosterID); !removed {
			err = fmt.Errorf("%w: booster %s", ErrNotFound, boosterID)
		} else {
			err = s.Boosters.SaveUnopenedBoosters(ctx, list)
		}
	}
	s.flowMu.Unlock()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, appError("Booster was already opened", err)
		}
		return nil, appError("Could not update your boosters", err)
	}

	pack := &openedPack{
		id:        uuid.New(),
		boosterID: b.ID,
		setCode:   b.SetCode,
		btype:     b.Type,
		cards:     contents,
		pool:      pool,
		openedAt:  s.now(),
	}
	f.mu.Lock()
	f.packs[pack.id] = pack
	view := pack.view()
	f.mu.Unlock()
	view.Replaced = replaced

	s.emit(ctx, events.TypeBoosterOpened, events.BoosterOpenedEvent{
		BoosterID: b.ID.String(),
		PackID:    pack.id.String(),
		SetCode:   b.SetCode,
		Cards:     len(view.Cards),
		Value:     view.Value,
	})
	s.logger().Info("Opened booster", "booster", b.ID, "pack", pack.id, "set", b.SetCode,
		"cards", len(view.Cards), "replaced", len(replaced), "value", view.Value.StringFixed(2))

	return view, nil
}

// Pack returns an opened pack.
func (f *BoosterFacade) Pack(ctx context.Context, packID uuid.UUID) (*PackView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pack, err := f.lookup(packID)
	if err != nil {
		return nil, err
	}
	return pack.view(), nil
}

// ReplaceCard swaps one card of an opened pack for a random card of the
// same set that is not already in the pack.
func (f *BoosterFacade) ReplaceCard(ctx context.Context, packID uuid.UUID, cardID string) (*PackView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pack, err := f.lookup(packID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(pack.cards, cardID)
	if idx < 0 {
		return nil, appError("Card is not in this pack", fmt.Errorf("%w: card %s", ErrNotFound, cardID))
	}

	candidate, ok := f.services.Generator.ReplacementCandidate(pack.cards, pack.pool)
	if !ok {
		return nil, appError("No replacement card is available", fmt.Errorf("%w: replacement for %s", ErrNotFound, cardID))
	}
	pack.cards[idx] = candidate
	return pack.view(), nil
}

// SellSelected sells the given cards of an opened pack. A sellCard credit
// is recorded only when the cards are worth something.
func (f *BoosterFacade) SellSelected(ctx context.Context, packID uuid.UUID, cardIDs []string) (*SaleResult, error) {
	if len(cardIDs) == 0 {
		return nil, appError("Select at least one card to sell", ErrInvalidInput)
	}
	return f.sell(ctx, packID, func(pack *openedPack) ([]cards.Card, []cards.Card, error) {
		selected := make(map[string]bool, len(cardIDs))
		for _, id := range cardIDs {
			selected[id] = true
		}
		var sold, kept []cards.Card
		for _, c := range pack.cards {
			if selected[c.ID] {
				sold = append(sold, c)
			} else {
				kept = append(kept, c)
			}
		}
		if len(sold) != len(selected) {
			return nil, nil, appError("Some selected cards are not in this pack", fmt.Errorf("%w: card in pack %s", ErrNotFound, packID))
		}
		return sold, kept, nil
	})
}

// SellAll sells every remaining card of an opened pack and closes it.
func (f *BoosterFacade) SellAll(ctx context.Context, packID uuid.UUID) (*SaleResult, error) {
	return f.sell(ctx, packID, func(pack *openedPack) ([]cards.Card, []cards.Card, error) {
		return pack.cards, nil, nil
	})
}

// Keep merges the remaining cards of an opened pack into the collection
// and closes the pack.
func (f *BoosterFacade) Keep(ctx context.Context, packID uuid.UUID) (*KeepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pack, err := f.lookup(packID)
	if err != nil {
		return nil, err
	}

	s := f.services
	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	owned, err := s.Collection.LoadCollection(ctx)
	if err != nil {
		return nil, appError("Could not load your collection", err)
	}
	merged := collection.Merge(owned, pack.cards)
	if err := s.Collection.SaveCollection(ctx, merged); err != nil {
		return nil, appError("Could not save your collection", err)
	}
	delete(f.packs, packID)

	result := &KeepResult{Added: len(pack.cards), UniqueCards: len(merged)}
	s.emit(ctx, events.TypeCollectionUpdated, events.CollectionUpdatedEvent{
		CardsAdded:  result.Added,
		UniqueCards: result.UniqueCards,
	})
	s.logger().Info("Kept pack", "pack", packID, "added", result.Added, "unique", result.UniqueCards)
	return result, nil
}

// sell splits the pack with split, credits the value of the sold part and
// keeps the rest open. The pack closes when nothing is left.
func (f *BoosterFacade) sell(ctx context.Context, packID uuid.UUID, split func(*openedPack) (sold, kept []cards.Card, err error)) (*SaleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pack, err := f.lookup(packID)
	if err != nil {
		return nil, err
	}
	sold, kept, err := split(pack)
	if err != nil {
		return nil, err
	}

	s := f.services
	value := booster.PackValue(sold)
	result := &SaleResult{Sold: sold, Value: value}

	if value.IsPositive() {
		description := fmt.Sprintf("Sold %d card(s) from %s booster", len(sold), strings.ToUpper(pack.setCode))
		balance, err := s.Ledger.RecordTransaction(ctx, ledger.TypeSellCard, value, description)
		if err != nil {
			return nil, appError("Could not record the sale", err)
		}
		result.Balance = balance
		s.emitBalance(ctx, balance, value, ledger.TypeSellCard)
	} else {
		balance, err := s.Ledger.Balance(ctx)
		if err != nil {
			return nil, appError("Could not read your balance", err)
		}
		result.Balance = balance
	}

	s.emit(ctx, events.TypeCardsSold, events.CardsSoldEvent{Source: "pack", Count: len(sold), Value: value})

	pack.cards = kept
	if len(kept) == 0 {
		delete(f.packs, packID)
	} else {
		result.Pack = pack.view()
	}

	s.logger().Info("Sold cards from pack", "pack", packID, "sold", len(sold), "value", value.StringFixed(2))
	return result, nil
}

// WarnOpenPacks logs every pack that is still open and returns how many
// there are. Open packs live in memory only, and their boosters have
// already left the unopened list.
func (f *BoosterFacade) WarnOpenPacks() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, pack := range f.packs {
		f.services.logger().Warn("Discarding unsettled pack",
			"pack", pack.id,
			"booster", pack.boosterID,
			"set", pack.setCode,
			"type", pack.btype,
			"cards", len(pack.cards),
			"value", booster.PackValue(pack.cards).StringFixed(2),
			"opened_at", pack.openedAt)
	}
	return len(f.packs)
}

// maxReplacementAttempts bounds how many candidates are probed for one card.
const maxReplacementAttempts = 8

// replaceUnavailable swaps cards whose artwork cannot be loaded for
// candidates whose artwork can. Cards found broken, and rejected
// candidates, are never drawn again. Cards with no working candidate are
// kept as they are.
func (f *BoosterFacade) replaceUnavailable(ctx context.Context, contents, pool []cards.Card) ([]cards.Card, []string) {
	s := f.services
	unavailable := s.Images.Unavailable(ctx, contents)
	if len(unavailable) == 0 {
		return contents, nil
	}

	excluded := make([]cards.Card, 0, len(unavailable))
	for _, id := range unavailable {
		if idx := indexOf(contents, id); idx >= 0 {
			excluded = append(excluded, contents[idx])
		}
	}

	var replaced []string
	for _, id := range unavailable {
		idx := indexOf(contents, id)
		if idx < 0 {
			continue
		}
		candidate, ok := f.workingCandidate(ctx, contents, pool, &excluded)
		if !ok {
			s.logger().Warn("No replacement for card without artwork", "card", id)
			continue
		}
		contents[idx] = candidate
		replaced = append(replaced, id)
	}
	return contents, replaced
}

// workingCandidate draws candidates outside contents and excluded until one
// has loadable artwork. Rejected candidates are appended to excluded.
func (f *BoosterFacade) workingCandidate(ctx context.Context, contents, pool []cards.Card, excluded *[]cards.Card) (cards.Card, bool) {
	s := f.services
	for attempt := 0; attempt < maxReplacementAttempts; attempt++ {
		taken := make([]cards.Card, 0, len(contents)+len(*excluded))
		taken = append(append(taken, contents...), *excluded...)

		candidate, ok := s.Generator.ReplacementCandidate(taken, pool)
		if !ok {
			return cards.Card{}, false
		}
		if len(s.Images.Unavailable(ctx, []cards.Card{candidate})) == 0 {
			return candidate, true
		}
		*excluded = append(*excluded, candidate)
	}
	return cards.Card{}, false
}

func (f *BoosterFacade) pool(ctx context.Context, setCode string) ([]cards.Card, error) {
	if product, ok := booster.FindProduct(setCode); ok {
		return f.services.Catalog.FetchCardsForProduct(ctx, product)
	}
	return f.services.Catalog.FetchCardsForSet(ctx, setCode)
}

// lookup must be called with f.mu held.
func (f *BoosterFacade) lookup(packID uuid.UUID) (*openedPack, error) {
	pack, ok := f.packs[packID]
	if !ok {
		return nil, appError("Pack not found", fmt.Errorf("%w: pack %s", ErrNotFound, packID))
	}
	return pack, nil
}

func (p *openedPack) view() *PackView {
	return &PackView{
		ID:        p.id,
		BoosterID: p.boosterID,
		SetCode:   p.setCode,
		Type:      p.btype,
		Cards:     append([]cards.Card(nil), p.cards...),
		Value:     booster.PackValue(p.cards),
		OpenedAt:  p.openedAt,
	}
}

func indexOf(list []cards.Card, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}
