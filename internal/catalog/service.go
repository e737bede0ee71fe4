// Package catalog turns Scryfall data into the card pools boosters are drawn
// from, with an in-process LRU in front of a persistent set cache.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/cards/scryfall"
)

const (
	DefaultCacheTTL = 24 * time.Hour
	DefaultLRUSize  = 32
)

// ErrDataUnavailable is returned when a set's cards could not be loaded or
// the catalog returned none.
var ErrDataUnavailable = errors.New("could not load this set")

// Fetcher is the subset of the Scryfall client the catalog uses.
type Fetcher interface {
	SearchSet(ctx context.Context, setCode string) ([]scryfall.Card, error)
	SearchSetRange(ctx context.Context, setCode string, first, last int) ([]scryfall.Card, error)
	GetCardNamed(ctx context.Context, name string) (*scryfall.Card, error)
	GetSets(ctx context.Context) (*scryfall.SetList, error)
	GetCardsByIDs(ctx context.Context, ids []string) ([]scryfall.Card, []string, error)
}

// Cache persists fetched pools between runs. found is false when nothing
// is stored under key.
type Cache interface {
	LoadSetCards(ctx context.Context, key string) (list []cards.Card, fetchedAt time.Time, found bool, err error)
	SaveSetCards(ctx context.Context, key string, list []cards.Card) error
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	CacheTTL time.Duration
	LRUSize  int

	// KnownSetCodes back set-code suggestions when the set list cannot be
	// fetched.
	KnownSetCodes []string

	Logger *slog.Logger
	Now    func() time.Time
}

// SetInfo describes a set available in the catalog.
type SetInfo struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	ReleasedAt string `json:"releasedAt,omitempty"`
	SetType    string `json:"setType,omitempty"`
	CardCount  int    `json:"cardCount"`
	IconURL    string `json:"iconUrl,omitempty"`
}

type pool struct {
	cards     []cards.Card
	fetchedAt time.Time
}

// Service loads card pools by set.
type Service struct {
	client Fetcher
	cache  Cache
	pools  *lru.Cache
	ttl    time.Duration
	known  []string
	logger *slog.Logger
	now    func() time.Time

	setsMu sync.Mutex
	sets   []SetInfo
}

// NewService creates a catalog service. cache may be nil.
func NewService(client Fetcher, cache Cache, opts Options) (*Service, error) {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.LRUSize <= 0 {
		opts.LRUSize = DefaultLRUSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	pools, err := lru.New(opts.LRUSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool cache: %w", err)
	}

	return &Service{
		client: client,
		cache:  cache,
		pools:  pools,
		ttl:    opts.CacheTTL,
		known:  opts.KnownSetCodes,
		logger: opts.Logger.With("component", "catalog"),
		now:    opts.Now,
	}, nil
}

// FetchCardsForSet returns every card in a set.
func (s *Service) FetchCardsForSet(ctx context.Context, setCode string) ([]cards.Card, error) {
	code := strings.ToLower(strings.TrimSpace(setCode))
	return s.load(ctx, code, func(ctx context.Context) ([]scryfall.Card, error) {
		return s.client.SearchSet(ctx, code)
	})
}

// FetchCardsInRange returns the cards of a set with collector numbers in
// [first, last]. A non-positive range falls back to the whole set.
func (s *Service) FetchCardsInRange(ctx context.Context, setCode string, first, last int) ([]cards.Card, error) {
	if first <= 0 || last < first {
		return s.FetchCardsForSet(ctx, setCode)
	}

	code := strings.ToLower(strings.TrimSpace(setCode))
	key := fmt.Sprintf("%s:%d-%d", code, first, last)
	return s.load(ctx, key, func(ctx context.Context) ([]scryfall.Card, error) {
		return s.client.SearchSetRange(ctx, code, first, last)
	})
}

// CardNamed looks up a single card by exact name.
func (s *Service) CardNamed(ctx context.Context, name string) (cards.Card, error) {
	card, err := s.client.GetCardNamed(ctx, name)
	if err != nil {
		if scryfall.IsNotFound(err) {
			return cards.Card{}, fmt.Errorf("card %q not found: %w", name, err)
		}
		return cards.Card{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return FromScryfall(*card), nil
}

// Sets returns the catalog's sets. The list is fetched once per process.
func (s *Service) Sets(ctx context.Context) ([]SetInfo, error) {
	s.setsMu.Lock()
	defer s.setsMu.Unlock()

	if s.sets != nil {
		return s.sets, nil
	}

	list, err := s.client.GetSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	sets := make([]SetInfo, 0, len(list.Data))
	for _, set := range list.Data {
		sets = append(sets, SetInfo{
			Code:       set.Code,
			Name:       set.Name,
			ReleasedAt: set.ReleasedAt,
			SetType:    set.SetType,
			CardCount:  set.CardCount,
			IconURL:    set.IconSVGURI,
		})
	}
	s.sets = sets
	return sets, nil
}

// SuggestSetCodes returns known set codes close to code.
func (s *Service) SuggestSetCodes(ctx context.Context, code string) []string {
	known := s.known
	if sets, err := s.Sets(ctx); err == nil {
		known = make([]string, len(sets))
		for i, set := range sets {
			known[i] = set.Code
		}
	} else {
		s.logger.Debug("Falling back to built-in set codes for suggestions", "error", err)
	}
	return SuggestSetCode(code, known, 3)
}

// RefreshPrices updates prices and images of the given cards from the
// catalog. Owned counts are kept; cards the catalog no longer knows are
// returned unchanged.
func (s *Service) RefreshPrices(ctx context.Context, list []cards.Card) ([]cards.Card, error) {
	if len(list) == 0 {
		return list, nil
	}

	fresh, notFound, err := s.client.GetCardsByIDs(ctx, cards.IDs(list))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if len(notFound) > 0 {
		s.logger.Warn("Cards missing from catalog during price refresh", "count", len(notFound))
	}

	byID := make(map[string]scryfall.Card, len(fresh))
	for _, c := range fresh {
		byID[c.ID] = c
	}

	out := make([]cards.Card, len(list))
	for i, owned := range list {
		out[i] = owned
		sc, ok := byID[owned.ID]
		if !ok {
			continue
		}
		updated := FromScryfall(sc)
		updated.Count = owned.Count
		out[i] = updated
	}
	return out, nil
}

// Invalidate drops a set from the in-process cache.
func (s *Service) Invalidate(setCode string) {
	code := strings.ToLower(strings.TrimSpace(setCode))
	for _, key := range s.pools.Keys() {
		k := key.(string)
		if k == code || strings.HasPrefix(k, code+":") {
			s.pools.Remove(k)
		}
	}
}

func (s *Service) load(ctx context.Context, key string, fetch func(context.Context) ([]scryfall.Card, error)) ([]cards.Card, error) {
	if v, ok := s.pools.Get(key); ok {
		p := v.(pool)
		if s.fresh(p.fetchedAt) {
			return clone(p.cards), nil
		}
	}

	var stale []cards.Card
	if s.cache != nil {
		list, fetchedAt, found, err := s.cache.LoadSetCards(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("Failed to read set cache", "key", key, "error", err)
		case found && len(list) > 0 && s.fresh(fetchedAt):
			s.pools.Add(key, pool{cards: list, fetchedAt: fetchedAt})
			return clone(list), nil
		case found:
			stale = list
		}
	}

	fetched, err := fetch(ctx)
	if err != nil {
		if len(stale) > 0 {
			s.logger.Warn("Catalog fetch failed, serving stale cache", "key", key, "error", err)
			return clone(stale), nil
		}
		return nil, fmt.Errorf("%w (%s): %v", ErrDataUnavailable, key, err)
	}

	list := make([]cards.Card, 0, len(fetched))
	for _, c := range fetched {
		list = append(list, FromScryfall(c))
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w (%s): catalog returned no cards", ErrDataUnavailable, key)
	}

	now := s.now()
	s.pools.Add(key, pool{cards: list, fetchedAt: now})
	if s.cache != nil {
		if err := s.cache.SaveSetCards(ctx, key, list); err != nil {
			s.logger.Warn("Failed to write set cache", "key", key, "error", err)
		}
	}

	s.logger.Info("Loaded set from catalog", "key", key, "cards", len(list))
	return clone(list), nil
}

func (s *Service) fresh(fetchedAt time.Time) bool {
	return s.now().Sub(fetchedAt) < s.ttl
}

// FromScryfall converts a Scryfall printing into a card.
func FromScryfall(c scryfall.Card) cards.Card {
	card := cards.Card{
		ID:         c.ID,
		Name:       c.Name,
		TypeLine:   c.TypeLine,
		ManaCost:   c.ManaCost,
		OracleText: c.OracleText,
		Rarity:     cards.ParseRarity(c.Rarity),
		SetCode:    strings.ToLower(c.SetCode),
		SetName:    c.SetName,
		ImageURL:   c.NormalImage(),
	}
	if c.Prices.USD != nil {
		card.PriceUSD = *c.Prices.USD
	}
	if len(c.CardFaces) > 0 {
		front := c.CardFaces[0]
		if card.TypeLine == "" {
			card.TypeLine = front.TypeLine
		}
		if card.ManaCost == "" {
			card.ManaCost = front.ManaCost
		}
		if card.OracleText == "" {
			card.OracleText = front.OracleText
		}
	}
	return card
}

func clone(list []cards.Card) []cards.Card {
	return append([]cards.Card(nil), list...)
}

// FetchCardsForProduct returns the pool a product's boosters draw from.
func (s *Service) FetchCardsForProduct(ctx context.Context, p booster.Product) ([]cards.Card, error) {
	return s.FetchCardsInRange(ctx, p.SetCode, p.FirstNumber, p.LastNumber)
}
