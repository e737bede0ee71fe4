// Package memstore keeps the user's documents in process memory. It backs
// tests and the --ephemeral mode of the CLI.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

type setEntry struct {
	list      []cards.Card
	fetchedAt time.Time
}

// Store is an in-memory ledger.Store, collection.Store, booster.Store and
// catalog.Cache. Values are copied in and out.
type Store struct {
	mu         sync.RWMutex
	balance    ledger.Document
	collection []cards.Card
	boosters   []booster.Unopened
	sets       map[string]setEntry
	now        func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sets: make(map[string]setEntry),
		now:  time.Now,
	}
}

func (s *Store) LoadBalanceDocument(ctx context.Context) (ledger.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := s.balance
	doc.Transactions = append([]ledger.Transaction(nil), s.balance.Transactions...)
	if s.balance.LastRewardDate != nil {
		d := *s.balance.LastRewardDate
		doc.LastRewardDate = &d
	}
	return doc, nil
}

func (s *Store) SaveBalanceDocument(ctx context.Context, doc ledger.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.Transactions = append([]ledger.Transaction(nil), doc.Transactions...)
	if doc.LastRewardDate != nil {
		d := *doc.LastRewardDate
		doc.LastRewardDate = &d
	}
	s.balance = doc
	return nil
}

func (s *Store) LoadCollection(ctx context.Context) ([]cards.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]cards.Card{}, s.collection...), nil
}

// SaveCollection drops entries with a zero count.
func (s *Store) SaveCollection(ctx context.Context, list []cards.Card) error {
	owned := make([]cards.Card, 0, len(list))
	for _, c := range list {
		if c.Count > 0 {
			owned = append(owned, c)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection = owned
	return nil
}

func (s *Store) LoadUnopenedBoosters(ctx context.Context) ([]booster.Unopened, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]booster.Unopened{}, s.boosters...), nil
}

func (s *Store) SaveUnopenedBoosters(ctx context.Context, list []booster.Unopened) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boosters = append([]booster.Unopened{}, list...)
	return nil
}

func (s *Store) LoadSetCards(ctx context.Context, key string) ([]cards.Card, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sets[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return append([]cards.Card(nil), e.list...), e.fetchedAt, true, nil
}

func (s *Store) SaveSetCards(ctx context.Context, key string, list []cards.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[key] = setEntry{list: append([]cards.Card(nil), list...), fetchedAt: s.now()}
	return nil
}

// ResetUserData clears the balance document, the collection and the
// unopened boosters.
func (s *Store) ResetUserData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = ledger.Document{}
	s.collection = nil
	s.boosters = nil
	return nil
}
