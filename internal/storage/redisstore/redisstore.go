// Package redisstore keeps the user's documents in Redis so several
// frontends can share one wallet and collection.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "blackmagic:"

const (
	keyBalance    = "balance"
	keyCollection = "collection"
	keyBoosters   = "unopened_boosters"
	keySetPrefix  = "set:"
)

// Options configures a Store.
type Options struct {
	Prefix string

	// SetCacheTTL expires cached pools in Redis. Zero keeps them forever.
	SetCacheTTL time.Duration
}

// Store implements ledger.Store, collection.Store, booster.Store and
// catalog.Cache on top of Redis strings holding JSON documents.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	setTTL time.Duration
	now    func() time.Time
}

// New wraps an existing client.
func New(rdb redis.UniversalClient, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return &Store{
		rdb:    rdb,
		prefix: opts.Prefix,
		setTTL: opts.SetCacheTTL,
		now:    time.Now,
	}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(rdb, opts), nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) LoadBalanceDocument(ctx context.Context) (ledger.Document, error) {
	var doc ledger.Document
	if _, err := s.get(ctx, keyBalance, &doc); err != nil {
		return ledger.Document{}, err
	}
	return doc, nil
}

func (s *Store) SaveBalanceDocument(ctx context.Context, doc ledger.Document) error {
	return s.set(ctx, keyBalance, doc, 0)
}

func (s *Store) LoadCollection(ctx context.Context) ([]cards.Card, error) {
	list := []cards.Card{}
	if _, err := s.get(ctx, keyCollection, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveCollection drops entries with a zero count.
func (s *Store) SaveCollection(ctx context.Context, list []cards.Card) error {
	owned := make([]cards.Card, 0, len(list))
	for _, c := range list {
		if c.Count > 0 {
			owned = append(owned, c)
		}
	}
	return s.set(ctx, keyCollection, owned, 0)
}

func (s *Store) LoadUnopenedBoosters(ctx context.Context) ([]booster.Unopened, error) {
	list := []booster.Unopened{}
	if _, err := s.get(ctx, keyBoosters, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) SaveUnopenedBoosters(ctx context.Context, list []booster.Unopened) error {
	if list == nil {
		list = []booster.Unopened{}
	}
	return s.set(ctx, keyBoosters, list, 0)
}

type cachedPool struct {
	FetchedAt time.Time    `json:"fetchedAt"`
	Cards     []cards.Card `json:"cards"`
}

func (s *Store) LoadSetCards(ctx context.Context, key string) ([]cards.Card, time.Time, bool, error) {
	var p cachedPool
	found, err := s.get(ctx, keySetPrefix+key, &p)
	if err != nil || !found {
		return nil, time.Time{}, false, err
	}
	return p.Cards, p.FetchedAt, true, nil
}

func (s *Store) SaveSetCards(ctx context.Context, key string, list []cards.Card) error {
	return s.set(ctx, keySetPrefix+key, cachedPool{FetchedAt: s.now().UTC(), Cards: list}, s.setTTL)
}

// ResetUserData deletes the three user documents in one round trip.
func (s *Store) ResetUserData(ctx context.Context) error {
	err := s.rdb.Del(ctx, s.key(keyBalance), s.key(keyCollection), s.key(keyBoosters)).Err()
	if err != nil {
		return fmt.Errorf("failed to reset user data: %w", err)
	}
	return nil
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) get(ctx context.Context, name string, v interface{}) (bool, error) {
	data, err := s.rdb.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, name string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := s.rdb.Set(ctx, s.key(name), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	return nil
}
