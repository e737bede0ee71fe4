package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
	"github.com/blackmagic-app/blackmagic/internal/storage/models"
	"github.com/blackmagic-app/blackmagic/internal/storage/repository"
)

// Service stores the user's documents and the catalog cache. It satisfies
// ledger.Store, collection.Store, booster.Store and catalog.Cache.
type Service struct {
	db        *DB
	documents repository.DocumentRepository
	setCards  repository.SetCardRepository
	now       func() time.Time
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{
		db:        db,
		documents: repository.NewDocumentRepository(db.Conn()),
		setCards:  repository.NewSetCardRepository(db.Conn()),
		now:       time.Now,
	}
}

// DB returns the underlying database.
func (s *Service) DB() *DB {
	return s.db
}

// Close closes the database.
func (s *Service) Close() error {
	return s.db.Close()
}

// LoadBalanceDocument returns the balance document, or the zero document
// on first run.
func (s *Service) LoadBalanceDocument(ctx context.Context) (ledger.Document, error) {
	var doc ledger.Document
	if _, err := s.load(ctx, models.DocBalance, &doc); err != nil {
		return ledger.Document{}, err
	}
	return doc, nil
}

// SaveBalanceDocument writes balance, history and reward date in one row.
func (s *Service) SaveBalanceDocument(ctx context.Context, doc ledger.Document) error {
	return s.save(ctx, models.DocBalance, doc)
}

// LoadCollection returns the owned cards.
func (s *Service) LoadCollection(ctx context.Context) ([]cards.Card, error) {
	list := []cards.Card{}
	if _, err := s.load(ctx, models.DocCollection, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveCollection replaces the owned cards. Entries with a zero count are
// not written.
func (s *Service) SaveCollection(ctx context.Context, list []cards.Card) error {
	owned := make([]cards.Card, 0, len(list))
	for _, c := range list {
		if c.Count > 0 {
			owned = append(owned, c)
		}
	}
	return s.save(ctx, models.DocCollection, owned)
}

// LoadUnopenedBoosters returns the unopened boosters.
func (s *Service) LoadUnopenedBoosters(ctx context.Context) ([]booster.Unopened, error) {
	list := []booster.Unopened{}
	if _, err := s.load(ctx, models.DocUnopenedBoosters, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveUnopenedBoosters replaces the unopened boosters.
func (s *Service) SaveUnopenedBoosters(ctx context.Context, list []booster.Unopened) error {
	if list == nil {
		list = []booster.Unopened{}
	}
	return s.save(ctx, models.DocUnopenedBoosters, list)
}

// LoadSetCards returns a cached pool and when it was fetched.
func (s *Service) LoadSetCards(ctx context.Context, key string) ([]cards.Card, time.Time, bool, error) {
	rows, err := s.setCards.GetPool(ctx, key)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	if len(rows) == 0 {
		return nil, time.Time{}, false, nil
	}

	list := make([]cards.Card, 0, len(rows))
	fetchedAt := rows[0].FetchedAt
	for _, row := range rows {
		var c cards.Card
		if err := json.Unmarshal(row.Data, &c); err != nil {
			return nil, time.Time{}, false, fmt.Errorf("failed to decode cached card %s: %w", row.CardID, err)
		}
		list = append(list, c)
		if row.FetchedAt.Before(fetchedAt) {
			fetchedAt = row.FetchedAt
		}
	}
	return list, fetchedAt, true, nil
}

// SaveSetCards replaces the pool cached under key.
func (s *Service) SaveSetCards(ctx context.Context, key string, list []cards.Card) error {
	now := s.now()
	rows := make([]*models.SetCard, 0, len(list))
	for i, c := range list {
		c.Count = 0
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to encode card %s: %w", c.ID, err)
		}
		rows = append(rows, &models.SetCard{
			CacheKey:  key,
			CardID:    c.ID,
			Position:  i,
			SetCode:   strings.ToLower(c.SetCode),
			Name:      c.Name,
			Rarity:    string(c.Rarity),
			Data:      data,
			FetchedAt: now,
		})
	}

	return RetryOnBusy(ctx, func() error {
		return s.setCards.ReplacePool(ctx, key, rows)
	})
}

// PruneSetCards drops cached pools fetched more than maxAge ago.
func (s *Service) PruneSetCards(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.setCards.DeleteOlderThan(ctx, s.now().Add(-maxAge))
}

// CachedSetKeys lists the cached pool keys.
func (s *Service) CachedSetKeys(ctx context.Context) ([]string, error) {
	return s.setCards.GetCachedKeys(ctx)
}

// ResetUserData deletes the three user documents in one transaction.
func (s *Service) ResetUserData(ctx context.Context) error {
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, key := range []string{models.DocBalance, models.DocCollection, models.DocUnopenedBoosters} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// load decodes the document under key into v. found is false, and v is
// left untouched, when nothing is stored.
func (s *Service) load(ctx context.Context, key string, v interface{}) (found bool, err error) {
	var doc *models.Document
	err = RetryOnBusy(ctx, func() error {
		var err error
		doc, err = s.documents.Get(ctx, key)
		return err
	})
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	if err := json.Unmarshal(doc.Data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s document: %w", key, err)
	}
	return true, nil
}

func (s *Service) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", key, err)
	}
	return RetryOnBusy(ctx, func() error {
		return s.documents.Put(ctx, key, data)
	})
}
