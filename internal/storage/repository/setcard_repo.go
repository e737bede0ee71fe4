package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blackmagic-app/blackmagic/internal/storage/models"
)

// SetCardRepository provides methods for managing pools cached from Scryfall.
type SetCardRepository interface {
	// ReplacePool stores cards as the pool for cacheKey, replacing any
	// previous pool under that key.
	ReplacePool(ctx context.Context, cacheKey string, cards []*models.SetCard) error

	// GetPool returns the cards cached under cacheKey in their stored order.
	GetPool(ctx context.Context, cacheKey string) ([]*models.SetCard, error)

	// IsCached checks whether anything is cached under cacheKey.
	IsCached(ctx context.Context, cacheKey string) (bool, error)

	// GetCachedKeys returns every cached pool key.
	GetCachedKeys(ctx context.Context) ([]string, error)

	// DeletePool removes a pool (for cache invalidation).
	DeletePool(ctx context.Context, cacheKey string) error

	// DeleteOlderThan removes pools fetched before cutoff and returns the
	// number of cards removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// setCardRepository implements SetCardRepository using SQLite.
type setCardRepository struct {
	db *sql.DB
}

// NewSetCardRepository creates a new set card repository.
func NewSetCardRepository(db *sql.DB) SetCardRepository {
	return &setCardRepository{db: db}
}

// ReplacePool stores cards as the pool for cacheKey in one transaction.
func (r *setCardRepository) ReplacePool(ctx context.Context, cacheKey string, cards []*models.SetCard) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Explicitly ignore error - will be nil if Commit() succeeds
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM set_cards WHERE cache_key = ?", cacheKey); err != nil {
		return fmt.Errorf("failed to clear pool %s: %w", cacheKey, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO set_cards (cache_key, card_id, position, set_code, name, rarity, data, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key, card_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, card := range cards {
		_, err := stmt.ExecContext(ctx,
			cacheKey, card.CardID, card.Position, card.SetCode, card.Name, card.Rarity,
			string(card.Data), card.FetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save card %s: %w", card.CardID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPool returns the cards cached under cacheKey.
func (r *setCardRepository) GetPool(ctx context.Context, cacheKey string) ([]*models.SetCard, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cache_key, card_id, position, set_code, name, COALESCE(rarity, ''), data, fetched_at
		FROM set_cards
		WHERE cache_key = ?
		ORDER BY position
	`, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool %s: %w", cacheKey, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var cards []*models.SetCard
	for rows.Next() {
		card := &models.SetCard{}
		var data string
		if err := rows.Scan(&card.CacheKey, &card.CardID, &card.Position, &card.SetCode,
			&card.Name, &card.Rarity, &data, &card.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan set card: %w", err)
		}
		card.Data = []byte(data)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating set cards: %w", err)
	}
	return cards, nil
}

// IsCached checks whether anything is cached under cacheKey.
func (r *setCardRepository) IsCached(ctx context.Context, cacheKey string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM set_cards WHERE cache_key = ?", cacheKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check pool %s: %w", cacheKey, err)
	}
	return count > 0, nil
}

// GetCachedKeys returns every cached pool key.
func (r *setCardRepository) GetCachedKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT cache_key FROM set_cards ORDER BY cache_key")
	if err != nil {
		return nil, fmt.Errorf("failed to query cached pools: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan pool key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeletePool removes a pool.
func (r *setCardRepository) DeletePool(ctx context.Context, cacheKey string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM set_cards WHERE cache_key = ?", cacheKey)
	if err != nil {
		return fmt.Errorf("failed to delete pool %s: %w", cacheKey, err)
	}
	return nil
}

// DeleteOlderThan removes cards fetched before cutoff.
func (r *setCardRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM set_cards WHERE fetched_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune set cards: %w", err)
	}
	return res.RowsAffected()
}
