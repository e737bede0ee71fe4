package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blackmagic-app/blackmagic/internal/storage/models"
)

// DocumentRepository stores whole JSON documents by key.
type DocumentRepository interface {
	// Get returns the document stored under key, or nil when there is none.
	Get(ctx context.Context, key string) (*models.Document, error)

	// Put replaces the document stored under key.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes the document stored under key.
	Delete(ctx context.Context, key string) error

	// Keys lists the stored document keys.
	Keys(ctx context.Context) ([]string, error)
}

// documentRepository implements DocumentRepository using SQLite.
type documentRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sql.DB) DocumentRepository {
	return &documentRepository{db: db, now: time.Now}
}

// Get returns the document stored under key.
func (r *documentRepository) Get(ctx context.Context, key string) (*models.Document, error) {
	doc := &models.Document{Key: key}
	var data string
	err := r.db.QueryRowContext(ctx,
		"SELECT data, updated_at FROM documents WHERE key = ?", key,
	).Scan(&data, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	doc.Data = []byte(data)
	return doc, nil
}

// Put replaces the document stored under key.
func (r *documentRepository) Put(ctx context.Context, key string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, key, string(data), r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to put document %s: %w", key, err)
	}
	return nil
}

// Delete removes the document stored under key.
func (r *documentRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored document keys in key order.
func (r *documentRepository) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key FROM documents ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan document key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return keys, nil
}
