package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// MaxBatchSize is the maximum number of cards per /cards/collection request.
const MaxBatchSize = 75

// CardIdentifier represents a card identifier for the /cards/collection endpoint.
type CardIdentifier struct {
	ID              string `json:"id,omitempty"`               // Scryfall ID
	Name            string `json:"name,omitempty"`             // Card name
	Set             string `json:"set,omitempty"`              // Set code (requires collector_number)
	CollectorNumber string `json:"collector_number,omitempty"` // Collector number (requires set)
}

// CollectionRequest is the request body for /cards/collection.
type CollectionRequest struct {
	Identifiers []CardIdentifier `json:"identifiers"`
}

// CollectionResponse is the response from /cards/collection.
type CollectionResponse struct {
	Object   string           `json:"object"`
	NotFound []CardIdentifier `json:"not_found"`
	Data     []Card           `json:"data"`
}

// GetCardsByIDs fetches cards by Scryfall ID using the batch endpoint,
// splitting the request into batches of MaxBatchSize. It returns the IDs
// Scryfall could not find.
func (c *Client) GetCardsByIDs(ctx context.Context, ids []string) ([]Card, []string, error) {
	if len(ids) == 0 {
		return []Card{}, nil, nil
	}

	var allCards []Card
	var allNotFound []string

	for i := 0; i < len(ids); i += MaxBatchSize {
		end := min(i+MaxBatchSize, len(ids))

		identifiers := make([]CardIdentifier, 0, end-i)
		for _, id := range ids[i:end] {
			identifiers = append(identifiers, CardIdentifier{ID: id})
		}

		cards, notFound, err := c.fetchCollection(ctx, identifiers)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch batch %d-%d: %w", i, end, err)
		}
		allCards = append(allCards, cards...)
		for _, nf := range notFound {
			allNotFound = append(allNotFound, nf.ID)
		}
	}

	return allCards, allNotFound, nil
}

func (c *Client) fetchCollection(ctx context.Context, identifiers []CardIdentifier) ([]Card, []CardIdentifier, error) {
	body, err := json.Marshal(CollectionRequest{Identifiers: identifiers})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp CollectionResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/cards/collection", body, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Data, resp.NotFound, nil
}
