package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blackmagic-app/blackmagic/internal/api/response"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/collection"
	"github.com/blackmagic-app/blackmagic/internal/facade"
)

// CollectionHandler handles collection-related API requests.
type CollectionHandler struct {
	facade *facade.CollectionFacade
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(f *facade.CollectionFacade) *CollectionHandler {
	return &CollectionHandler{facade: f}
}

// SellCardRequest is the body of a collection sale.
type SellCardRequest struct {
	Count int `json:"count"`
}

// GetCollection returns owned cards, filtered by ?set, ?rarity and sorted
// by ?sort (name, price or count).
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := collection.Filter{
		SetCode: q.Get("set"),
		Rarity:  cards.Rarity(q.Get("rarity")),
		SortBy:  collection.SortBy(q.Get("sort")),
	}

	list, err := h.facade.GetCollection(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, list)
}

// Search fuzzy-matches owned card names against ?q.
func (h *CollectionHandler) Search(w http.ResponseWriter, r *http.Request) {
	list, err := h.facade.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, list)
}

// GetCard returns one owned card.
func (h *CollectionHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.facade.Card(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, card)
}

// GetStats returns collection statistics.
func (h *CollectionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.facade.Stats(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, stats)
}

// GetValue returns the collection's market value.
func (h *CollectionHandler) GetValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.facade.Value(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"value": value})
}

// Sell sells copies of an owned card. Count defaults to 1.
func (h *CollectionHandler) Sell(w http.ResponseWriter, r *http.Request) {
	req := SellCardRequest{Count: 1}
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}
	result, err := h.facade.Sell(r.Context(), chi.URLParam(r, "cardID"), req.Count)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

// RefreshPrices reloads prices for owned cards.
func (h *CollectionHandler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	changed, err := h.facade.RefreshPrices(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]int{"changed": changed})
}
