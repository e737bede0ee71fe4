package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blackmagic-app/blackmagic/internal/api/response"
	"github.com/blackmagic-app/blackmagic/internal/facade"
)

// BoosterHandler handles unopened boosters and opened packs.
type BoosterHandler struct {
	facade *facade.BoosterFacade
}

// NewBoosterHandler creates a new BoosterHandler.
func NewBoosterHandler(f *facade.BoosterFacade) *BoosterHandler {
	return &BoosterHandler{facade: f}
}

// SellRequest lists the pack cards to sell.
type SellRequest struct {
	CardIDs []string `json:"cardIds"`
}

// GetBoosters returns unopened boosters. With ?grouped=true they are
// counted per set and type.
func (h *BoosterHandler) GetBoosters(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grouped") == "true" {
		groups, err := h.facade.ListUnopened(r.Context())
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.Success(w, groups)
		return
	}

	list, err := h.facade.Unopened(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, list)
}

// Open opens a booster and returns the generated pack.
func (h *BoosterHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "boosterID")
	if !ok {
		return
	}
	pack, err := h.facade.Open(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, pack)
}

// GetPack returns an opened pack.
func (h *BoosterHandler) GetPack(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "packID")
	if !ok {
		return
	}
	pack, err := h.facade.Pack(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, pack)
}

// ReplaceCard swaps one pack card for another of the same rarity.
func (h *BoosterHandler) ReplaceCard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "packID")
	if !ok {
		return
	}
	pack, err := h.facade.ReplaceCard(r.Context(), id, chi.URLParam(r, "cardID"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, pack)
}

// Sell sells the selected cards from a pack.
func (h *BoosterHandler) Sell(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "packID")
	if !ok {
		return
	}
	var req SellRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}
	result, err := h.facade.SellSelected(r.Context(), id, req.CardIDs)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

// SellAll sells every card in a pack.
func (h *BoosterHandler) SellAll(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "packID")
	if !ok {
		return
	}
	result, err := h.facade.SellAll(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

// Keep moves the pack's cards into the collection.
func (h *BoosterHandler) Keep(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "packID")
	if !ok {
		return
	}
	result, err := h.facade.Keep(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.BadRequest(w, errors.New("invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}
