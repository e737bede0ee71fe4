// Package handlers adapts the facades to HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blackmagic-app/blackmagic/internal/api/response"
	"github.com/blackmagic-app/blackmagic/internal/facade"
)

// ShopHandler handles product and purchase requests.
type ShopHandler struct {
	facade *facade.ShopFacade
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(f *facade.ShopFacade) *ShopHandler {
	return &ShopHandler{facade: f}
}

// BuyRequest is the body of a purchase.
type BuyRequest struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

// GetProducts returns the shop's line-up.
func (h *ShopHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.facade.ListProducts(r.Context()))
}

// GetSets returns the sets known to the card catalog.
func (h *ShopHandler) GetSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.facade.Sets(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, sets)
}

// Buy purchases boosters of the product in the URL. Type defaults to play
// and quantity to 1.
func (h *ShopHandler) Buy(w http.ResponseWriter, r *http.Request) {
	req := BuyRequest{Type: "play", Quantity: 1}
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	result, err := h.facade.Buy(r.Context(), chi.URLParam(r, "setCode"), req.Type, req.Quantity)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, result)
}

// decodeOptional decodes a JSON body into v, leaving v untouched when the
// body is empty.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}
