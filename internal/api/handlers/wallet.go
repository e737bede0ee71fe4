package handlers

import (
	"net/http"

	"github.com/blackmagic-app/blackmagic/internal/api/response"
	"github.com/blackmagic-app/blackmagic/internal/facade"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

// WalletHandler handles balance, history and reward requests.
type WalletHandler struct {
	facade *facade.WalletFacade
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(f *facade.WalletFacade) *WalletHandler {
	return &WalletHandler{facade: f}
}

// GetWallet returns the balance and the daily reward status.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	balance, err := h.facade.Balance(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	reward, err := h.facade.RewardStatus(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{
		"balance": balance,
		"reward":  reward,
	})
}

// GetHistory returns transactions, newest first.
func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.facade.History(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	if list == nil {
		list = []ledger.Transaction{}
	}
	response.Success(w, list)
}

// ClearHistory drops all transactions.
func (h *WalletHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.ClearHistory(r.Context()); err != nil {
		response.FromError(w, err)
		return
	}
	response.NoContent(w)
}

// ClaimDailyReward credits the daily reward.
func (h *WalletHandler) ClaimDailyReward(w http.ResponseWriter, r *http.Request) {
	balance, err := h.facade.ClaimDailyReward(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"balance": balance})
}
