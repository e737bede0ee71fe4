package facade

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/events"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

// WalletFacade exposes the balance, its history and the daily reward.
type WalletFacade struct {
	services *Services
}

// NewWalletFacade creates a new WalletFacade with the given services.
func NewWalletFacade(services *Services) *WalletFacade {
	return &WalletFacade{services: services}
}

// RewardStatus describes the daily reward.
type RewardStatus struct {
	State       ledger.RewardState `json:"state"`
	Amount      decimal.Decimal    `json:"amount"`
	LastClaimed *time.Time         `json:"lastClaimed,omitempty"`
}

// Balance returns the current balance.
func (f *WalletFacade) Balance(ctx context.Context) (decimal.Decimal, error) {
	balance, err := f.services.Ledger.Balance(ctx)
	if err != nil {
		return decimal.Zero, appError("Could not read your balance", err)
	}
	return balance, nil
}

// History returns the transactions, newest first.
func (f *WalletFacade) History(ctx context.Context) ([]ledger.Transaction, error) {
	list, err := f.services.Ledger.Transactions(ctx)
	if err != nil {
		return nil, appError("Could not load your transactions", err)
	}
	return list, nil
}

// ClaimDailyReward credits the daily reward if it has not been claimed
// today.
func (f *WalletFacade) ClaimDailyReward(ctx context.Context) (decimal.Decimal, error) {
	s := f.services
	amount := s.Settings().DailyReward

	balance, err := s.Ledger.GrantDailyReward(ctx, amount, s.now())
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyClaimedToday) {
			return balance, appError("You already claimed today's reward. Come back tomorrow!", err)
		}
		return decimal.Zero, appError("Could not claim the daily reward", err)
	}

	s.emitBalance(ctx, balance, amount, ledger.TypeDailyReward)
	return balance, nil
}

// RewardStatus reports whether the daily reward can be claimed now.
func (f *WalletFacade) RewardStatus(ctx context.Context) (*RewardStatus, error) {
	s := f.services
	state, err := s.Ledger.RewardState(ctx, s.now())
	if err != nil {
		return nil, appError("Could not read the reward status", err)
	}
	last, err := s.Ledger.LastRewardDate(ctx)
	if err != nil {
		return nil, appError("Could not read the reward status", err)
	}
	return &RewardStatus{
		State:       state,
		Amount:      s.Settings().DailyReward,
		LastClaimed: last,
	}, nil
}

// ClearHistory drops every transaction and keeps the balance.
func (f *WalletFacade) ClearHistory(ctx context.Context) error {
	s := f.services
	list, err := s.Ledger.Transactions(ctx)
	if err != nil {
		return appError("Could not load your transactions", err)
	}
	if err := s.Ledger.ClearHistory(ctx); err != nil {
		return appError("Could not clear your transactions", err)
	}
	s.emit(ctx, events.TypeHistoryCleared, events.HistoryClearedEvent{Removed: len(list)})
	return nil
}
