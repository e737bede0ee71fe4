// Package ledger is the single authority for balance-affecting state: an
// append-only transaction log with a cached running balance and a once-a-day
// reward.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeBuyBooster  TransactionType = "buyBooster"
	TypeSellCard    TransactionType = "sellCard"
	TypeDailyReward TransactionType = "dailyReward"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeBuyBooster, TypeSellCard, TypeDailyReward:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Positive amounts are credits.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Document is the persisted balance, its history and the last reward claim.
// All three are written together.
type Document struct {
	Amount         decimal.Decimal `json:"amount"`
	Transactions   []Transaction   `json:"transactions"`
	LastRewardDate *time.Time      `json:"lastRewardDate,omitempty"`
}

// Store loads and saves the balance document. A store with no saved
// document returns the zero Document.
type Store interface {
	LoadBalanceDocument(ctx context.Context) (Document, error)
	SaveBalanceDocument(ctx context.Context, doc Document) error
}

// RewardState is the computed daily reward state.
type RewardState string

const (
	RewardUnclaimed    RewardState = "unclaimed"
	RewardClaimedToday RewardState = "claimedToday"
)

var (
	// ErrAlreadyClaimedToday is returned when the daily reward was already
	// granted on the same calendar day (or a later one, under clock skew).
	ErrAlreadyClaimedToday = errors.New("daily reward already claimed today")

	// ErrInsufficientFunds is returned by callers whose CanAfford check
	// failed. The ledger itself never refuses a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidTransaction is returned for unknown transaction types.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Ledger serializes every read-modify-write of the balance document.
type Ledger struct {
	store  Store
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger

	mu sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the calendar used for daily reward days.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		loc:    time.Local,
		logger: slog.Default().With("component", "ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Balance returns the current balance.
func (l *Ledger) Balance(ctx context.Context) (decimal.Decimal, error) {
	doc, err := l.store.LoadBalanceDocument(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load balance: %w", err)
	}
	return doc.Amount, nil
}

// CanAfford reports whether the balance covers cost.
func (l *Ledger) CanAfford(ctx context.Context, cost decimal.Decimal) (bool, error) {
	balance, err := l.Balance(ctx)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(cost), nil
}

// RecordTransaction appends a transaction and persists the new balance in
// the same document write. It returns the updated balance.
func (l *Ledger) RecordTransaction(ctx context.Context, t TransactionType, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Zero, fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.store.LoadBalanceDocument(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load balance: %w", err)
	}

	tx := l.append(&doc, t, amount, description)
	if err := l.store.SaveBalanceDocument(ctx, doc); err != nil {
		return decimal.Zero, fmt.Errorf("failed to save balance: %w", err)
	}

	l.logger.Debug("Recorded transaction",
		"id", tx.ID, "type", t, "amount", amount.StringFixed(2), "balance", doc.Amount.StringFixed(2))
	return doc.Amount, nil
}

// GrantDailyReward credits amount once per calendar day. It returns
// ErrAlreadyClaimedToday, without touching the document, when the last
// claim falls on today or later.
func (l *Ledger) GrantDailyReward(ctx context.Context, amount decimal.Decimal, today time.Time) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.store.LoadBalanceDocument(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load balance: %w", err)
	}
	if l.rewardState(doc, today) == RewardClaimedToday {
		return doc.Amount, ErrAlreadyClaimedToday
	}

	l.append(&doc, TypeDailyReward, amount, "Daily reward")
	claimed := today
	doc.LastRewardDate = &claimed

	if err := l.store.SaveBalanceDocument(ctx, doc); err != nil {
		return decimal.Zero, fmt.Errorf("failed to save balance: %w", err)
	}

	l.logger.Info("Granted daily reward", "amount", amount.StringFixed(2), "balance", doc.Amount.StringFixed(2))
	return doc.Amount, nil
}

// RewardState computes whether the daily reward can be claimed on today.
func (l *Ledger) RewardState(ctx context.Context, today time.Time) (RewardState, error) {
	doc, err := l.store.LoadBalanceDocument(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load balance: %w", err)
	}
	return l.rewardState(doc, today), nil
}

// LastRewardDate returns the day of the most recent claim, if any.
func (l *Ledger) LastRewardDate(ctx context.Context) (*time.Time, error) {
	doc, err := l.store.LoadBalanceDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return doc.LastRewardDate, nil
}

// Transactions returns the history, newest first.
func (l *Ledger) Transactions(ctx context.Context) ([]Transaction, error) {
	doc, err := l.store.LoadBalanceDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	list := make([]Transaction, len(doc.Transactions))
	copy(list, doc.Transactions)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
	return list, nil
}

// ClearHistory empties the transaction list. The balance is kept.
func (l *Ledger) ClearHistory(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.store.LoadBalanceDocument(ctx)
	if err != nil {
		return fmt.Errorf("failed to load balance: %w", err)
	}
	cleared := len(doc.Transactions)
	doc.Transactions = []Transaction{}

	if err := l.store.SaveBalanceDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}

	l.logger.Info("Cleared transaction history", "cleared", cleared, "balance", doc.Amount.StringFixed(2))
	return nil
}

// append adds a transaction to doc and moves the balance by amount.
func (l *Ledger) append(doc *Document, t TransactionType, amount decimal.Decimal, description string) Transaction {
	tx := Transaction{
		ID:          uuid.New(),
		Type:        t,
		Amount:      amount,
		Description: description,
		Timestamp:   l.now(),
	}
	doc.Transactions = append(doc.Transactions, tx)
	doc.Amount = doc.Amount.Add(amount)
	return tx
}

func (l *Ledger) rewardState(doc Document, today time.Time) RewardState {
	if doc.LastRewardDate == nil {
		return RewardUnclaimed
	}
	if dayOf(*doc.LastRewardDate, l.loc).Before(dayOf(today, l.loc)) {
		return RewardUnclaimed
	}
	return RewardClaimedToday
}

// dayOf truncates t to midnight of its calendar day in loc.
func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
