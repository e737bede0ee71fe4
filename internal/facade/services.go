// Package facade implements the user-facing flows (shop, opening boosters,
// collection, wallet) on top of the ledger, the stores and the catalog.
// Both the CLI and the API server call into it.
package facade

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/catalog"
	"github.com/blackmagic-app/blackmagic/internal/collection"
	"github.com/blackmagic-app/blackmagic/internal/events"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

var (
	// ErrNotFound is returned for unknown products, boosters, packs and
	// cards.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// Catalog is the subset of catalog.Service the facades use.
type Catalog interface {
	FetchCardsForProduct(ctx context.Context, p booster.Product) ([]cards.Card, error)
	FetchCardsForSet(ctx context.Context, setCode string) ([]cards.Card, error)
	RefreshPrices(ctx context.Context, list []cards.Card) ([]cards.Card, error)
	Sets(ctx context.Context) ([]catalog.SetInfo, error)
}

// ImageChecker reports the ids of cards whose artwork cannot be loaded.
type ImageChecker interface {
	Unavailable(ctx context.Context, list []cards.Card) []string
}

// Settings are the economy and pack settings. They can be swapped at
// runtime when the config file changes.
type Settings struct {
	DailyReward         decimal.Decimal
	CollectorMultiplier decimal.Decimal
	Policy              booster.Policy
	SlotSize            int
	VerifyImages        bool
}

// DefaultSettings returns the stock economy.
func DefaultSettings() Settings {
	return Settings{
		DailyReward:         decimal.NewFromInt(500),
		CollectorMultiplier: decimal.RequireFromString("2.5"),
		Policy:              booster.PolicyUniform,
		SlotSize:            booster.DefaultSlotSize,
		VerifyImages:        true,
	}
}

// Services holds the dependencies shared by every facade.
type Services struct {
	Ledger     *ledger.Ledger
	Collection collection.Store
	Boosters   booster.Store
	Catalog    Catalog

	// Images may be nil, which skips artwork checks when opening packs.
	Images ImageChecker

	Generator *booster.Generator

	// Events may be nil.
	Events *events.EventDispatcher

	Logger *slog.Logger
	Now    func() time.Time

	settings atomic.Pointer[Settings]

	// flowMu serializes flows that touch more than one document.
	flowMu sync.Mutex
}

// Settings returns the current settings.
func (s *Services) Settings() Settings {
	if p := s.settings.Load(); p != nil {
		return *p
	}
	return DefaultSettings()
}

// UpdateSettings replaces the settings used by subsequent calls.
func (s *Services) UpdateSettings(settings Settings) {
	s.settings.Store(&settings)
}

func (s *Services) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default().With("component", "facade")
	}
	return s.Logger.With("component", "facade")
}

func (s *Services) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Services) emit(ctx context.Context, eventType string, data any) {
	if s.Events == nil {
		return
	}
	s.Events.Dispatch(events.Event{Type: eventType, Data: data, Context: ctx})
}

func (s *Services) emitBalance(ctx context.Context, balance, change decimal.Decimal, reason ledger.TransactionType) {
	s.emit(ctx, events.TypeBalanceUpdated, events.BalanceUpdatedEvent{
		Balance: balance,
		Change:  change,
		Reason:  string(reason),
	})
}

// AppError is an error with a message fit for the user. The cause stays
// reachable through errors.Is and errors.As.
type AppError struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

func appError(message string, err error) error {
	return &AppError{Message: message, Err: err}
}
