package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/catalog"
	"github.com/blackmagic-app/blackmagic/internal/events"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

// ShopFacade sells boosters.
type ShopFacade struct {
	services *Services
}

// NewShopFacade creates a new ShopFacade with the given services.
func NewShopFacade(services *Services) *ShopFacade {
	return &ShopFacade{services: services}
}

// ProductView is a shop product with the price of both booster types.
type ProductView struct {
	booster.Product
	CollectorPrice decimal.Decimal `json:"collectorPrice"`
}

// PurchaseResult describes a completed purchase.
type PurchaseResult struct {
	Boosters []booster.Unopened `json:"boosters"`
	Cost     decimal.Decimal    `json:"cost"`
	Balance  decimal.Decimal    `json:"balance"`
}

// ListProducts returns the shop's line-up.
func (f *ShopFacade) ListProducts(ctx context.Context) []ProductView {
	multiplier := f.services.Settings().CollectorMultiplier
	views := make([]ProductView, len(booster.Products))
	for i, p := range booster.Products {
		views[i] = ProductView{
			Product:        p,
			CollectorPrice: p.PriceFor(booster.TypeCollector, multiplier),
		}
	}
	return views
}

// Sets returns the sets known to the catalog.
func (f *ShopFacade) Sets(ctx context.Context) ([]catalog.SetInfo, error) {
	sets, err := f.services.Catalog.Sets(ctx)
	if err != nil {
		return nil, appError("Could not load the set list. Check your connection and try again.", err)
	}
	return sets, nil
}

// Buy purchases quantity boosters of one product. The debit is recorded
// first; if the boosters then fail to save, a *ledger.PartialFailureError
// is returned and logged.
func (f *ShopFacade) Buy(ctx context.Context, setCode, boosterType string, quantity int) (*PurchaseResult, error) {
	if quantity < 1 {
		return nil, appError("Quantity must be at least 1", ErrInvalidInput)
	}
	t, err := booster.ParseType(boosterType)
	if err != nil {
		return nil, appError(fmt.Sprintf("Unknown booster type %q", boosterType), fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	product, ok := booster.FindProduct(setCode)
	if !ok {
		return nil, unknownProduct(setCode)
	}

	s := f.services
	settings := s.Settings()
	cost := product.PriceFor(t, settings.CollectorMultiplier).Mul(decimal.NewFromInt(int64(quantity)))

	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	affordable, err := s.Ledger.CanAfford(ctx, cost)
	if err != nil {
		return nil, appError("Could not read your balance", err)
	}
	if !affordable {
		return nil, appError(fmt.Sprintf("Not enough funds: %d %s %s booster(s) cost $%s", quantity, strings.ToUpper(product.SetCode), t, cost.StringFixed(2)), ledger.ErrInsufficientFunds)
	}

	description := fmt.Sprintf("Bought %d %s %s booster(s)", quantity, strings.ToUpper(product.SetCode), t)
	balance, err := s.Ledger.RecordTransaction(ctx, ledger.TypeBuyBooster, cost.Neg(), description)
	if err != nil {
		return nil, appError("Could not record the purchase", err)
	}
	s.emitBalance(ctx, balance, cost.Neg(), ledger.TypeBuyBooster)

	bought := make([]booster.Unopened, quantity)
	for i := range bought {
		bought[i] = booster.NewUnopened(product.SetCode, t, product.ColorHex)
	}

	if err := f.appendBoosters(ctx, bought); err != nil {
		pf := &ledger.PartialFailureError{Op: "buy", Applied: "balance", Pending: "unopened boosters", Err: err}
		s.logger().Error("Purchase debited but boosters not saved",
			"set", product.SetCode, "type", t, "quantity", quantity, "cost", cost.StringFixed(2),
			"balance", balance.StringFixed(2), "error", err)
		return nil, appError("Your purchase was charged but the boosters could not be saved", pf)
	}

	s.emit(ctx, events.TypeBoosterPurchased, events.BoosterPurchasedEvent{
		SetCode:  product.SetCode,
		Type:     string(t),
		Quantity: quantity,
		Cost:     cost,
	})
	s.logger().Info("Bought boosters", "set", product.SetCode, "type", t, "quantity", quantity, "cost", cost.StringFixed(2))

	return &PurchaseResult{Boosters: bought, Cost: cost, Balance: balance}, nil
}

func (f *ShopFacade) appendBoosters(ctx context.Context, bought []booster.Unopened) error {
	list, err := f.services.Boosters.LoadUnopenedBoosters(ctx)
	if err != nil {
		return err
	}
	return f.services.Boosters.SaveUnopenedBoosters(ctx, append(list, bought...))
}

func unknownProduct(setCode string) error {
	msg := fmt.Sprintf("No booster for set %q", setCode)
	if suggestions := catalog.SuggestSetCode(setCode, booster.ProductCodes(), 3); len(suggestions) > 0 {
		msg += fmt.Sprintf(". Did you mean %s?", strings.Join(suggestions, ", "))
	}
	return appError(msg, fmt.Errorf("%w: product %q", ErrNotFound, setCode))
}

// IsPartialFailure reports whether err is a cross-document partial failure.
func IsPartialFailure(err error) bool {
	var pf *ledger.PartialFailureError
	return errors.As(err, &pf)
}
