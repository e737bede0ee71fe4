// Package metrics keeps in-process counters for the shop economy and API
// latency.
package metrics

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/events"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

// Collector counts economy events and records request latency. It is an
// events.Observer.
type Collector struct {
	mu sync.Mutex

	boostersPurchased int
	boostersOpened    int
	cardsPulled       int
	cardsKept         int
	cardsSold         int
	rewardsClaimed    int

	spent  decimal.Decimal
	earned decimal.Decimal
	pulled decimal.Decimal

	requests *Histogram
	started  time.Time
}

// Snapshot is a copy of the collector's state.
type Snapshot struct {
	BoostersPurchased int             `json:"boostersPurchased"`
	BoostersOpened    int             `json:"boostersOpened"`
	CardsPulled       int             `json:"cardsPulled"`
	CardsKept         int             `json:"cardsKept"`
	CardsSold         int             `json:"cardsSold"`
	RewardsClaimed    int             `json:"rewardsClaimed"`
	Spent             decimal.Decimal `json:"spent"`
	Earned            decimal.Decimal `json:"earned"`
	PulledValue       decimal.Decimal `json:"pulledValue"`
	Requests          Summary         `json:"requests"`
	Uptime            string          `json:"uptime"`
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		requests: NewHistogram(0),
		started:  time.Now(),
	}
}

// OnEvent updates the counters from a facade event.
func (c *Collector) OnEvent(event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch data := event.Data.(type) {
	case events.BoosterPurchasedEvent:
		c.boostersPurchased += data.Quantity
		c.spent = c.spent.Add(data.Cost)
	case events.BoosterOpenedEvent:
		c.boostersOpened++
		c.cardsPulled += data.Cards
		c.pulled = c.pulled.Add(data.Value)
	case events.CollectionUpdatedEvent:
		c.cardsKept += data.CardsAdded
	case events.CardsSoldEvent:
		c.cardsSold += data.Count
		c.earned = c.earned.Add(data.Value)
	case events.BalanceUpdatedEvent:
		if ledger.TransactionType(data.Reason) == ledger.TypeDailyReward {
			c.rewardsClaimed++
		}
	}
	return nil
}

// GetName returns the observer's name.
func (c *Collector) GetName() string {
	return "MetricsCollector"
}

// ShouldHandle selects the events the collector counts.
func (c *Collector) ShouldHandle(eventType string) bool {
	switch eventType {
	case events.TypeBoosterPurchased, events.TypeBoosterOpened, events.TypeCollectionUpdated,
		events.TypeCardsSold, events.TypeBalanceUpdated:
		return true
	}
	return false
}

// ObserveRequest records the latency of one API request.
func (c *Collector) ObserveRequest(d time.Duration) {
	c.requests.Record(d)
}

// Snapshot returns the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		BoostersPurchased: c.boostersPurchased,
		BoostersOpened:    c.boostersOpened,
		CardsPulled:       c.cardsPulled,
		CardsKept:         c.cardsKept,
		CardsSold:         c.cardsSold,
		RewardsClaimed:    c.rewardsClaimed,
		Spent:             c.spent,
		Earned:            c.earned,
		PulledValue:       c.pulled,
		Requests:          c.requests.Summary(),
		Uptime:            time.Since(c.started).Round(time.Second).String(),
	}
}

var _ events.Observer = (*Collector)(nil)
