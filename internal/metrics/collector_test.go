package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/events"
)

func TestHistogram_Summary(t *testing.T) {
	h := NewHistogram(10)
	if got := h.Summary(); got.Count != 0 {
		t.Fatalf("Expected empty summary, got %+v", got)
	}

	for i := 1; i <= 5; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}
	s := h.Summary()
	if s.Count != 5 {
		t.Errorf("Expected 5 samples, got %d", s.Count)
	}
	if s.Min != 1 || s.Max != 5 || s.Mean != 3 || s.P50 != 3 {
		t.Errorf("Unexpected summary: %+v", s)
	}
}

func TestHistogram_Wraps(t *testing.T) {
	h := NewHistogram(3)
	for i := 1; i <= 5; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}

	s := h.Summary()
	if s.Count != 3 {
		t.Fatalf("Expected 3 samples, got %d", s.Count)
	}
	if s.Min != 3 || s.Max != 5 {
		t.Errorf("Expected the oldest samples dropped, got %+v", s)
	}
}

func TestPercentile_Interpolates(t *testing.T) {
	if got := percentile([]float64{10, 20}, 50); got != 15 {
		t.Errorf("Expected 15, got %v", got)
	}
}

func TestCollector_CountsEvents(t *testing.T) {
	c := NewCollector()
	d := events.NewEventDispatcher(nil)
	d.Register(c)

	d.Dispatch(events.Event{Type: events.TypeBalanceUpdated, Data: events.BalanceUpdatedEvent{
		Balance: decimal.RequireFromString("500"), Change: decimal.RequireFromString("500"), Reason: "dailyReward",
	}})
	d.Dispatch(events.Event{Type: events.TypeBoosterPurchased, Data: events.BoosterPurchasedEvent{
		SetCode: "tdm", Type: "play", Quantity: 2, Cost: decimal.RequireFromString("10.00"),
	}})
	d.Dispatch(events.Event{Type: events.TypeBoosterOpened, Data: events.BoosterOpenedEvent{
		SetCode: "tdm", Cards: 12, Value: decimal.RequireFromString("4.20"),
	}})
	d.Dispatch(events.Event{Type: events.TypeCollectionUpdated, Data: events.CollectionUpdatedEvent{CardsAdded: 11}})
	d.Dispatch(events.Event{Type: events.TypeCardsSold, Data: events.CardsSoldEvent{
		Source: "pack", Count: 1, Value: decimal.RequireFromString("1.50"),
	}})
	d.Dispatch(events.Event{Type: events.TypeHistoryCleared, Data: events.HistoryClearedEvent{Removed: 3}})

	s := c.Snapshot()
	if s.BoostersPurchased != 2 || s.BoostersOpened != 1 || s.CardsPulled != 12 {
		t.Errorf("Unexpected booster counters: %+v", s)
	}
	if s.CardsKept != 11 || s.CardsSold != 1 || s.RewardsClaimed != 1 {
		t.Errorf("Unexpected card counters: %+v", s)
	}
	if s.Spent.StringFixed(2) != "10.00" || s.Earned.StringFixed(2) != "1.50" || s.PulledValue.StringFixed(2) != "4.20" {
		t.Errorf("Unexpected totals: spent %s earned %s pulled %s", s.Spent, s.Earned, s.PulledValue)
	}
}

func TestCollector_ShouldHandle(t *testing.T) {
	c := NewCollector()
	if c.ShouldHandle(events.TypeHistoryCleared) {
		t.Error("Expected history:cleared to be ignored")
	}
	if !c.ShouldHandle(events.TypeCardsSold) {
		t.Error("Expected cards:sold to be handled")
	}
}
