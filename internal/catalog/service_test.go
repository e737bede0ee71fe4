package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/cards/scryfall"
)

type fakeFetcher struct {
	setCalls   int32
	rangeCalls int32
	cards      []scryfall.Card
	err        error
	sets       []scryfall.Set
}

func (f *fakeFetcher) SearchSet(ctx context.Context, setCode string) ([]scryfall.Card, error) {
	atomic.AddInt32(&f.setCalls, 1)
	return f.cards, f.err
}

func (f *fakeFetcher) SearchSetRange(ctx context.Context, setCode string, first, last int) ([]scryfall.Card, error) {
	atomic.AddInt32(&f.rangeCalls, 1)
	return f.cards, f.err
}

func (f *fakeFetcher) GetCardNamed(ctx context.Context, name string) (*scryfall.Card, error) {
	for _, c := range f.cards {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, &scryfall.NotFoundError{URL: name}
}

func (f *fakeFetcher) GetSets(ctx context.Context) (*scryfall.SetList, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &scryfall.SetList{Data: f.sets}, nil
}

func (f *fakeFetcher) GetCardsByIDs(ctx context.Context, ids []string) ([]scryfall.Card, []string, error) {
	var found []scryfall.Card
	var missing []string
	for _, id := range ids {
		matched := false
		for _, c := range f.cards {
			if c.ID == id {
				found = append(found, c)
				matched = true
			}
		}
		if !matched {
			missing = append(missing, id)
		}
	}
	return found, missing, f.err
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	list []cards.Card
	at   time.Time
}

func (m *memCache) LoadSetCards(ctx context.Context, key string) ([]cards.Card, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e.list, e.at, ok, nil
}

func (m *memCache) SaveSetCards(ctx context.Context, key string, list []cards.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]memEntry)
	}
	m.entries[key] = memEntry{list: list, at: time.Now()}
	return nil
}

func usd(s string) *string { return &s }

func sampleCards() []scryfall.Card {
	return []scryfall.Card{
		{ID: "1", Name: "Bolt", SetCode: "TDM", Rarity: "Common", ImageURIs: &scryfall.ImageURIs{Normal: "n1"}, Prices: scryfall.Prices{USD: usd("0.25")}},
		{ID: "2", Name: "Dragon", SetCode: "tdm", Rarity: "mythic", CardFaces: []scryfall.CardFace{{TypeLine: "Creature", ImageURIs: &scryfall.ImageURIs{Normal: "face"}}}},
	}
}

func newTestService(t *testing.T, f *fakeFetcher, cache Cache, now func() time.Time) *Service {
	t.Helper()
	svc, err := NewService(f, cache, Options{CacheTTL: time.Hour, Now: now})
	require.NoError(t, err)
	return svc
}

func TestFetchCardsForSet_Converts(t *testing.T) {
	f := &fakeFetcher{cards: sampleCards()}
	svc := newTestService(t, f, nil, nil)

	got, err := svc.FetchCardsForSet(context.Background(), "TDM")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, cards.RarityCommon, got[0].Rarity)
	assert.Equal(t, "tdm", got[0].SetCode)
	assert.Equal(t, "n1", got[0].ImageURL)
	assert.Equal(t, "0.25", got[0].PriceUSD)

	assert.Equal(t, "face", got[1].ImageURL)
	assert.Equal(t, "Creature", got[1].TypeLine)
	assert.Empty(t, got[1].PriceUSD)
}

func TestFetchCardsForSet_UsesLRU(t *testing.T) {
	f := &fakeFetcher{cards: sampleCards()}
	svc := newTestService(t, f, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.FetchCardsForSet(ctx, "tdm")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.setCalls))

	svc.Invalidate("TDM")
	_, err := svc.FetchCardsForSet(ctx, "tdm")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.setCalls))
}

func TestFetchCardsForSet_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := &fakeFetcher{cards: sampleCards()}
	svc := newTestService(t, f, nil, clock)
	ctx := context.Background()

	_, err := svc.FetchCardsForSet(ctx, "tdm")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = svc.FetchCardsForSet(ctx, "tdm")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.setCalls))
}

func TestFetchCardsForSet_PersistentCache(t *testing.T) {
	cache := &memCache{}
	ctx := context.Background()

	first := newTestService(t, &fakeFetcher{cards: sampleCards()}, cache, nil)
	_, err := first.FetchCardsForSet(ctx, "tdm")
	require.NoError(t, err)

	offline := &fakeFetcher{err: errors.New("network down")}
	second := newTestService(t, offline, cache, nil)
	got, err := second.FetchCardsForSet(ctx, "tdm")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Zero(t, atomic.LoadInt32(&offline.setCalls))
}

func TestFetchCardsForSet_ServesStaleOnFailure(t *testing.T) {
	cache := &memCache{entries: map[string]memEntry{
		"tdm": {list: []cards.Card{{ID: "old"}}, at: time.Now().Add(-48 * time.Hour)},
	}}
	svc := newTestService(t, &fakeFetcher{err: errors.New("timeout")}, cache, nil)

	got, err := svc.FetchCardsForSet(context.Background(), "tdm")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].ID)
}

func TestFetchCardsForSet_DataUnavailable(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeFetcher
	}{
		{"fetch error", &fakeFetcher{err: errors.New("boom")}},
		{"empty result", &fakeFetcher{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.f, nil, nil)
			_, err := svc.FetchCardsForSet(context.Background(), "tdm")
			assert.ErrorIs(t, err, ErrDataUnavailable)
		})
	}
}

func TestFetchCardsInRange(t *testing.T) {
	f := &fakeFetcher{cards: sampleCards()}
	svc := newTestService(t, f, nil, nil)
	ctx := context.Background()

	_, err := svc.FetchCardsInRange(ctx, "tdm", 1, 286)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.rangeCalls))

	_, err = svc.FetchCardsInRange(ctx, "tdm", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.setCalls))
}

func TestCardNamed(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{cards: sampleCards()}, nil, nil)

	c, err := svc.CardNamed(context.Background(), "Dragon")
	require.NoError(t, err)
	assert.Equal(t, "2", c.ID)

	_, err = svc.CardNamed(context.Background(), "Nope")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDataUnavailable)
}

func TestRefreshPrices_KeepsCounts(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{cards: sampleCards()}, nil, nil)
	owned := []cards.Card{
		{ID: "1", Name: "Bolt", PriceUSD: "0.10", Count: 4},
		{ID: "gone", Name: "Gone", Count: 1},
	}

	got, err := svc.RefreshPrices(context.Background(), owned)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0.25", got[0].PriceUSD)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, owned[1], got[1])
}

func TestSuggestSetCodes(t *testing.T) {
	f := &fakeFetcher{sets: []scryfall.Set{{Code: "tdm"}, {Code: "dsk"}, {Code: "neo"}}}
	svc := newTestService(t, f, nil, nil)

	assert.Equal(t, []string{"tdm"}, svc.SuggestSetCodes(context.Background(), "tdn"))

	offline, err := NewService(&fakeFetcher{err: errors.New("down")}, nil, Options{KnownSetCodes: []string{"woe", "vow"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"woe", "vow"}, offline.SuggestSetCodes(context.Background(), "wow"))
}

func TestSuggestSetCode(t *testing.T) {
	known := []string{"tdm", "otj", "woe", "neo", "mkm", "lci", "snc", "vow"}

	tests := []struct {
		code  string
		limit int
		want  []string
	}{
		{"tdm", 3, []string{"tdm", "mkm"}},
		{"TDX", 3, []string{"tdm"}},
		{"wo", 3, []string{"woe", "neo", "vow"}},
		{"zzzzzz", 3, []string{}},
		{"", 3, nil},
		{"wow", 1, []string{"woe"}},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := SuggestSetCode(tt.code, known, tt.limit)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImageProber(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if strings.HasSuffix(r.URL.Path, "broken.jpg") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p, err := NewImageProber(ProberOptions{Timeout: time.Second})
	require.NoError(t, err)
	list := []cards.Card{
		{ID: "a", ImageURL: server.URL + "/a.jpg"},
		{ID: "b", ImageURL: server.URL + "/broken.jpg"},
		{ID: "c"},
		{ID: "d", ImageURL: server.URL + "/d.jpg"},
	}

	assert.Equal(t, []string{"b", "c"}, p.Unavailable(context.Background(), list))

	// Second pass is answered from memory.
	before := atomic.LoadInt32(&hits)
	assert.Equal(t, []string{"b", "c"}, p.Unavailable(context.Background(), list))
	assert.Equal(t, before, atomic.LoadInt32(&hits))
}

func TestImageProber_RetriesTransientFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p, err := NewImageProber(ProberOptions{Timeout: time.Second})
	require.NoError(t, err)
	url := server.URL + "/a.jpg"

	assert.False(t, p.Probe(context.Background(), url), "503 should report unavailable")
	assert.True(t, p.Probe(context.Background(), url), "503 should not be remembered")
	assert.True(t, p.Probe(context.Background(), url))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestImageProber_RetriesTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := server.URL + "/a.jpg"
	server.Close()

	p, err := NewImageProber(ProberOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.False(t, p.Probe(context.Background(), url))
	_, cached := p.results.Get(url)
	assert.False(t, cached, "transport errors should not be remembered")
}
