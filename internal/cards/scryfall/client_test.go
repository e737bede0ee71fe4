package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(serverURL string) *Client {
	return NewClientWithOptions(Options{
		BaseURL:           serverURL,
		RequestsPerSecond: 1000,
		InitialBackoff:    time.Millisecond,
	})
}

func TestNewClient(t *testing.T) {
	client := NewClient()

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}

	if client.httpClient == nil {
		t.Error("httpClient is nil")
	}

	if client.rateLimiter == nil {
		t.Error("rateLimiter is nil")
	}

	if client.userAgent != DefaultUserAgent {
		t.Errorf("userAgent = %q, want %q", client.userAgent, DefaultUserAgent)
	}

	if client.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
}

func TestClient_RateLimiting(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"test","name":"Test Card"}`))
	}))
	defer server.Close()

	client := NewClientWithOptions(Options{BaseURL: server.URL})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.GetCard(ctx, "test"); err != nil {
			t.Fatalf("Request %d failed: %v", i+1, err)
		}
	}
	elapsed := time.Since(start)

	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}

	// Should take at least 200ms (2 delays of 100ms each between 3 requests)
	minDuration := 200 * time.Millisecond
	if elapsed < minDuration {
		t.Errorf("Rate limiting not working: completed 3 requests in %v (expected >= %v)", elapsed, minDuration)
	}
}

func TestClient_SearchSetFollowsPages(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards/search" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("User-Agent = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "":
			if q := r.URL.Query().Get("q"); q != "e:tdm" {
				t.Errorf("q = %q, want e:tdm", q)
			}
			fmt.Fprintf(w, `{"object":"list","has_more":true,"next_page":"%s/cards/search?q=e%%3Atdm&page=2",
				"data":[{"id":"1","name":"One","set":"tdm","rarity":"common"}]}`, server.URL)
		case "2":
			_, _ = w.Write([]byte(`{"object":"list","has_more":false,
				"data":[{"id":"2","name":"Two","set":"tdm","rarity":"rare"}]}`))
		default:
			t.Errorf("Unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	found, err := newTestClient(server.URL).SearchSet(context.Background(), "TDM")
	if err != nil {
		t.Fatalf("SearchSet() error = %v", err)
	}
	if len(found) != 2 || found[0].ID != "1" || found[1].ID != "2" {
		t.Errorf("SearchSet() = %+v", found)
	}
}

func TestClient_SearchSetRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "e:neo cn>=1 cn<=10" {
			t.Errorf("q = %q", q)
		}
		_, _ = w.Write([]byte(`{"object":"list","has_more":false,"data":[
			{"id":"a","collector_number":"1"},
			{"id":"b","collector_number":"10a"},
			{"id":"c","collector_number":"11"},
			{"id":"d","collector_number":"A-5"}
		]}`))
	}))
	defer server.Close()

	found, err := newTestClient(server.URL).SearchSetRange(context.Background(), "neo", 1, 10)
	if err != nil {
		t.Fatalf("SearchSetRange() error = %v", err)
	}
	if len(found) != 2 || found[0].ID != "a" || found[1].ID != "b" {
		t.Errorf("SearchSetRange() = %+v", found)
	}
}

func TestClient_GetCardNamed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards/named" || r.URL.Query().Get("exact") != "Lightning Bolt" {
			t.Errorf("Unexpected request: %s", r.URL)
		}
		_, _ = w.Write([]byte(`{
			"id": "test-id",
			"name": "Lightning Bolt",
			"mana_cost": "{R}",
			"type_line": "Instant",
			"oracle_text": "Lightning Bolt deals 3 damage to any target.",
			"prices": {"usd": "1.25"}
		}`))
	}))
	defer server.Close()

	card, err := newTestClient(server.URL).GetCardNamed(context.Background(), "Lightning Bolt")
	if err != nil {
		t.Fatalf("GetCardNamed() error = %v", err)
	}
	if card.Name != "Lightning Bolt" {
		t.Errorf("Expected card name 'Lightning Bolt', got '%s'", card.Name)
	}
	if card.Prices.USD == nil || *card.Prices.USD != "1.25" {
		t.Errorf("Prices.USD = %v", card.Prices.USD)
	}
}

func TestClient_GetSets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sets":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"code":"tdm","name":"Tarkir: Dragonstorm"},{"code":"neo","name":"Kamigawa: Neon Dynasty"}]}`))
		case "/sets/tdm":
			_, _ = w.Write([]byte(`{"code":"tdm","name":"Tarkir: Dragonstorm","card_count":291}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	sets, err := client.GetSets(ctx)
	if err != nil {
		t.Fatalf("GetSets() error = %v", err)
	}
	if len(sets.Data) != 2 {
		t.Errorf("len(GetSets().Data) = %d, want 2", len(sets.Data))
	}

	set, err := client.GetSet(ctx, "TDM")
	if err != nil {
		t.Fatalf("GetSet() error = %v", err)
	}
	if set.CardCount != 291 {
		t.Errorf("CardCount = %d, want 291", set.CardCount)
	}
}

func TestClient_NotFoundError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"object":"error","code":"not_found","status":404,"details":"No card found"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetCard(context.Background(), "missing")
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}

	if !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got: %T", err)
	}
}

func TestClient_RateLimitRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"object":"error","code":"rate_limit","status":429}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"test","name":"Test Card"}`))
	}))
	defer server.Close()

	card, err := newTestClient(server.URL).GetCard(context.Background(), "test")
	if err != nil {
		t.Fatalf("Expected success after retry, got error: %v", err)
	}
	if card.Name != "Test Card" {
		t.Errorf("Expected 'Test Card', got '%s'", card.Name)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestClient_MaxRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetCard(context.Background(), "test")
	if err == nil {
		t.Fatal("Expected error after max retries, got nil")
	}
	if got := atomic.LoadInt32(&attempts); got != maxRetries+1 {
		t.Errorf("Expected %d attempts, got %d", maxRetries+1, got)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","code":"bad_request","status":400,"details":"Invalid query"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SearchCards(context.Background(), "e:")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Details != "Invalid query" {
		t.Errorf("Expected APIError with details, got %v", err)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientWithOptions(Options{BaseURL: server.URL, InitialBackoff: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.GetCard(ctx, "test"); err == nil {
		t.Fatal("Expected error on canceled context")
	}
}

func TestClient_GetCardsByIDs(t *testing.T) {
	var batches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/cards/collection" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		atomic.AddInt32(&batches, 1)

		body, _ := io.ReadAll(r.Body)
		var req CollectionRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Identifiers) > MaxBatchSize {
			t.Errorf("batch of %d exceeds %d", len(req.Identifiers), MaxBatchSize)
		}

		resp := CollectionResponse{Object: "list"}
		for _, id := range req.Identifiers {
			if id.ID == "missing" {
				resp.NotFound = append(resp.NotFound, id)
				continue
			}
			resp.Data = append(resp.Data, Card{ID: id.ID})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	ids := make([]string, 0, 100)
	for i := 0; i < 99; i++ {
		ids = append(ids, fmt.Sprintf("id-%d", i))
	}
	ids = append(ids, "missing")

	found, notFound, err := newTestClient(server.URL).GetCardsByIDs(context.Background(), ids)
	if err != nil {
		t.Fatalf("GetCardsByIDs() error = %v", err)
	}
	if len(found) != 99 {
		t.Errorf("found %d cards, want 99", len(found))
	}
	if len(notFound) != 1 || notFound[0] != "missing" {
		t.Errorf("notFound = %v", notFound)
	}
	if got := atomic.LoadInt32(&batches); got != 2 {
		t.Errorf("batches = %d, want 2", got)
	}
}

func TestCard_NormalImage(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want string
	}{
		{"top-level image", Card{ImageURIs: &ImageURIs{Normal: "front.jpg"}}, "front.jpg"},
		{"first face", Card{CardFaces: []CardFace{{}, {ImageURIs: &ImageURIs{Normal: "back.jpg"}}}}, "back.jpg"},
		{"no image", Card{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.NormalImage(); got != tt.want {
				t.Errorf("NormalImage() = %q, want %q", got, tt.want)
			}
		})
	}
}
