// Package scryfall is a rate-limited client for the Scryfall card catalog.
package scryfall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://api.scryfall.com"
	DefaultUserAgent = "BlackMagicApp/1.0"

	rateLimitDelay = 100 * time.Millisecond // 100ms between requests (10 req/sec)
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second

	// maxPages bounds next_page traversal for a single search.
	maxPages = 20
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
	InitialBackoff    time.Duration
	Logger            *slog.Logger
}

// Client represents a Scryfall API client with rate limiting.
type Client struct {
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	baseURL        string
	userAgent      string
	initialBackoff time.Duration
	logger         *slog.Logger
}

// NewClient creates a new Scryfall API client with default settings.
func NewClient() *Client {
	return NewClientWithOptions(Options{})
}

// NewClientWithOptions creates a client with custom settings.
func NewClientWithOptions(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = requestTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = initialBackoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Every(rateLimitDelay)
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		rateLimiter:    rate.NewLimiter(limit, 1),
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		userAgent:      opts.UserAgent,
		initialBackoff: opts.InitialBackoff,
		logger:         opts.Logger.With("component", "scryfall"),
	}
}

// SearchSet returns every printing in a set, following next_page links.
func (c *Client) SearchSet(ctx context.Context, setCode string) ([]Card, error) {
	return c.searchAll(ctx, "e:"+strings.ToLower(setCode))
}

// SearchSetRange returns the printings of a set whose collector numbers lie
// in [first, last].
func (c *Client) SearchSetRange(ctx context.Context, setCode string, first, last int) ([]Card, error) {
	query := fmt.Sprintf("e:%s cn>=%d cn<=%d", strings.ToLower(setCode), first, last)
	found, err := c.searchAll(ctx, query)
	if err != nil {
		return nil, err
	}

	// Scryfall compares collector numbers as numbers but keeps variants
	// like "12a"; drop anything outside the range after parsing.
	inRange := found[:0]
	for _, card := range found {
		n, err := strconv.Atoi(strings.TrimRight(card.CollectorNumber, "abcdefghijklmnopqrstuvwxyz★"))
		if err != nil || n < first || n > last {
			continue
		}
		inRange = append(inRange, card)
	}
	return inRange, nil
}

// SearchCards performs a full-text search and returns the first page.
func (c *Client) SearchCards(ctx context.Context, query string) (*SearchResult, error) {
	u := fmt.Sprintf("%s/cards/search?q=%s", c.baseURL, url.QueryEscape(query))

	var result SearchResult
	if err := c.doRequest(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("failed to search cards with query '%s': %w", query, err)
	}

	return &result, nil
}

// GetCardNamed retrieves a card by its exact name.
func (c *Client) GetCardNamed(ctx context.Context, name string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/named?exact=%s", c.baseURL, url.QueryEscape(name))

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get card named %q: %w", name, err)
	}

	return &card, nil
}

// GetCard retrieves a card by its Scryfall ID.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/%s", c.baseURL, url.PathEscape(id))

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}

	return &card, nil
}

// GetSet retrieves set information by set code.
func (c *Client) GetSet(ctx context.Context, code string) (*Set, error) {
	u := fmt.Sprintf("%s/sets/%s", c.baseURL, url.PathEscape(strings.ToLower(code)))

	var set Set
	if err := c.doRequest(ctx, u, &set); err != nil {
		return nil, fmt.Errorf("failed to get set %s: %w", code, err)
	}

	return &set, nil
}

// GetSets retrieves a list of all sets.
func (c *Client) GetSets(ctx context.Context) (*SetList, error) {
	u := fmt.Sprintf("%s/sets", c.baseURL)

	var sets SetList
	if err := c.doRequest(ctx, u, &sets); err != nil {
		return nil, fmt.Errorf("failed to get sets: %w", err)
	}

	return &sets, nil
}

func (c *Client) searchAll(ctx context.Context, query string) ([]Card, error) {
	page, err := c.SearchCards(ctx, query)
	if err != nil {
		return nil, err
	}

	all := append([]Card(nil), page.Data...)
	for pages := 1; page.HasMore && page.NextPage != ""; pages++ {
		if pages >= maxPages {
			c.logger.Warn("Stopped following search pages", "query", query, "pages", pages, "cards", len(all))
			break
		}

		next := page.NextPage
		page = &SearchResult{}
		if err := c.doRequest(ctx, next, page); err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of '%s': %w", pages+1, query, err)
		}
		all = append(all, page.Data...)
	}

	c.logger.Debug("Search complete", "query", query, "cards", len(all))
	return all, nil
}

// doRequest performs a GET request with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	return c.do(ctx, http.MethodGet, url, nil, result)
}

// do performs an HTTP request with rate limiting and retry logic. body is
// re-sent on every attempt.
func (c *Client) do(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

			// Retry on network errors
			if attempt < maxRetries {
				if err := sleep(ctx, backoff); err != nil {
					return err
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr
		}

		retry, err := c.handleResponse(resp, url, result)
		if !retry {
			return err
		}

		lastErr = err
		if attempt < maxRetries {
			wait := backoff
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
					wait = d
				}
			}
			c.logger.Debug("Rate limited, backing off", "url", url, "wait", wait, "attempt", attempt+1)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		return lastErr
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// handleResponse decodes resp into result. It reports retry=true for
// responses worth another attempt.
func (c *Client) handleResponse(resp *http.Response, url string, result interface{}) (retry bool, err error) {
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return false, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return false, nil

	case http.StatusTooManyRequests:
		return true, fmt.Errorf("rate limited (HTTP 429)")

	case http.StatusNotFound:
		return false, &NotFoundError{URL: url}

	default:
		body, _ := io.ReadAll(resp.Body)

		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
			return false, &apiErr
		}

		return false, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
