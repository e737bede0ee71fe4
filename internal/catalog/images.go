package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"

	"github.com/blackmagic-app/blackmagic/internal/cards"
)

const (
	defaultProbeTimeout     = 5 * time.Second
	defaultProbeConcurrency = 4
	probeCacheSize          = 2048
)

// ProberOptions configures an ImageProber.
type ProberOptions struct {
	Timeout     time.Duration
	Concurrency int
	UserAgent   string
	Logger      *slog.Logger
}

// ImageProber checks whether card images can be loaded. Results are
// remembered per URL.
type ImageProber struct {
	httpClient  *http.Client
	concurrency int
	userAgent   string
	results     *lru.Cache
	logger      *slog.Logger
}

// NewImageProber creates an image prober.
func NewImageProber(opts ProberOptions) (*ImageProber, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultProbeTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultProbeConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	results, err := lru.New(probeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe cache: %w", err)
	}
	return &ImageProber{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		concurrency: opts.Concurrency,
		userAgent:   opts.UserAgent,
		results:     results,
		logger:      opts.Logger.With("component", "image-prober"),
	}, nil
}

// Probe reports whether imageURL answers a HEAD request with 200. Only
// definitive answers are remembered: 200, 403, 404 and 410. Transport
// errors, 429 and 5xx are retried on the next call.
func (p *ImageProber) Probe(ctx context.Context, imageURL string) bool {
	if imageURL == "" {
		return false
	}
	if v, ok := p.results.Get(imageURL); ok {
		return v.(bool)
	}

	ok, definitive, err := p.head(ctx, imageURL)
	if err != nil {
		p.logger.Debug("Image probe failed", "url", imageURL, "error", err)
	}
	if definitive {
		p.results.Add(imageURL, ok)
	}
	return ok
}

// Unavailable returns the ids of cards whose images cannot be loaded.
func (p *ImageProber) Unavailable(ctx context.Context, list []cards.Card) []string {
	var (
		mu     sync.Mutex
		failed = make(map[string]bool)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, c := range list {
		g.Go(func() error {
			if !p.Probe(gctx, c.ImageURL) {
				mu.Lock()
				failed[c.ID] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	// Keep pack order.
	ids := make([]string, 0, len(failed))
	for _, c := range list {
		if failed[c.ID] {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// head sends the request. definitive is false when the outcome may change
// on retry.
func (p *ImageProber) head(ctx context.Context, imageURL string) (ok, definitive bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return false, true, fmt.Errorf("failed to create request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, false, fmt.Errorf("failed to probe image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, true, nil
	case http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return false, true, fmt.Errorf("image returned status %d", resp.StatusCode)
	default:
		return false, false, fmt.Errorf("image returned status %d", resp.StatusCode)
	}
}
