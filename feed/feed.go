// Package feed reads content items from the external news feed.
//
// The feed is a read-only collaborator: the core never writes to it, and any
// failure (network, decode, rate limit) degrades to an empty list rather than
// surfacing an error to callers.
package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/LJ-Solana/solana-news-app-sub000/model"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = time.Minute
	cacheKey        = "latest"

	// maxBody bounds how much of a misbehaving feed response we will read.
	maxBody = 8 << 20
)

type Options struct {
	// HTTPClient overrides the default client (10s timeout).
	HTTPClient *http.Client

	// RequestsPerMinute throttles outbound fetches; 0 means 30/min.
	RequestsPerMinute int

	// CacheTTL is how long a fetched list is served from memory.
	CacheTTL time.Duration

	Log zerolog.Logger
}

type Client struct {
	url     string
	hc      *http.Client
	limiter *rate.Limiter
	cache   *gocache.Cache
	log     zerolog.Logger
}

func New(url string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Client{
		url:     url,
		hc:      hc,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		cache:   gocache.New(ttl, 2*ttl),
		log:     opts.Log,
	}
}

// Latest returns the feed's current items. On any failure it returns the
// cached list if one is fresh, otherwise an empty list rather than an error.
func (c *Client) Latest(ctx context.Context) []model.FeedItem {
	if v, ok := c.cache.Get(cacheKey); ok {
		if items, ok := v.([]model.FeedItem); ok {
			return append([]model.FeedItem(nil), items...)
		}
	}
	if !c.limiter.Allow() {
		c.log.Debug().Msg("feed fetch throttled")
		return nil
	}

	items, err := c.fetch(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("url", c.url).Msg("feed fetch failed")
		return nil
	}
	c.cache.SetDefault(cacheKey, items)
	return append([]model.FeedItem(nil), items...)
}

func (c *Client) fetch(ctx context.Context) ([]model.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}

	// Providers serve either a bare array or an {"articles": [...]} envelope.
	var items []model.FeedItem
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}
	var envelope struct {
		Articles []model.FeedItem `json:"articles"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Articles, nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return "feed: unexpected status " + http.StatusText(e.code) }
