// Package reddit fetches hot listings from the Reddit JSON API and
// reduces them to safe, single-media content items.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/byytelope/awwbot/pkg/cache"
)

// NewClient returns a Client configured by opts.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		minScore:  opts.MinScore,
		http:      opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.minScore == 0 {
		c.minScore = DefaultMinScore
	}
	if c.http == nil {
		c.http = defaultHTTPClient
	}

	limit, burst := opts.RateLimit, opts.Burst
	if limit <= 0 {
		limit = rate.Inf
	}
	c.limiter = rate.NewLimiter(limit, max(burst, 1))

	return c
}

// ListingURL returns the hot listing endpoint for source.
func (c *Client) ListingURL(source string) string {
	return fmt.Sprintf("%s/r/%s/hot.json", c.baseURL, url.PathEscape(source))
}

// Fetch downloads the hot listing for source and returns every post that
// passes the content filters, in listing order. It never touches a cache.
func (c *Client) Fetch(ctx context.Context, source string) ([]cache.Item, error) {
	if !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	endpoint := c.ListingURL(source)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("reddit: building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit: fetching %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &UpstreamError{
			URL:        endpoint,
			StatusCode: res.StatusCode,
			Status:     http.StatusText(res.StatusCode),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var l listing
	if err := json.NewDecoder(res.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("reddit: decoding listing: %w", err)
	}

	return c.extract(source, l)
}

func (c *Client) extract(source string, l listing) ([]cache.Item, error) {
	if l.Data == nil || len(l.Data.Children) == 0 {
		return nil, ErrNoPostsFound
	}

	out := make([]cache.Item, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		if !c.keep(ch) {
			continue
		}

		p := ch.Data
		mediaURL := mediaURLOf(p)
		if mediaURL == "" {
			continue
		}

		out = append(out, cache.Item{
			URL:       mediaURL,
			Title:     orDefault(p.Title, defaultTitle),
			Author:    orDefault(p.Author, defaultAuthor),
			Score:     max(scoreOf(p), 0),
			Permalink: permalink(p.Permalink),
			Source:    orDefault(p.Subreddit, source),
		})
	}

	if len(out) == 0 {
		return nil, ErrNoValidPosts
	}

	return out, nil
}

// keep applies the safety and quality filters. A post without a score is
// kept; only a present score under the threshold is rejected.
func (c *Client) keep(ch child) bool {
	p := ch.Data
	switch {
	case p.Over18:
		return false
	case p.RemovedByCategory != "", p.Author == deletedAuthor:
		return false
	case ch.IsGallery, p.IsGallery:
		return false
	case p.Score != nil && *p.Score < c.minScore:
		return false
	}
	return true
}

// mediaURLOf picks the best single media URL for a post: the Reddit video
// fallback first, then the secure media video fallback, then the post URL.
func mediaURLOf(p post) string {
	if u := p.Media.fallbackURL(); u != "" {
		return u
	}
	if u := p.SecureMedia.fallbackURL(); u != "" {
		return u
	}
	return p.URL
}

func scoreOf(p post) int {
	if p.Score == nil {
		return 0
	}
	return *p.Score
}

func permalink(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return DefaultBaseURL + p
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
