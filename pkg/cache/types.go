package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultTTL is how long a fetched listing stays servable.
	DefaultTTL = 5 * time.Minute

	// DefaultCapacity bounds the number of sources held at once.
	DefaultCapacity = 64
)

// Cache holds one list of content items per source key. Entries expire
// by age only: reading an entry never extends or shortens its life.
//
// The store itself is safe for concurrent use. Compound sequences such as
// IsValid followed by GetRandom, or a fetch followed by Put, are not
// serialized: two concurrent misses for the same key both fetch and the
// last Put wins. Entries are interchangeable snapshots, so this is allowed.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	intn  func(n int) int
	index *lru.Cache[string, entry]
}

// Item is one normalized piece of content ready to be posted.
type Item struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Score     int    `json:"score"`
	Permalink string `json:"permalink"`
	Source    string `json:"source"`
}

type entry struct {
	items     []Item
	createdAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now. Tests use it to move past the TTL without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRand replaces the source used to pick an index in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(c *Cache) { c.intn = intn }
}

// WithCapacity sets how many source keys are retained before the least
// recently used one is evicted.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n <= 0 {
			return
		}
		if idx, err := lru.New[string, entry](n); err == nil {
			c.index = idx
		}
	}
}

// EntryInfo describes a cached source for introspection.
type EntryInfo struct {
	Key       string
	Size      int
	CreatedAt time.Time
	ExpiresAt time.Time
	Valid     bool
}
