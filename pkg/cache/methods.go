// Package cache provides a per-source, in-memory cache of content item
// lists with age-based expiry and uniform random reads.
package cache

import (
	"fmt"
	"math/rand/v2"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// NewCache returns an empty Cache whose entries live for ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewCache(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		ttl:  ttl,
		now:  time.Now,
		intn: rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.index == nil {
		// DefaultCapacity is positive, so New cannot fail.
		c.index, _ = lru.New[string, entry](DefaultCapacity)
	}

	return c
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) valid(e entry) bool {
	return len(e.items) > 0 && c.now().Sub(e.createdAt) < c.ttl
}

// IsValid reports whether key has a non-empty entry younger than the TTL.
func (c *Cache) IsValid(key string) bool {
	e, ok := c.index.Peek(key)
	return ok && c.valid(e)
}

// GetRandom returns one item chosen uniformly from the entry for key.
// The boolean is false when the entry is missing, empty or expired.
func (c *Cache) GetRandom(key string) (Item, bool) {
	e, ok := c.index.Get(key)
	if !ok || !c.valid(e) {
		return Item{}, false
	}

	return e.items[c.intn(len(e.items))], true
}

// Put replaces the entry for key with items, stamped with the current time.
// An empty slice is stored but never reported as valid.
func (c *Cache) Put(key string, items []Item) {
	buf := make([]Item, len(items))
	copy(buf, items)

	c.index.Add(key, entry{items: buf, createdAt: c.now()})
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.index.Purge()
}

// ClearKey removes the entry for key, if present.
// It reports whether an entry existed.
func (c *Cache) ClearKey(key string) bool {
	return c.index.Remove(key)
}

// Len returns the number of source keys currently stored, expired or not.
func (c *Cache) Len() int {
	return c.index.Len()
}

// Entries returns a snapshot describing every stored source.
func (c *Cache) Entries() []EntryInfo {
	info := []EntryInfo{}
	for _, k := range c.index.Keys() {
		e, ok := c.index.Peek(k)
		if !ok {
			continue
		}
		info = append(info, EntryInfo{
			Key:       k,
			Size:      len(e.items),
			CreatedAt: e.createdAt,
			ExpiresAt: e.createdAt.Add(c.ttl),
			Valid:     c.valid(e),
		})
	}

	return info
}

// String returns a summary string in the format `Cache(len={int}, ttl={duration})`.
// It implements the fmt.Stringer interface.
func (c *Cache) String() string {
	return fmt.Sprintf("Cache(len=%d, ttl=%s)", c.index.Len(), c.ttl)
}
