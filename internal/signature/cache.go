package signature

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// FallbackSignature is the sentinel substituted when a live signature is
// required on the outbound side but unknown to the cache.
const FallbackSignature = "skip_thought_signature_validator"

const (
	// DefaultTTL is the cache entry lifetime.
	DefaultTTL = time.Hour
	// DefaultCapacity is the cache's maximum entry count.
	DefaultCapacity = 1024
)

// Cache is a TTL+capacity bounded map from Fingerprint to signature string.
// Entries are immutable; Put overwrite-wins.
type Cache struct {
	store *lru.LRU[Fingerprint, string]
}

// NewCache builds a Cache. ttl and capacity clamp to >= 1.
func NewCache(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{store: lru.NewLRU[Fingerprint, string](capacity, nil, ttl)}
}

// Get looks up a cached signature by fingerprint.
func (c *Cache) Get(fp Fingerprint) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.store.Get(fp)
}

// Put inserts or overwrites the signature for a fingerprint.
func (c *Cache) Put(fp Fingerprint, sig string) {
	if c == nil || sig == "" {
		return
	}
	c.store.Add(fp, sig)
}

// Fallback returns the sentinel signature used when no cached value exists
// but the outbound request requires one to be present.
func (c *Cache) Fallback() string {
	return FallbackSignature
}

// Len reports the current entry count, for observability/snapshots.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.store.Len()
}
