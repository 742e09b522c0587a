package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotCacheable is returned by Validate for pages that must not be served
// from the cache.
var ErrNotCacheable = errors.New("page not cacheable")

// CacheEntry represents a cached SerpApi page.
type CacheEntry struct {
	// Data is the raw JSON page
	Data []byte `json:"data"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// CachedAt is when we cached this page
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates an entry for a page body that expires after ttl.
func NewEntry(data []byte, ttl time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		Data:       data,
		Expires:    now.Add(ttl),
		StatusCode: 200,
		CachedAt:   now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Validate reports whether the entry holds a successful SerpApi page: a 200
// response whose body is a JSON object without an "error" field. Error pages
// ("Google hasn't returned any results", "Invalid API key") are transient or
// credential-specific and are never cached.
func (e *CacheEntry) Validate() error {
	if e.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrNotCacheable, e.StatusCode)
	}

	var page map[string]any
	if err := json.Unmarshal(e.Data, &page); err != nil || page == nil {
		return fmt.Errorf("%w: body is not a JSON object", ErrNotCacheable)
	}

	switch msg := page["error"].(type) {
	case nil:
		return nil
	case string:
		if msg == "" {
			return nil
		}
		return fmt.Errorf("%w: page carries error %q", ErrNotCacheable, msg)
	default:
		return fmt.Errorf("%w: page carries error %v", ErrNotCacheable, msg)
	}
}
