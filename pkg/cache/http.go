package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTTL is used when neither the caller nor the response sets a lifetime.
	DefaultTTL = 24 * time.Hour
)

// ResponseToEntry reads a response body into a CacheEntry.
// The body is restored so the caller can still decode it.
// An Expires header shortens or extends ttl; otherwise ttl (or DefaultTTL) applies.
func ResponseToEntry(resp *http.Response, ttl time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	resp.Body = io.NopCloser(bytes.NewReader(body))

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	entry := NewEntry(body, ttl)
	entry.StatusCode = resp.StatusCode
	if expires, ok := parseExpires(resp.Header); ok {
		entry.Expires = expires
	}

	return entry, nil
}

// parseExpires parses the Expires header. ok is false when absent or invalid.
func parseExpires(headers http.Header) (time.Time, bool) {
	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return time.Time{}, false
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Time{}, false
	}

	return expires, true
}
