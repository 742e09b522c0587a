// Package cache provides a Redis-backed page cache for SerpApi responses.
//
// Every successful page is stored under a key derived from the search engine and
// the request parameters (the API key is never part of the key), so repeated
// retrievals of the same query or author reuse pages instead of spending searches.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.KeyFor(params)
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from SerpApi, then:
//		entry, _ = cache.ResponseToEntry(resp, 24*time.Hour)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - serpapi_cache_hits_total{layer="redis"} - Cache hits
//   - serpapi_cache_misses_total - Cache misses
//   - serpapi_cache_size_bytes{layer="redis"} - Bytes read from and written to the cache
//   - serpapi_cache_errors_total{operation} - Cache operation errors
//
// Pages that report an "error" field are never cached.
package cache
