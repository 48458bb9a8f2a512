// Package cache stores EDGAR JSON responses so repeated lookups of the same
// document do not spend request budget.
//
// Two backends implement Store:
//
//   - RedisStore keeps entries in Redis, shared between processes
//   - MemoryStore keeps entries in process memory
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(10 * time.Minute)
//
//	key := cache.NewKey("https://data.sec.gov/submissions/CIK0000320193.json")
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from EDGAR, then
//		_ = store.Set(ctx, key, cache.NewEntry(body, resp.Header, cache.DefaultTTL))
//	}
//
// Entry lifetime follows the response Expires header when one is present and
// falls back to the configured TTL otherwise.
//
// # Metrics
//
//   - edgar_cache_hits_total{backend} - Cache hits
//   - edgar_cache_misses_total{backend} - Cache misses
//   - edgar_cache_errors_total{operation} - Cache operation errors
package cache
