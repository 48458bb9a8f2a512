package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached response by its request URL.
type Key struct {
	// URL is the absolute request URL
	URL string
}

// NewKey creates a key for the given request URL.
func NewKey(rawURL string) Key {
	return Key{URL: rawURL}
}

// String generates a deterministic cache key string.
// Format: edgar:host/path:query1=val1:query2=val2
//
// Example:
//
//	edgar:data.sec.gov/submissions/CIK0000320193.json
func (k Key) String() string {
	u, err := url.Parse(k.URL)
	if err != nil || u.Host == "" {
		return "edgar:" + k.URL
	}

	parts := []string{"edgar", strings.ToLower(u.Host) + u.EscapedPath()}

	// Add query params (sorted for determinism)
	query := u.Query()
	if len(query) > 0 {
		queryKeys := make([]string, 0, len(query))
		for key := range query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, key+"="+query.Get(key))
		}
	}

	return strings.Join(parts, ":")
}
