package cache

import (
	"net/http"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when no expires header is present
	DefaultTTL = 5 * time.Minute
)

// NewEntry builds an entry for a response body. The entry expires at the
// response Expires header, or after fallback when the header is missing or
// unparseable.
func NewEntry(body []byte, header http.Header, fallback time.Duration) *Entry {
	if fallback <= 0 {
		fallback = DefaultTTL
	}
	now := time.Now()
	return &Entry{
		Data:     body,
		Expires:  parseExpires(header, now, fallback),
		CachedAt: now,
	}
}

// parseExpires parses the Expires header from HTTP headers.
func parseExpires(headers http.Header, now time.Time, fallback time.Duration) time.Time {
	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(fallback)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(fallback)
	}

	if expires.Before(now) {
		// Already expired - the entry will not be stored
		return now
	}

	return expires
}
