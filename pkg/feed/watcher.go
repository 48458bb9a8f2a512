// Package feed polls the EDGAR current-filings Atom feed and hands new
// entries to a callback.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/client"
	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/mmcdole/gofeed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultInterval is the polling interval used when none is given.
const DefaultInterval = 10 * time.Second

var entriesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "edgar_feed_entries_total",
	Help: "Feed entries delivered to handlers",
})

var (
	accessionPattern = regexp.MustCompile(`accession-number=([0-9-]+)`)
	cikPattern       = regexp.MustCompile(`\((\d{10})\)`)
)

// Getter fetches a document through the rate-limited transport.
type Getter interface {
	Get(ctx context.Context, url, host string) (*client.Response, error)
}

// Entry is one filing announced by the feed.
type Entry struct {
	ID              string
	Title           string
	Link            string
	Form            string
	CIK             string
	AccessionNumber string
	Updated         time.Time
	Summary         string
}

// Handler receives new entries, oldest first.
type Handler func(Entry)

// Watcher remembers the newest entry seen per feed URL so that each entry
// is delivered once.
type Watcher struct {
	getter Getter
	urls   []string
	parser *gofeed.Parser
	logger zerolog.Logger

	mu       sync.Mutex
	lastSeen map[string]string
}

// NewWatcher creates a watcher for urls. Without urls it watches the
// current-filings feed of e.
func NewWatcher(getter Getter, e endpoint.Endpoints, urls ...string) *Watcher {
	if len(urls) == 0 {
		urls = []string{e.WithDefaults().CurrentFeed()}
	}
	return &Watcher{
		getter:   getter,
		urls:     urls,
		parser:   gofeed.NewParser(),
		logger:   logging.NewLogger("feed"),
		lastSeen: make(map[string]string, len(urls)),
	}
}

// Poll fetches every feed once and returns the entries not delivered
// before, oldest first. The first poll of a feed returns all its entries.
func (w *Watcher) Poll(ctx context.Context) ([]Entry, error) {
	var out []Entry
	for _, url := range w.urls {
		entries, err := w.poll(ctx, url)
		if err != nil {
			return out, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func (w *Watcher) poll(ctx context.Context, url string) ([]Entry, error) {
	resp, err := w.getter.Get(ctx, url, endpoint.HostWWW)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := w.parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}
	if len(parsed.Items) == 0 {
		w.logger.Warn().Str("url", url).Msg("No entries in feed")
		return nil, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	last := w.lastSeen[url]
	var fresh []Entry
	for _, item := range parsed.Items {
		e := entryOf(item)
		if last != "" && e.ID == last {
			break
		}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	// Feeds list newest first.
	w.lastSeen[url] = fresh[0].ID

	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}
	return fresh, nil
}

// Run polls every interval and passes new entries to handle until ctx is
// done. Poll errors are logged and retried at the next tick.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, handle Handler) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		entries, err := w.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error().Err(err).Msg("Feed poll failed")
		}
		for _, e := range entries {
			entriesTotal.Inc()
			handle(e)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func entryOf(item *gofeed.Item) Entry {
	e := Entry{
		ID:      item.GUID,
		Title:   strings.TrimSpace(item.Title),
		Link:    item.Link,
		Summary: strings.TrimSpace(item.Description),
	}
	if e.ID == "" {
		e.ID = item.Link
	}
	if len(item.Categories) > 0 {
		e.Form = item.Categories[0]
	}
	if m := accessionPattern.FindStringSubmatch(e.ID); m != nil {
		e.AccessionNumber = m[1]
	}
	if m := cikPattern.FindStringSubmatch(e.Title); m != nil {
		e.CIK = m[1]
	}
	switch {
	case item.UpdatedParsed != nil:
		e.Updated = *item.UpdatedParsed
	case item.PublishedParsed != nil:
		e.Updated = *item.PublishedParsed
	}
	return e
}
