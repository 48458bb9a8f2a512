package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/client"
	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
)

func atomFeed(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Latest Filings</title>
<updated>2024-03-15T16:00:00-04:00</updated>
`)
	for _, id := range ids {
		b.WriteString(`<entry>
<title>10-K - Apple Inc. (0000320193) (Filer)</title>
<link rel="alternate" type="text/html" href="https://www.sec.gov/Archives/edgar/data/320193/` + id + `-index.htm"/>
<summary type="html">Filed: 2024-03-15</summary>
<updated>2024-03-15T16:00:00-04:00</updated>
<category scheme="https://www.sec.gov/" label="form type" term="10-K"/>
<id>urn:tag:sec.gov,2008:accession-number=` + id + `</id>
</entry>
`)
	}
	b.WriteString(`</feed>`)
	return b.String()
}

type stubGetter struct {
	mu     sync.Mutex
	bodies []string
	calls  int
	hosts  []string
	err    error
}

func (s *stubGetter) Get(_ context.Context, url, host string) (*client.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts = append(s.hosts, host)
	if s.err != nil {
		return nil, s.err
	}
	body := s.bodies[min(s.calls, len(s.bodies)-1)]
	s.calls++
	return &client.Response{StatusCode: 200, Body: []byte(body), URL: url}, nil
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.AccessionNumber
	}
	return out
}

func TestPoll_DeliversNewEntriesOldestFirst(t *testing.T) {
	getter := &stubGetter{bodies: []string{
		atomFeed("0000320193-24-000003", "0000320193-24-000002", "0000320193-24-000001"),
		atomFeed("0000320193-24-000005", "0000320193-24-000004", "0000320193-24-000003", "0000320193-24-000002"),
		atomFeed("0000320193-24-000005", "0000320193-24-000004"),
	}}
	w := NewWatcher(getter, endpoint.Default())
	ctx := context.Background()

	first, err := w.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	want := []string{"0000320193-24-000001", "0000320193-24-000002", "0000320193-24-000003"}
	if got := ids(first); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("first poll = %v, want %v", got, want)
	}

	second, err := w.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	want = []string{"0000320193-24-000004", "0000320193-24-000005"}
	if got := ids(second); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("second poll = %v, want %v", got, want)
	}

	third, err := w.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(third) != 0 {
		t.Errorf("third poll = %v, want nothing new", ids(third))
	}

	for _, host := range getter.hosts {
		if host != endpoint.HostWWW {
			t.Errorf("feed fetched with host %q, want %q", host, endpoint.HostWWW)
		}
	}
}

func TestPoll_EntryFields(t *testing.T) {
	getter := &stubGetter{bodies: []string{atomFeed("0000320193-24-000001")}}
	w := NewWatcher(getter, endpoint.Default())

	entries, err := w.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.Form != "10-K" {
		t.Errorf("Form = %q, want 10-K", e.Form)
	}
	if e.CIK != "0000320193" {
		t.Errorf("CIK = %q, want 0000320193", e.CIK)
	}
	if !strings.HasSuffix(e.Link, "0000320193-24-000001-index.htm") {
		t.Errorf("Link = %q", e.Link)
	}
	if e.Updated.IsZero() {
		t.Error("Updated not parsed")
	}
}

func TestPoll_Errors(t *testing.T) {
	w := NewWatcher(&stubGetter{err: errors.New("boom")}, endpoint.Default())
	if _, err := w.Poll(context.Background()); err == nil {
		t.Error("Poll() should return fetch errors")
	}

	w = NewWatcher(&stubGetter{bodies: []string{"not xml at all"}}, endpoint.Default())
	if _, err := w.Poll(context.Background()); err == nil {
		t.Error("Poll() should return parse errors")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	getter := &stubGetter{bodies: []string{
		atomFeed("0000320193-24-000001"),
		atomFeed("0000320193-24-000002", "0000320193-24-000001"),
	}}
	w := NewWatcher(getter, endpoint.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, 10*time.Millisecond, func(e Entry) {
			mu.Lock()
			seen = append(seen, e.AccessionNumber)
			n := len(seen)
			mu.Unlock()
			if n == 2 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(seen, ",") != "0000320193-24-000001,0000320193-24-000002" {
		t.Errorf("delivered %v", seen)
	}
}
