package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/sec-edgar-client/internal/fsutil"
	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/Sternrassler/sec-edgar-client/pkg/identifier"
)

// fakeFetcher writes the URL as file content and fails for URLs in fail.
type fakeFetcher struct {
	fail  map[string]bool
	calls []string
	hosts []string
}

func (f *fakeFetcher) Download(_ context.Context, url, host, dst string) (int64, error) {
	f.calls = append(f.calls, url)
	f.hosts = append(f.hosts, host)
	if f.fail[url] {
		return 0, errors.New("boom")
	}
	if err := fsutil.WriteFile(dst, []byte(url)); err != nil {
		return 0, err
	}
	return int64(len(url)), nil
}

// fakeLister returns fixed descriptors per CIK.
type fakeLister struct {
	byCIK map[string][]filing.Descriptor
	err   map[string]error
}

func (l *fakeLister) Collect(_ context.Context, req *filing.DownloadRequest) ([]filing.Descriptor, error) {
	if err := l.err[req.CIK]; err != nil {
		return nil, err
	}
	return l.byCIK[req.CIK], nil
}

func testResolver() *identifier.Resolver {
	return identifier.New([]identifier.Entry{
		{CIK: "320193", Symbol: "AAPL", Name: "Apple Inc."},
		{CIK: "789019", Symbol: "MSFT", Name: "MICROSOFT CORP"},
	})
}

func descriptor(cik, accession, form, doc string) filing.Descriptor {
	return filing.NewDescriptor(endpoint.Default(), cik, accession, form, doc, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
}

func newRequest(t *testing.T, root string, details bool) *filing.DownloadRequest {
	t.Helper()
	req, err := filing.NewDownloadRequest(filing.Params{
		Root:            root,
		Forms:           []string{"10-K"},
		CIK:             "0000320193",
		Symbol:          "AAPL",
		DownloadDetails: details,
	})
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}
	return req
}

func TestFetchAndSave_WritesLayout(t *testing.T) {
	root := t.TempDir()
	d := descriptor("0000320193", "0000320193-23-000106", "10-K", "aapl-20230930.htm")

	fetcher := &fakeFetcher{}
	lister := &fakeLister{byCIK: map[string][]filing.Descriptor{"0000320193": {d}}}
	o := NewOrchestrator(fetcher, lister, testResolver(), endpoint.Default(), root)

	n, err := o.FetchAndSave(context.Background(), newRequest(t, root, true))
	if err != nil {
		t.Fatalf("FetchAndSave() error = %v", err)
	}
	if n != 1 {
		t.Errorf("FetchAndSave() = %d, want 1", n)
	}

	dir := filepath.Join(root, "sec-edgar-filings", "AAPL-0000320193", "10-K", "0000320193-23-000106")
	raw, err := os.ReadFile(filepath.Join(dir, "full-submission.txt"))
	if err != nil {
		t.Fatalf("full submission not written: %v", err)
	}
	if string(raw) != d.RawURL {
		t.Errorf("full submission content = %q, want %q", raw, d.RawURL)
	}
	if _, err := os.Stat(filepath.Join(dir, "primary-document.html")); err != nil {
		t.Errorf("primary document not written: %v", err)
	}
	for _, host := range fetcher.hosts {
		if host != endpoint.HostWWW {
			t.Errorf("host = %q, want %q", host, endpoint.HostWWW)
		}
	}
}

func TestFetchAndSave_WithoutDetails(t *testing.T) {
	root := t.TempDir()
	d := descriptor("0000320193", "0000320193-23-000106", "10-K", "aapl-20230930.htm")

	fetcher := &fakeFetcher{}
	lister := &fakeLister{byCIK: map[string][]filing.Descriptor{"0000320193": {d}}}
	o := NewOrchestrator(fetcher, lister, testResolver(), endpoint.Default(), root)

	if _, err := o.FetchAndSave(context.Background(), newRequest(t, root, false)); err != nil {
		t.Fatalf("FetchAndSave() error = %v", err)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("made %d downloads, want only the raw submission", len(fetcher.calls))
	}
}

func TestFetchAndSave_SkipsFailedFilingAndContinues(t *testing.T) {
	root := t.TempDir()
	good1 := descriptor("0000320193", "0000320193-23-000001", "10-K", "a.htm")
	bad := descriptor("0000320193", "0000320193-22-000002", "10-K", "b.htm")
	good2 := descriptor("0000320193", "0000320193-21-000003", "10-K/A", "c.xml")

	fetcher := &fakeFetcher{fail: map[string]bool{bad.PrimaryDocURL: true}}
	lister := &fakeLister{byCIK: map[string][]filing.Descriptor{"0000320193": {good1, bad, good2}}}
	o := NewOrchestrator(fetcher, lister, testResolver(), endpoint.Default(), root)

	n, err := o.FetchAndSave(context.Background(), newRequest(t, root, true))
	if n != 2 {
		t.Errorf("FetchAndSave() = %d, want 2", n)
	}
	if err == nil || !strings.Contains(err.Error(), bad.AccessionNumber) {
		t.Errorf("error = %v, want failure naming %s", err, bad.AccessionNumber)
	}

	amended := filepath.Join(root, "sec-edgar-filings", "AAPL-0000320193", "10-K-A", good2.AccessionNumber, "primary-document.xml")
	if _, err := os.Stat(amended); err != nil {
		t.Errorf("filing after the failed one not saved: %v", err)
	}
}

func TestFetchAndSave_ListError(t *testing.T) {
	boom := errors.New("integrity")
	lister := &fakeLister{err: map[string]error{"0000320193": boom}}
	o := NewOrchestrator(&fakeFetcher{}, lister, testResolver(), endpoint.Default(), t.TempDir())

	n, err := o.FetchAndSave(context.Background(), newRequest(t, t.TempDir(), false))
	if n != 0 || !errors.Is(err, boom) {
		t.Errorf("FetchAndSave() = %d, %v; want 0, wrapped list error", n, err)
	}
}

func TestDownloadForCompanies(t *testing.T) {
	root := t.TempDir()
	aapl := descriptor("0000320193", "0000320193-23-000106", "10-K", "a.htm")
	msft := descriptor("0000789019", "0000789019-23-000014", "10-K", "m.htm")

	fetcher := &fakeFetcher{fail: map[string]bool{msft.RawURL: true}}
	lister := &fakeLister{byCIK: map[string][]filing.Descriptor{
		"0000320193": {aapl},
		"0000789019": {msft},
	}}
	o := NewOrchestrator(fetcher, lister, testResolver(), endpoint.Default(), root)

	result := o.DownloadForCompanies(context.Background(), []string{"aapl", "NOPE", "789019"}, BatchParams{
		Forms: []string{"10-K", "10-Q"},
	})

	if want := []string{"AAPL-10-K", "AAPL-10-Q"}; !reflect.DeepEqual(result.Saved, want) {
		t.Errorf("Saved = %v, want %v", result.Saved, want)
	}
	if want := []string{"NOPE-10-K", "NOPE-10-Q", "MSFT-10-K", "MSFT-10-Q"}; !reflect.DeepEqual(result.Skipped, want) {
		t.Errorf("Skipped = %v, want %v", result.Skipped, want)
	}
}

func TestDownloadForCompanies_InvalidParams(t *testing.T) {
	o := NewOrchestrator(&fakeFetcher{}, &fakeLister{}, testResolver(), endpoint.Default(), t.TempDir())

	result := o.DownloadForCompanies(context.Background(), []string{"AAPL"}, BatchParams{Forms: []string{"BOGUS"}})
	if len(result.Saved) != 0 || !reflect.DeepEqual(result.Skipped, []string{"AAPL-BOGUS"}) {
		t.Errorf("result = %+v, want AAPL-BOGUS skipped", result)
	}
}

func TestDownloadFactsForCompanies(t *testing.T) {
	root := t.TempDir()
	e := endpoint.Default()
	fetcher := &fakeFetcher{fail: map[string]bool{e.CompanyFacts("0000789019"): true}}
	o := NewOrchestrator(fetcher, &fakeLister{}, testResolver(), e, root)
	o.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	result := o.DownloadFactsForCompanies(context.Background(), []string{"AAPL", "MSFT", "NOPE"}, true)

	if !reflect.DeepEqual(result.Saved, []string{"AAPL"}) {
		t.Errorf("Saved = %v, want [AAPL]", result.Saved)
	}
	if !reflect.DeepEqual(result.Skipped, []string{"MSFT", "NOPE"}) {
		t.Errorf("Skipped = %v, want [MSFT NOPE]", result.Skipped)
	}
	path := filepath.Join(root, "sec-edgar-facts", "AAPL-facts-2024-03-15.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("facts not saved: %v", err)
	}
	if fetcher.hosts[0] != endpoint.HostData {
		t.Errorf("host = %q, want %q", fetcher.hosts[0], endpoint.HostData)
	}

	// Second run finds the file and makes no request for AAPL.
	calls := len(fetcher.calls)
	again := o.DownloadFactsForCompanies(context.Background(), []string{"AAPL"}, true)
	if len(again.Saved) != 0 || len(again.Skipped) != 0 {
		t.Errorf("second run = %+v, want nothing saved or skipped", again)
	}
	if len(fetcher.calls) != calls {
		t.Errorf("second run made %d requests, want 0", len(fetcher.calls)-calls)
	}
}

func TestDownloadArchives(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{}
	o := NewOrchestrator(fetcher, &fakeLister{}, testResolver(), endpoint.Default(), root)
	o.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

	facts, err := o.DownloadFactsArchive(context.Background())
	if err != nil {
		t.Fatalf("DownloadFactsArchive() error = %v", err)
	}
	if want := filepath.Join(root, "sec-edgar-facts", "all_companies_facts-2024-03-15.zip"); facts != want {
		t.Errorf("path = %q, want %q", facts, want)
	}

	subs, err := o.DownloadSubmissionsArchive(context.Background())
	if err != nil {
		t.Fatalf("DownloadSubmissionsArchive() error = %v", err)
	}
	if want := filepath.Join(root, "sec-edgar-facts", "all_companies_submissions-2024-03-15.zip"); subs != want {
		t.Errorf("path = %q, want %q", subs, want)
	}
	if !reflect.DeepEqual(fetcher.calls, []string{endpoint.Default().FactsArchive(), endpoint.Default().SubmissionsArchive()}) {
		t.Errorf("calls = %v", fetcher.calls)
	}
}
