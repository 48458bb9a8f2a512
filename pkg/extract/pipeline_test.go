package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/Sternrassler/sec-edgar-client/pkg/identifier"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/klauspost/compress/zip"
)

func factsJSON(cik, name string) string {
	return `{"cik": ` + cik + `, "entityName": "` + name + `", "facts": {"us-gaap": {"Revenues": {"label": "Revenues", "units": {"USD": [
		{"start": "2022-01-01", "end": "2022-12-31", "val": 100, "accn": "0000000000-23-000001", "fy": 2022, "fp": "FY", "form": "10-K", "filed": "2023-02-01", "frame": "CY2022"},
		{"end": "2023-12-31", "val": 120, "accn": "0000000000-24-000001", "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2024-02-01"}
	]}}}}}`
}

// writeArchive creates a zip at dir/name holding members.
func writeArchive(t *testing.T, dir, name string, members map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for member, body := range members {
		w, err := zw.Create(member)
		if err != nil {
			t.Fatalf("create member %s: %v", member, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write member %s: %v", member, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return path
}

func testResolver() *identifier.Resolver {
	return identifier.New([]identifier.Entry{
		{CIK: "320193", Symbol: "AAPL", Name: "Apple Inc."},
		{CIK: "789019", Symbol: "MSFT", Name: "Microsoft Corp"},
	})
}

func TestArchiveDate(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "/data/all_companies_facts-2024-03-15.zip", want: "2024-03-15"},
		{path: "facts-2023-12-31-copy.zip", want: "2023-12-31"},
		{path: "companyfacts.zip", wantErr: true},
		{path: "facts-2024-13-45.zip", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ArchiveDate(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ArchiveDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Format("2006-01-02") != tt.want {
				t.Errorf("ArchiveDate() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestClampWorkers(t *testing.T) {
	limit := max(1, runtime.NumCPU()-SafetyMargin)

	if got := MaxWorkers(); got != limit {
		t.Errorf("MaxWorkers() = %d, want %d", got, limit)
	}
	for _, n := range []int{-3, 0, 1, 2, 1000} {
		got := ClampWorkers(n)
		if got < 1 || got > limit {
			t.Errorf("ClampWorkers(%d) = %d, want within [1, %d]", n, got, limit)
		}
	}
	if got := ClampWorkers(0); got != limit {
		t.Errorf("ClampWorkers(0) = %d, want %d", got, limit)
	}
	if got := ClampWorkers(1); got != 1 {
		t.Errorf("ClampWorkers(1) = %d, want 1", got)
	}
}

func TestExtractAll(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, "all_companies_facts-2024-03-15.zip", map[string]string{
		"CIK0000320193.json": factsJSON("320193", "Apple Inc."),
		"CIK0000789019.json": factsJSON("789019", "Microsoft Corp"),
		"CIK0000000001.json": factsJSON("1", "Unknown Co"),
		"CIK0000000002.json": `{"cik": 2, "facts": {`,
		"README.txt":         "not a member",
	})

	out := filepath.Join(dir, "out")
	p := NewPipeline(testResolver(), out, facts.FormatCSV)

	summary, err := p.ExtractAll(context.Background(), archive, 2)
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}
	if summary.Written != 2 || summary.Existing != 0 || summary.Failed != 2 {
		t.Errorf("summary = %+v, want 2 written, 0 existing, 2 failed", summary)
	}
	if summary.RunID == "" {
		t.Error("summary has no run id")
	}
	if summary.Date.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("Date = %v", summary.Date)
	}

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, symbol := range []string{"AAPL", "MSFT"} {
		path := p.OutputPath(symbol, day)
		if filepath.Base(path) != symbol+"_facts-2024-03-15.csv" {
			t.Errorf("OutputPath() = %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if !strings.HasPrefix(string(data), "taxonomy,") {
			t.Errorf("%s starts with %q", path, string(data[:min(len(data), 20)]))
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(out, ".*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestExtractAll_LogsMemberIndex(t *testing.T) {
	buf := &bytes.Buffer{}
	logging.Setup(logging.Config{Level: logging.LevelInfo, Output: buf})
	t.Cleanup(func() { logging.Setup(logging.Config{Level: logging.LevelInfo, Output: os.Stderr}) })

	dir := t.TempDir()
	archive := writeArchive(t, dir, "all_companies_facts-2024-03-15.zip", map[string]string{
		"CIK0000000002.json": `{"cik": 2, "facts": {`,
	})

	p := NewPipeline(testResolver(), filepath.Join(dir, "out"), facts.FormatCSV)
	if _, err := p.ExtractAll(context.Background(), archive, 4); err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, "CIK0000000002.json") {
			continue
		}
		found = true
		if !strings.Contains(line, `"member_index":0`) {
			t.Errorf("member log line lacks member_index: %s", line)
		}
		if strings.Contains(line, `"worker":`) {
			t.Errorf("member log line carries a worker id: %s", line)
		}
	}
	if !found {
		t.Errorf("no log line for the failed member in %q", buf.String())
	}
}

func TestExtractAll_Idempotent(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, "all_companies_facts-2024-03-15.zip", map[string]string{
		"CIK0000320193.json": factsJSON("320193", "Apple Inc."),
		"CIK0000789019.json": factsJSON("789019", "Microsoft Corp"),
	})
	out := filepath.Join(dir, "out")
	p := NewPipeline(testResolver(), out, facts.FormatCSVGzip)

	if _, err := p.ExtractAll(context.Background(), archive, 1); err != nil {
		t.Fatalf("first ExtractAll() error = %v", err)
	}
	path := p.OutputPath("AAPL", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	before, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}

	summary, err := p.ExtractAll(context.Background(), archive, 1)
	if err != nil {
		t.Fatalf("second ExtractAll() error = %v", err)
	}
	if summary.Written != 0 || summary.Existing != 2 {
		t.Errorf("second run summary = %+v, want 0 written, 2 existing", summary)
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("existing output was rewritten")
	}
}

func TestExtractAll_CIKFromDocument(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, "facts-2024-01-02.zip", map[string]string{
		"apple.json": factsJSON("320193", "Apple Inc."),
	})
	out := filepath.Join(dir, "out")
	p := NewPipeline(testResolver(), out, facts.FormatCSV)

	summary, err := p.ExtractAll(context.Background(), archive, 1)
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}
	if summary.Written != 1 {
		t.Errorf("summary = %+v, want 1 written", summary)
	}
}

func TestExtractAll_SchemaErrorAbortsRun(t *testing.T) {
	dir := t.TempDir()
	broken := `{"cik": 320193, "facts": {"us-gaap": {"Revenues": {"units": {"USD": [
		{"end": "2023-12-31", "accn": "x", "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2024-02-01"}
	]}}}}}`
	archive := writeArchive(t, dir, "facts-2024-01-02.zip", map[string]string{
		"CIK0000320193.json": broken,
	})
	p := NewPipeline(testResolver(), filepath.Join(dir, "out"), facts.FormatCSV)

	_, err := p.ExtractAll(context.Background(), archive, 1)
	var schemaErr *facts.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("ExtractAll() error = %v, want *facts.SchemaError", err)
	}
	if schemaErr.Missing[0] != "val" {
		t.Errorf("Missing = %v, want [val]", schemaErr.Missing)
	}
}

func TestExtractAll_BadArchive(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(testResolver(), dir, facts.FormatCSV)

	if _, err := p.ExtractAll(context.Background(), filepath.Join(dir, "undated.zip"), 1); err == nil {
		t.Error("ExtractAll() on an undated archive name should fail")
	}
	if _, err := p.ExtractAll(context.Background(), filepath.Join(dir, "missing-2024-01-01.zip"), 1); err == nil {
		t.Error("ExtractAll() on a missing archive should fail")
	}
}

func TestExtractAll_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, "facts-2024-01-02.zip", map[string]string{
		"CIK0000320193.json": factsJSON("320193", "Apple Inc."),
	})
	p := NewPipeline(testResolver(), filepath.Join(dir, "out"), facts.FormatCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.ExtractAll(ctx, archive, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ExtractAll() error = %v, want context.Canceled", err)
	}
	if summary.Written != 0 {
		t.Errorf("Written = %d after cancellation, want 0", summary.Written)
	}
}

func TestQueryArchive(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, "facts-2024-01-02.zip", map[string]string{
		"CIK0000320193.json": factsJSON("320193", "Apple Inc."),
	})

	doc, err := QueryArchive(context.Background(), archive, "320193")
	if err != nil {
		t.Fatalf("QueryArchive() error = %v", err)
	}
	if doc.EntityName != "Apple Inc." {
		t.Errorf("EntityName = %q", doc.EntityName)
	}

	if _, err := QueryArchive(context.Background(), archive, "789019"); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("QueryArchive() for absent CIK error = %v, want ErrMemberNotFound", err)
	}
	if _, err := QueryArchive(context.Background(), archive, "AAPL"); err == nil {
		t.Error("QueryArchive() with a symbol should fail")
	}
}

func TestLatestArchive(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"all_companies_facts-2024-01-02.zip",
		"all_companies_facts-2024-03-15.zip",
		"all_companies_facts-2023-12-31.zip",
		"all_companies_submissions-2025-01-01.zip",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := LatestArchive(dir, "all_companies_facts")
	if err != nil {
		t.Fatalf("LatestArchive() error = %v", err)
	}
	if filepath.Base(got) != "all_companies_facts-2024-03-15.zip" {
		t.Errorf("LatestArchive() = %s", got)
	}

	if _, err := LatestArchive(t.TempDir(), "all_companies_facts"); !errors.Is(err, ErrNoArchive) {
		t.Errorf("LatestArchive() on empty dir error = %v, want ErrNoArchive", err)
	}
}
