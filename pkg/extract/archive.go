package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/klauspost/compress/zip"
)

// SafetyMargin is the number of CPUs left free for the rest of the host.
const SafetyMargin = 6

// ErrNoArchive is returned when no dated archive is found.
var ErrNoArchive = errors.New("no dated archive found")

// ErrMemberNotFound is returned when an archive holds no document for a CIK.
var ErrMemberNotFound = errors.New("archive member not found")

var (
	archiveDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	memberPattern      = regexp.MustCompile(`^CIK(\d{10})\.json$`)
)

// ArchiveDate parses the YYYY-MM-DD date embedded in an archive file name.
func ArchiveDate(path string) (time.Time, error) {
	match := archiveDatePattern.FindString(filepath.Base(path))
	if match == "" {
		return time.Time{}, fmt.Errorf("archive name %q carries no YYYY-MM-DD date", filepath.Base(path))
	}
	day, err := time.Parse(filing.DateLayout, match)
	if err != nil {
		return time.Time{}, fmt.Errorf("archive name %q: %w", filepath.Base(path), err)
	}
	return day, nil
}

// MaxWorkers is the largest pool size ClampWorkers allows on this host.
func MaxWorkers() int {
	return max(1, runtime.NumCPU()-SafetyMargin)
}

// ClampWorkers bounds a requested pool size to [1, MaxWorkers()].
// Zero or negative requests the maximum.
func ClampWorkers(n int) int {
	limit := MaxWorkers()
	if n <= 0 || n > limit {
		return limit
	}
	return n
}

// memberCIK returns the CIK encoded in a member name such as
// CIK0000320193.json, or "".
func memberCIK(name string) string {
	m := memberPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return ""
	}
	return m[1]
}

// QueryArchive decodes the document of one company straight from an archive.
func QueryArchive(ctx context.Context, archivePath, cik string) (*facts.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !filing.IsNumeric(cik) || len(cik) > filing.CIKLength {
		return nil, &filing.ValidationError{Field: "cik", Value: cik, Reason: "must be numeric, at most 10 digits"}
	}
	cik = filing.PadCIK(cik)

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	want := "CIK" + cik + ".json"
	for _, f := range zr.File {
		if filepath.Base(f.Name) != want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return facts.Decode(rc)
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrMemberNotFound, want, filepath.Base(archivePath))
}

// LatestArchive returns the archive in dir named {prefix}-{date}.zip with
// the most recent date.
func LatestArchive(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.zip"))
	if err != nil {
		return "", err
	}

	var (
		latest     string
		latestDate time.Time
	)
	for _, path := range matches {
		if !strings.HasPrefix(filepath.Base(path), prefix+"-") {
			continue
		}
		day, err := ArchiveDate(path)
		if err != nil {
			continue
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}
		if latest == "" || day.After(latestDate) {
			latest, latestDate = path, day
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%w: %s-*.zip in %s", ErrNoArchive, prefix, dir)
	}
	return latest, nil
}
