package download

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
)

// Folder and file names of the local layout.
const (
	FormsFolder = "sec-edgar-filings"
	FactsFolder = "sec-edgar-facts"

	FullSubmissionFilename = "full-submission.txt"
	PrimaryDocumentStem    = "primary-document"

	FactsArchivePrefix       = "all_companies_facts"
	SubmissionsArchivePrefix = "all_companies_submissions"
)

// Layout computes local paths under a download folder.
type Layout struct {
	Root string
}

// FilingDir is the directory of one filing. Form names such as 10-K/A are
// made path safe.
func (l Layout) FilingDir(symbol, cik string, d filing.Descriptor) string {
	return filepath.Join(l.Root, FormsFolder,
		fmt.Sprintf("%s-%s", symbol, cik),
		pathSafe(d.Form),
		d.AccessionNumber)
}

// FullSubmissionPath is where the raw submission of d is saved.
func (l Layout) FullSubmissionPath(symbol, cik string, d filing.Descriptor) string {
	return filepath.Join(l.FilingDir(symbol, cik, d), FullSubmissionFilename)
}

// PrimaryDocumentPath is where the primary document of d is saved.
func (l Layout) PrimaryDocumentPath(symbol, cik string, d filing.Descriptor) string {
	return filepath.Join(l.FilingDir(symbol, cik, d), PrimaryDocumentStem+d.DetailSuffix)
}

// FactsDir holds fact documents and bulk archives.
func (l Layout) FactsDir() string {
	return filepath.Join(l.Root, FactsFolder)
}

// CompanyFactsPath is where the facts JSON of one company fetched on day is saved.
func (l Layout) CompanyFactsPath(symbol string, day time.Time) string {
	return filepath.Join(l.FactsDir(), fmt.Sprintf("%s-facts-%s.json", symbol, day.Format(filing.DateLayout)))
}

// ArchivePath is where a bulk archive fetched on day is saved.
func (l Layout) ArchivePath(prefix string, day time.Time) string {
	return filepath.Join(l.FactsDir(), fmt.Sprintf("%s-%s.zip", prefix, day.Format(filing.DateLayout)))
}

// pathSafe replaces path separators in a form name.
func pathSafe(name string) string {
	return strings.NewReplacer("/", "-", `\`, "-").Replace(name)
}
