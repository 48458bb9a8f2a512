package filing

import (
	"path"
	"strings"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
)

// Descriptor is one remote filing selected for download.
type Descriptor struct {
	Form            string
	CIK             string // 10 digits
	AccessionNumber string // nnnnnnnnnn-nn-nnnnnn
	FilingDate      time.Time
	RawURL          string
	PrimaryDocURL   string
	DetailSuffix    string // extension of the saved primary document
}

// NewDescriptor builds the descriptor of one filing row. The archive paths
// use the CIK without leading zeros and the accession number without dashes.
func NewDescriptor(e endpoint.Endpoints, cik, accession, form, document string, filed time.Time) Descriptor {
	trimmed := TrimCIK(cik)
	folder := strings.ReplaceAll(accession, "-", "")

	return Descriptor{
		Form:            form,
		CIK:             cik,
		AccessionNumber: accession,
		FilingDate:      filed,
		RawURL:          e.FilingDocument(trimmed, folder, accession+".txt"),
		PrimaryDocURL:   e.FilingDocument(trimmed, folder, document),
		DetailSuffix:    detailSuffix(document),
	}
}

// detailSuffix maps the primary document extension to the saved one.
// .htm becomes .html, anything else is kept.
func detailSuffix(document string) string {
	ext := path.Ext(document)
	if strings.EqualFold(ext, ".htm") {
		return ".html"
	}
	return ext
}
