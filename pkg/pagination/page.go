package pagination

import (
	"encoding/json"
	"fmt"
)

// Page is one batch of filing rows as parallel arrays.
type Page struct {
	AccessionNumber []string `json:"accessionNumber"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
	FilingDate      []string `json:"filingDate"`
}

// Rows returns the row count, or an IntegrityError when the arrays differ
// in length.
func (p Page) Rows(url string) (int, error) {
	n := len(p.AccessionNumber)
	if len(p.Form) == n && len(p.PrimaryDocument) == n && len(p.FilingDate) == n {
		return n, nil
	}
	return 0, &IntegrityError{
		URL:    url,
		Reason: "parallel filing arrays differ in length",
		Lengths: map[string]int{
			"accessionNumber": len(p.AccessionNumber),
			"form":            len(p.Form),
			"primaryDocument": len(p.PrimaryDocument),
			"filingDate":      len(p.FilingDate),
		},
	}
}

// PageRef names a continuation page.
type PageRef struct {
	Name        string `json:"name"`
	FilingCount int    `json:"filingCount,omitempty"`
	FilingFrom  string `json:"filingFrom,omitempty"`
	FilingTo    string `json:"filingTo,omitempty"`
}

// firstPage is the part of the first submissions page the aggregator reads.
type firstPage struct {
	Filings struct {
		Recent Page      `json:"recent"`
		Files  []PageRef `json:"files"`
	} `json:"filings"`
}

// Columns is a page in its full shape: every parallel array by name.
type Columns map[string][]json.RawMessage

// Concat joins pages column by column in the given order. The column set is
// taken from the first page.
func Concat(pages ...Columns) Columns {
	if len(pages) == 0 {
		return Columns{}
	}
	merged := make(Columns, len(pages[0]))
	for name := range pages[0] {
		total := 0
		for _, p := range pages {
			total += len(p[name])
		}
		col := make([]json.RawMessage, 0, total)
		for _, p := range pages {
			col = append(col, p[name]...)
		}
		merged[name] = col
	}
	return merged
}

// Document is a submissions first page: company metadata, the recent
// filings and the continuation page list.
type Document struct {
	// Header holds every top-level field except filings.
	Header map[string]json.RawMessage
	Recent Columns
	Files  []PageRef
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}

	var filings struct {
		Recent Columns   `json:"recent"`
		Files  []PageRef `json:"files"`
	}
	if raw, ok := top["filings"]; ok {
		if err := json.Unmarshal(raw, &filings); err != nil {
			return fmt.Errorf("decode filings: %w", err)
		}
		delete(top, "filings")
	}

	d.Header = top
	d.Recent = filings.Recent
	d.Files = filings.Files
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Header)+1)
	for k, v := range d.Header {
		out[k] = v
	}
	recent := d.Recent
	if recent == nil {
		recent = Columns{}
	}
	files := d.Files
	if files == nil {
		files = []PageRef{}
	}
	out["filings"] = map[string]any{
		"recent": recent,
		"files":  files,
	}
	return json.Marshal(out)
}

// Rows returns the number of filings in Recent, measured on accessionNumber.
func (d *Document) Rows() int {
	return len(d.Recent["accessionNumber"])
}
