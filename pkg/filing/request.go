package filing

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format used by EDGAR and accepted from callers.
const DateLayout = "2006-01-02"

// DefaultAfterDate is the earliest filing date the archive serves. Earlier
// after dates are clamped to it.
var DefaultAfterDate = time.Date(1994, time.January, 1, 0, 0, 0, 0, time.UTC)

// Params are the caller-supplied download parameters.
type Params struct {
	// Root is the download folder.
	Root string

	// Forms are the accepted form types. Required.
	Forms []string

	// CIK is the canonical 10-digit identifier. Required.
	CIK string

	// Symbol names the company directory. Defaults to the CIK.
	Symbol string

	// Limit caps the number of filings. Zero means unbounded.
	Limit int

	// After and Before bound the filing date, inclusive. Zero values mean the
	// archive epoch and today.
	After  time.Time
	Before time.Time

	// IncludeAmends keeps amended forms named in Forms, e.g. 10-K/A. Without
	// it every /A form is dropped.
	IncludeAmends bool

	// DownloadDetails also fetches the primary document of each filing.
	DownloadDetails bool
}

// DownloadRequest is a validated, read-only set of download parameters.
type DownloadRequest struct {
	Root            string
	Forms           []string
	CIK             string
	Symbol          string
	Limit           int // 0 means unbounded
	After           time.Time
	Before          time.Time
	IncludeAmends   bool
	DownloadDetails bool

	forms map[string]struct{}
}

// NewDownloadRequest validates p and applies defaults.
func NewDownloadRequest(p Params) (*DownloadRequest, error) {
	if len(p.Forms) == 0 {
		return nil, invalid("forms", "", "at least one form type is required")
	}

	forms := make([]string, 0, len(p.Forms))
	set := make(map[string]struct{}, len(p.Forms))
	var unsupported []string
	for _, form := range p.Forms {
		form = strings.ToUpper(strings.TrimSpace(form))
		if !IsSupported(form) {
			unsupported = append(unsupported, form)
			continue
		}
		if _, dup := set[form]; dup {
			continue
		}
		set[form] = struct{}{}
		forms = append(forms, form)
	}
	if len(unsupported) > 0 {
		return nil, invalid("forms", strings.Join(unsupported, ", "), "not supported")
	}

	if len(p.CIK) != CIKLength || !IsNumeric(p.CIK) {
		return nil, invalid("cik", p.CIK, fmt.Sprintf("must be %d digits", CIKLength))
	}

	if p.Limit < 0 {
		return nil, invalid("limit", fmt.Sprint(p.Limit), "must not be negative")
	}

	after := dateOf(p.After)
	if after.Before(DefaultAfterDate) {
		after = DefaultAfterDate
	}
	before := dateOf(p.Before)
	if p.Before.IsZero() {
		before = dateOf(time.Now())
	}
	if after.After(before) {
		return nil, invalid("date window",
			after.Format(DateLayout)+".."+before.Format(DateLayout),
			"after date cannot be later than before date")
	}

	root := p.Root
	if root == "" {
		root = "."
	}
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if symbol == "" {
		symbol = p.CIK
	}

	return &DownloadRequest{
		Root:            root,
		Forms:           forms,
		CIK:             p.CIK,
		Symbol:          symbol,
		Limit:           p.Limit,
		After:           after,
		Before:          before,
		IncludeAmends:   p.IncludeAmends,
		DownloadDetails: p.DownloadDetails,
		forms:           set,
	}, nil
}

// Accepts reports whether a filing of form filed on filed passes the form,
// amendment and date filters.
func (r *DownloadRequest) Accepts(form string, filed time.Time) bool {
	if !r.acceptsForm(form) {
		return false
	}
	filed = dateOf(filed)
	return !filed.Before(r.After) && !filed.After(r.Before)
}

func (r *DownloadRequest) acceptsForm(form string) bool {
	if IsAmendment(form) && !r.IncludeAmends {
		return false
	}
	_, ok := r.forms[form]
	return ok
}

// Reached reports whether n filings satisfy the limit.
func (r *DownloadRequest) Reached(n int) bool {
	return r.Limit > 0 && n >= r.Limit
}

// ParseDate parses a YYYY-MM-DD date. Empty input yields the zero time.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, invalid(field, value, "expected a date of the form YYYY-MM-DD")
	}
	return t, nil
}

// dateOf truncates t to its calendar date in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
