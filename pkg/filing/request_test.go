package filing

import (
	"errors"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func validParams() Params {
	return Params{
		Root:   "/tmp/edgar",
		Forms:  []string{"10-K"},
		CIK:    "0000320193",
		Symbol: "aapl",
	}
}

func TestNewDownloadRequest_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
		field  string
	}{
		{name: "no forms", modify: func(p *Params) { p.Forms = nil }, field: "forms"},
		{name: "unsupported form", modify: func(p *Params) { p.Forms = []string{"10-K", "NOT-A-FORM"} }, field: "forms"},
		{name: "short cik", modify: func(p *Params) { p.CIK = "320193" }, field: "cik"},
		{name: "non numeric cik", modify: func(p *Params) { p.CIK = "AAPL000000" }, field: "cik"},
		{name: "negative limit", modify: func(p *Params) { p.Limit = -1 }, field: "limit"},
		{
			name: "after later than before",
			modify: func(p *Params) {
				p.After = date("2021-01-01")
				p.Before = date("2020-12-31")
			},
			field: "date window",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.modify(&p)

			req, err := NewDownloadRequest(p)
			if req != nil {
				t.Error("expected no request on validation failure")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestNewDownloadRequest_Defaults(t *testing.T) {
	req, err := NewDownloadRequest(validParams())
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}

	if !req.After.Equal(DefaultAfterDate) {
		t.Errorf("After = %v, want %v", req.After, DefaultAfterDate)
	}
	today := dateOf(time.Now())
	if !req.Before.Equal(today) {
		t.Errorf("Before = %v, want %v", req.Before, today)
	}
	if req.Limit != 0 || req.Reached(1_000_000) {
		t.Errorf("Limit = %d, want unbounded", req.Limit)
	}
	if req.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", req.Symbol)
	}
}

func TestNewDownloadRequest_ClampsAfterToEpoch(t *testing.T) {
	p := validParams()
	p.After = date("1980-06-01")

	req, err := NewDownloadRequest(p)
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}
	if !req.After.Equal(DefaultAfterDate) {
		t.Errorf("After = %v, want clamped to %v", req.After, DefaultAfterDate)
	}
}

func TestNewDownloadRequest_SymbolDefaultsToCIK(t *testing.T) {
	p := validParams()
	p.Symbol = ""

	req, err := NewDownloadRequest(p)
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}
	if req.Symbol != p.CIK {
		t.Errorf("Symbol = %q, want %q", req.Symbol, p.CIK)
	}
}

func TestDownloadRequest_Accepts(t *testing.T) {
	p := validParams()
	p.Forms = []string{"10-K", "8-K"}
	p.After = date("2020-01-01")
	p.Before = date("2020-12-31")

	exclude, err := NewDownloadRequest(p)
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}
	p.IncludeAmends = true
	include, err := NewDownloadRequest(p)
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}

	tests := []struct {
		name        string
		form        string
		filed       string
		wantExclude bool
		wantInclude bool
	}{
		{"accepted form in window", "10-K", "2020-03-01", true, true},
		{"window start inclusive", "8-K", "2020-01-01", true, true},
		{"window end inclusive", "8-K", "2020-12-31", true, true},
		{"before window", "10-K", "2019-12-31", false, false},
		{"after window", "10-K", "2021-01-01", false, false},
		{"form not requested", "10-Q", "2020-03-01", false, false},
		{"amendment of requested base form", "10-K/A", "2020-03-01", false, false},
		{"amendment of unrequested form", "10-Q/A", "2020-03-01", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exclude.Accepts(tt.form, date(tt.filed)); got != tt.wantExclude {
				t.Errorf("Accepts(%s, %s) without amends = %v, want %v", tt.form, tt.filed, got, tt.wantExclude)
			}
			if got := include.Accepts(tt.form, date(tt.filed)); got != tt.wantInclude {
				t.Errorf("Accepts(%s, %s) with amends = %v, want %v", tt.form, tt.filed, got, tt.wantInclude)
			}
		})
	}
}

func TestDownloadRequest_AcceptsRequestedAmendment(t *testing.T) {
	p := validParams()
	p.Forms = []string{"10-K", "10-K/A"}
	p.After = date("2020-01-01")
	p.Before = date("2020-12-31")

	exclude, err := NewDownloadRequest(p)
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}
	p.IncludeAmends = true
	include, err := NewDownloadRequest(p)
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}

	if exclude.Accepts("10-K/A", date("2020-03-01")) {
		t.Error("Accepts(10-K/A) without amends = true, want false")
	}
	if !include.Accepts("10-K/A", date("2020-03-01")) {
		t.Error("Accepts(10-K/A) with amends and 10-K/A requested = false, want true")
	}
	if include.Accepts("10-Q/A", date("2020-03-01")) {
		t.Error("Accepts(10-Q/A) = true, want false")
	}
}

func TestDownloadRequest_Reached(t *testing.T) {
	p := validParams()
	p.Limit = 2
	req, err := NewDownloadRequest(p)
	if err != nil {
		t.Fatalf("NewDownloadRequest() error = %v", err)
	}

	if req.Reached(1) {
		t.Error("Reached(1) = true with limit 2")
	}
	if !req.Reached(2) {
		t.Error("Reached(2) = false with limit 2")
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("after", "2020-01-31")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if !got.Equal(date("2020-01-31")) {
		t.Errorf("ParseDate() = %v", got)
	}

	if got, err := ParseDate("after", ""); err != nil || !got.IsZero() {
		t.Errorf("ParseDate(empty) = %v, %v; want zero, nil", got, err)
	}

	var verr *ValidationError
	if _, err := ParseDate("before", "31/01/2020"); !errors.As(err, &verr) {
		t.Errorf("ParseDate(bad) error = %v, want *ValidationError", err)
	}
}
