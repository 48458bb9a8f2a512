package filing

import (
	"testing"

	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
)

func TestNewDescriptor(t *testing.T) {
	d := NewDescriptor(endpoint.Default(), "0000320193", "0000320193-23-000106", "10-K", "aapl-20230930.htm", date("2023-11-03"))

	if d.RawURL != "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106/0000320193-23-000106.txt" {
		t.Errorf("RawURL = %q", d.RawURL)
	}
	if d.PrimaryDocURL != "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm" {
		t.Errorf("PrimaryDocURL = %q", d.PrimaryDocURL)
	}
	if d.DetailSuffix != ".html" {
		t.Errorf("DetailSuffix = %q, want .html", d.DetailSuffix)
	}
	if d.CIK != "0000320193" || d.Form != "10-K" || d.AccessionNumber != "0000320193-23-000106" {
		t.Errorf("descriptor fields not carried over: %+v", d)
	}
}

func TestDetailSuffix(t *testing.T) {
	tests := []struct {
		document string
		want     string
	}{
		{"aapl-20230930.htm", ".html"},
		{"form.HTM", ".html"},
		{"report.html", ".html"},
		{"primary_doc.xml", ".xml"},
		{"exhibit.txt", ".txt"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := detailSuffix(tt.document); got != tt.want {
			t.Errorf("detailSuffix(%q) = %q, want %q", tt.document, got, tt.want)
		}
	}
}

func TestCIKHelpers(t *testing.T) {
	if got := PadCIK("320193"); got != "0000320193" {
		t.Errorf("PadCIK() = %q", got)
	}
	if got := TrimCIK("0000320190"); got != "320190" {
		t.Errorf("TrimCIK() = %q, trailing zero must be kept", got)
	}
	if got := TrimCIK("0000000000"); got != "0" {
		t.Errorf("TrimCIK(all zeros) = %q, want 0", got)
	}
	if IsNumeric("") || IsNumeric("12a") || !IsNumeric("0123") {
		t.Error("IsNumeric() misclassified input")
	}
}

func TestIsSupported(t *testing.T) {
	for _, form := range []string{"10-K", "10-Q", "8-K", "10-K/A", "DEF 14A"} {
		if !IsSupported(form) {
			t.Errorf("IsSupported(%q) = false", form)
		}
	}
	if IsSupported("NOT-A-FORM") {
		t.Error("IsSupported(NOT-A-FORM) = true")
	}
	forms := SupportedForms()
	for i := 1; i < len(forms); i++ {
		if forms[i-1] >= forms[i] {
			t.Fatalf("SupportedForms() not sorted at %d", i)
		}
	}
}
