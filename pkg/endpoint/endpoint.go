// Package endpoint builds EDGAR request URLs. The base URLs are configurable
// so tests and mirrors can point the client elsewhere.
package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// Hosts of the two EDGAR endpoint families. The Host header has to match
// the family even when the base URL points elsewhere.
const (
	HostData = "data.sec.gov"
	HostWWW  = "www.sec.gov"
)

// Default base URLs.
const (
	DefaultDataBaseURL = "https://" + HostData
	DefaultWWWBaseURL  = "https://" + HostWWW
)

// Endpoints holds the base URLs for both endpoint families.
type Endpoints struct {
	DataBaseURL string
	WWWBaseURL  string
}

// Default returns the production endpoints.
func Default() Endpoints {
	return Endpoints{
		DataBaseURL: DefaultDataBaseURL,
		WWWBaseURL:  DefaultWWWBaseURL,
	}
}

// WithDefaults fills empty base URLs with the production ones.
func (e Endpoints) WithDefaults() Endpoints {
	if e.DataBaseURL == "" {
		e.DataBaseURL = DefaultDataBaseURL
	}
	if e.WWWBaseURL == "" {
		e.WWWBaseURL = DefaultWWWBaseURL
	}
	e.DataBaseURL = strings.TrimRight(e.DataBaseURL, "/")
	e.WWWBaseURL = strings.TrimRight(e.WWWBaseURL, "/")
	return e
}

// Submissions is the first page of a company's filing history.
// cik must be zero-padded to 10 digits.
func (e Endpoints) Submissions(cik string) string {
	return fmt.Sprintf("%s/submissions/CIK%s.json", e.DataBaseURL, cik)
}

// SubmissionsPage is a continuation page listed under filings.files.
func (e Endpoints) SubmissionsPage(name string) string {
	return fmt.Sprintf("%s/submissions/%s", e.DataBaseURL, url.PathEscape(name))
}

// FilingDocument is one document inside a filing folder. cik carries no
// leading zeros and accession no dashes.
func (e Endpoints) FilingDocument(cik, accessionNoDash, document string) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", e.WWWBaseURL, cik, accessionNoDash, document)
}

// Directory is the ticker/CIK/name directory.
func (e Endpoints) Directory() string {
	return e.WWWBaseURL + "/files/company_tickers_exchange.json"
}

// CompanyFacts returns every XBRL fact of a company.
func (e Endpoints) CompanyFacts(cik string) string {
	return fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", e.DataBaseURL, cik)
}

// CompanyConcept returns the disclosures of one company for one concept.
func (e Endpoints) CompanyConcept(cik, taxonomy, tag string) string {
	return fmt.Sprintf("%s/api/xbrl/companyconcept/CIK%s/%s/%s.json",
		e.DataBaseURL, cik, url.PathEscape(taxonomy), url.PathEscape(tag))
}

// Frames returns one fact aggregated over all companies for a period.
func (e Endpoints) Frames(taxonomy, tag, unit, period string) string {
	return fmt.Sprintf("%s/api/xbrl/frames/%s/%s/%s/%s.json",
		e.DataBaseURL, url.PathEscape(taxonomy), url.PathEscape(tag), url.PathEscape(unit), period)
}

// FactsArchive is the nightly bulk archive of all company facts.
func (e Endpoints) FactsArchive() string {
	return e.WWWBaseURL + "/Archives/edgar/daily-index/xbrl/companyfacts.zip"
}

// SubmissionsArchive is the nightly bulk archive of all submission histories.
func (e Endpoints) SubmissionsArchive() string {
	return e.WWWBaseURL + "/Archives/edgar/daily-index/bulkdata/submissions.zip"
}

// CurrentFeed is the Atom feed of the latest filings.
func (e Endpoints) CurrentFeed() string {
	q := url.Values{}
	q.Set("action", "getcurrent")
	q.Set("type", "")
	q.Set("company", "")
	q.Set("dateb", "")
	q.Set("owner", "include")
	q.Set("start", "0")
	q.Set("count", "100")
	q.Set("output", "atom")
	return e.WWWBaseURL + "/cgi-bin/browse-edgar?" + q.Encode()
}

// FramePeriod builds a frames period such as CY2019, CY2019Q1 or CY2019Q1I.
// quarter is ignored unless it is between 1 and 4.
func FramePeriod(year, quarter int, instantaneous bool) string {
	period := fmt.Sprintf("CY%d", year)
	if quarter >= 1 && quarter <= 4 {
		period += fmt.Sprintf("Q%d", quarter)
	}
	if instantaneous {
		period += "I"
	}
	return period
}
