package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pagination.
var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_pagination_pages_total",
		Help: "Submissions pages fetched by kind",
	}, []string{"kind"})

	descriptorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgar_pagination_descriptors_total",
		Help: "Filings selected for download",
	})
)

// Getter fetches and decodes a JSON document.
type Getter interface {
	GetJSON(ctx context.Context, url, host string, v any) error
}

// Aggregator walks submissions pages sequentially.
type Aggregator struct {
	getter    Getter
	endpoints endpoint.Endpoints
	logger    zerolog.Logger
}

// NewAggregator creates an aggregator fetching through getter.
func NewAggregator(getter Getter, e endpoint.Endpoints) *Aggregator {
	return &Aggregator{
		getter:    getter,
		endpoints: e.WithDefaults(),
		logger:    logging.NewLogger("pagination"),
	}
}

// Collect returns the filings of req.CIK that pass the request filters, in
// archive order, stopping at the request limit.
func (a *Aggregator) Collect(ctx context.Context, req *filing.DownloadRequest) ([]filing.Descriptor, error) {
	start := time.Now()

	url := a.endpoints.Submissions(req.CIK)
	var first firstPage
	if err := a.fetch(ctx, url, "first", &first); err != nil {
		return nil, err
	}

	var out []filing.Descriptor
	page := first.Filings.Recent
	queue := first.Filings.Files
	fetched := 1

	for {
		done, err := a.collectPage(url, page, req, &out)
		if err != nil {
			return nil, err
		}
		if done || len(queue) == 0 {
			break
		}

		var ref PageRef
		ref, queue = queue[0], queue[1:]
		url = a.endpoints.SubmissionsPage(ref.Name)
		page = Page{}
		if err := a.fetch(ctx, url, "continuation", &page); err != nil {
			return nil, err
		}
		fetched++
	}

	descriptorsTotal.Add(float64(len(out)))
	a.logger.Info().
		Str("cik", req.CIK).
		Int("pages", fetched).
		Int("filings", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Filing list collected")

	return out, nil
}

// collectPage appends the accepted rows of page to out. It reports true once
// the limit is reached.
func (a *Aggregator) collectPage(url string, page Page, req *filing.DownloadRequest, out *[]filing.Descriptor) (bool, error) {
	rows, err := page.Rows(url)
	if err != nil {
		return false, err
	}

	for i := 0; i < rows; i++ {
		filed, err := time.Parse(filing.DateLayout, page.FilingDate[i])
		if err != nil {
			return false, &IntegrityError{
				URL:    url,
				Reason: fmt.Sprintf("row %d has malformed filing date %q", i, page.FilingDate[i]),
			}
		}
		form := page.Form[i]
		if !req.Accepts(form, filed) {
			continue
		}

		*out = append(*out, filing.NewDescriptor(a.endpoints, req.CIK,
			page.AccessionNumber[i], form, page.PrimaryDocument[i], filed))

		if req.Reached(len(*out)) {
			return true, nil
		}
	}
	return false, nil
}

// First returns the first submissions page of cik as is.
func (a *Aggregator) First(ctx context.Context, cik string) (*Document, error) {
	var doc Document
	if err := a.fetch(ctx, a.endpoints.Submissions(cik), "first", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Merge returns the whole filing history of cik as one document: the
// continuation pages are appended to Recent in listed order and Files is
// emptied.
func (a *Aggregator) Merge(ctx context.Context, cik string) (*Document, error) {
	doc, err := a.First(ctx, cik)
	if err != nil {
		return nil, err
	}
	if len(doc.Files) == 0 {
		return doc, nil
	}

	pages := make([]Columns, 0, len(doc.Files)+1)
	pages = append(pages, doc.Recent)
	for _, ref := range doc.Files {
		var cols Columns
		if err := a.fetch(ctx, a.endpoints.SubmissionsPage(ref.Name), "continuation", &cols); err != nil {
			return nil, err
		}
		pages = append(pages, cols)
	}

	doc.Recent = Concat(pages...)
	doc.Files = nil

	a.logger.Debug().
		Str("cik", cik).
		Int("pages", len(pages)).
		Int("filings", doc.Rows()).
		Msg("Submissions merged")
	return doc, nil
}

func (a *Aggregator) fetch(ctx context.Context, url, kind string, v any) error {
	if err := a.getter.GetJSON(ctx, url, endpoint.HostData, v); err != nil {
		return fmt.Errorf("fetch submissions page %s: %w", url, err)
	}
	pagesTotal.WithLabelValues(kind).Inc()
	a.logger.Debug().Str("url", url).Str("kind", kind).Msg("Submissions page fetched")
	return nil
}
