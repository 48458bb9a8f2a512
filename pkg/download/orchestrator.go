package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/sec-edgar-client/internal/fsutil"
	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for downloads.
var (
	filingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_download_filings_total",
		Help: "Filings processed by result (saved, skipped)",
	}, []string{"result"})

	bytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_download_bytes_total",
		Help: "Bytes written by artifact kind",
	}, []string{"kind"})
)

// Fetcher streams a remote document into a local file.
type Fetcher interface {
	Download(ctx context.Context, url, host, dst string) (int64, error)
}

// Lister produces the filings to download for a request.
type Lister interface {
	Collect(ctx context.Context, req *filing.DownloadRequest) ([]filing.Descriptor, error)
}

// Resolver validates company input.
type Resolver interface {
	Resolve(symbolOrCIK string) (string, error)
	Symbol(cik string) (string, bool)
}

// Orchestrator downloads filings and fact documents.
type Orchestrator struct {
	fetcher   Fetcher
	lister    Lister
	resolver  Resolver
	endpoints endpoint.Endpoints
	layout    Layout
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrchestrator creates an orchestrator saving under root.
func NewOrchestrator(fetcher Fetcher, lister Lister, resolver Resolver, e endpoint.Endpoints, root string) *Orchestrator {
	if root == "" {
		root = "."
	}
	return &Orchestrator{
		fetcher:   fetcher,
		lister:    lister,
		resolver:  resolver,
		endpoints: e.WithDefaults(),
		layout:    Layout{Root: root},
		now:       time.Now,
		logger:    logging.NewLogger("download"),
	}
}

// Layout returns the local path layout.
func (o *Orchestrator) Layout() Layout {
	return o.layout
}

// FetchAndSave downloads the filings selected by req and returns how many
// were saved completely. A failed filing does not stop the others; the
// returned error joins the failures of all skipped filings.
func (o *Orchestrator) FetchAndSave(ctx context.Context, req *filing.DownloadRequest) (int, error) {
	descriptors, err := o.lister.Collect(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("list filings for %s: %w", req.Symbol, err)
	}

	layout := Layout{Root: req.Root}
	saved := 0
	var errs []error

	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		o.logger.Info().
			Str("symbol", req.Symbol).
			Str("form", d.Form).
			Str("accession", d.AccessionNumber).
			Msg("Downloading filing")

		if err := o.saveFiling(ctx, layout, req, d); err != nil {
			filingsTotal.WithLabelValues("skipped").Inc()
			o.logger.Error().
				Err(err).
				Str("symbol", req.Symbol).
				Str("accession", d.AccessionNumber).
				Msg("Skipping filing")
			errs = append(errs, fmt.Errorf("filing %s: %w", d.AccessionNumber, err))
			continue
		}
		filingsTotal.WithLabelValues("saved").Inc()
		saved++
	}

	return saved, errors.Join(errs...)
}

func (o *Orchestrator) saveFiling(ctx context.Context, layout Layout, req *filing.DownloadRequest, d filing.Descriptor) error {
	n, err := o.fetcher.Download(ctx, d.RawURL, endpoint.HostWWW, layout.FullSubmissionPath(req.Symbol, req.CIK, d))
	if err != nil {
		return fmt.Errorf("raw submission: %w", err)
	}
	bytesTotal.WithLabelValues("full_submission").Add(float64(n))

	if !req.DownloadDetails {
		return nil
	}
	n, err = o.fetcher.Download(ctx, d.PrimaryDocURL, endpoint.HostWWW, layout.PrimaryDocumentPath(req.Symbol, req.CIK, d))
	if err != nil {
		return fmt.Errorf("primary document: %w", err)
	}
	bytesTotal.WithLabelValues("primary_document").Add(float64(n))
	return nil
}

// BatchResult reports the outcome of a batch over several companies.
type BatchResult struct {
	Saved   []string
	Skipped []string
}

// BatchParams are the per-company parameters of DownloadForCompanies. CIK,
// Symbol and Root are filled in per company.
type BatchParams = filing.Params

// DownloadForCompanies downloads the same forms for each company in turn.
// Entries in the result are "{symbol}-{form}". A company whose download
// fails is recorded as skipped and the batch continues.
func (o *Orchestrator) DownloadForCompanies(ctx context.Context, companies []string, params BatchParams) BatchResult {
	runID := uuid.NewString()
	logger := o.logger.With().Str("run_id", runID).Logger()
	var result BatchResult

	for _, company := range companies {
		if ctx.Err() != nil {
			result.Skipped = append(result.Skipped, entries(company, params.Forms)...)
			continue
		}

		cik, err := o.resolver.Resolve(company)
		if err != nil {
			logger.Error().Err(err).Str("company", company).Msg("Skipping company")
			result.Skipped = append(result.Skipped, entries(company, params.Forms)...)
			continue
		}
		symbol := o.symbolOf(cik)

		p := params
		p.CIK = cik
		p.Symbol = symbol
		p.Root = o.layout.Root
		req, err := filing.NewDownloadRequest(p)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Skipping company")
			result.Skipped = append(result.Skipped, entries(symbol, params.Forms)...)
			continue
		}

		saved, err := o.FetchAndSave(ctx, req)
		if err != nil {
			logger.Error().
				Err(err).
				Str("symbol", symbol).
				Int("saved", saved).
				Msg("Skipping forms after download error")
			result.Skipped = append(result.Skipped, entries(symbol, req.Forms)...)
			continue
		}

		logger.Info().Str("symbol", symbol).Int("saved", saved).Msg("Saved filings")
		result.Saved = append(result.Saved, entries(symbol, req.Forms)...)
	}

	return result
}

// DownloadFactsForCompanies saves the company facts JSON of each company as
// {symbol}-facts-{date}.json. With skipIfExists, companies already saved
// today are left alone and appear in neither list.
func (o *Orchestrator) DownloadFactsForCompanies(ctx context.Context, companies []string, skipIfExists bool) BatchResult {
	runID := uuid.NewString()
	logger := o.logger.With().Str("run_id", runID).Logger()
	today := o.now()
	var result BatchResult

	for _, company := range companies {
		cik, err := o.resolver.Resolve(company)
		if err != nil {
			logger.Error().Err(err).Str("company", company).Msg("Skipping company")
			result.Skipped = append(result.Skipped, company)
			continue
		}
		symbol := o.symbolOf(cik)

		dst := o.layout.CompanyFactsPath(symbol, today)
		if skipIfExists && fsutil.Exists(dst) {
			logger.Info().Str("symbol", symbol).Str("path", dst).Msg("Facts already saved")
			continue
		}

		n, err := o.fetcher.Download(ctx, o.endpoints.CompanyFacts(cik), endpoint.HostData, dst)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Skipping facts download")
			result.Skipped = append(result.Skipped, symbol)
			continue
		}
		bytesTotal.WithLabelValues("company_facts").Add(float64(n))

		logger.Info().Str("symbol", symbol).Msg("Saved facts")
		result.Saved = append(result.Saved, symbol)
	}

	return result
}

// DownloadFactsArchive saves the bulk company facts archive and returns its path.
func (o *Orchestrator) DownloadFactsArchive(ctx context.Context) (string, error) {
	return o.downloadArchive(ctx, o.endpoints.FactsArchive(), FactsArchivePrefix)
}

// DownloadSubmissionsArchive saves the bulk submissions archive and returns its path.
func (o *Orchestrator) DownloadSubmissionsArchive(ctx context.Context) (string, error) {
	return o.downloadArchive(ctx, o.endpoints.SubmissionsArchive(), SubmissionsArchivePrefix)
}

func (o *Orchestrator) downloadArchive(ctx context.Context, url, prefix string) (string, error) {
	dst := o.layout.ArchivePath(prefix, o.now())
	start := time.Now()

	n, err := o.fetcher.Download(ctx, url, endpoint.HostWWW, dst)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", prefix, err)
	}
	bytesTotal.WithLabelValues("archive").Add(float64(n))

	o.logger.Info().
		Str("path", dst).
		Int64("bytes", n).
		Dur("duration", time.Since(start)).
		Msg("Archive downloaded")
	return dst, nil
}

func (o *Orchestrator) symbolOf(cik string) string {
	if symbol, ok := o.resolver.Symbol(cik); ok {
		return symbol
	}
	return cik
}

func entries(symbol string, forms []string) []string {
	out := make([]string, 0, len(forms))
	for _, form := range forms {
		out = append(out, symbol+"-"+form)
	}
	return out
}
