// Package edgar is the entry point of the library. A Client composes the
// rate-limited transport, the identifier directory, the submissions
// aggregator, the download orchestrator and the bulk extraction pipeline,
// and validates caller input before any request is built from it.
//
// Basic usage:
//
//	c, err := edgar.New(ctx, edgar.Config{
//		CompanyName:    "Sample Co",
//		Email:          "admin@sample.com",
//		DownloadFolder: "./data",
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	n, err := c.DownloadForms(ctx, "AAPL", filing.Params{Forms: []string{"10-K"}, Limit: 5})
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/cache"
	"github.com/Sternrassler/sec-edgar-client/pkg/client"
	"github.com/Sternrassler/sec-edgar-client/pkg/download"
	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
	"github.com/Sternrassler/sec-edgar-client/pkg/extract"
	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/Sternrassler/sec-edgar-client/pkg/feed"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/Sternrassler/sec-edgar-client/pkg/identifier"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/Sternrassler/sec-edgar-client/pkg/pagination"
	"github.com/Sternrassler/sec-edgar-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// Config holds the facade configuration. CompanyName and Email identify the
// caller to EDGAR and are required.
type Config struct {
	CompanyName string
	Email       string

	// DownloadFolder is the root of all saved artifacts. Default ".".
	DownloadFolder string

	// RequestsPerSecond sizes the in-process budget when Budget is nil.
	RequestsPerSecond int

	// Budget is a shared request budget, e.g. a ratelimit.RedisWindow.
	Budget ratelimit.Budget

	// Retry policy for transient failures. Zero fields use the defaults.
	Retry client.RetryConfig

	// Cache is an optional response cache for JSON lookups.
	Cache    cache.Store
	CacheTTL time.Duration

	// ExtractFormat is the table format of bulk extraction. Default csv.
	ExtractFormat facts.Format

	// Endpoints overrides the EDGAR base URLs (for testing).
	Endpoints endpoint.Endpoints

	// HTTPClient overrides the underlying client (for testing).
	HTTPClient *http.Client
}

// UserAgent returns the identity string sent with every request.
func (c Config) UserAgent() string {
	return strings.TrimSpace(c.CompanyName) + " " + strings.TrimSpace(c.Email)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.CompanyName) == "" {
		return &filing.ValidationError{Field: "company name", Reason: "must not be blank"}
	}
	if strings.TrimSpace(c.Email) == "" {
		return &filing.ValidationError{Field: "email", Reason: "must not be blank"}
	}
	return nil
}

// Client is the EDGAR facade. It is safe for concurrent use, and every
// request it makes, from any goroutine, draws from one request budget.
type Client struct {
	transport    *client.Client
	resolver     *identifier.Resolver
	aggregator   *pagination.Aggregator
	orchestrator *download.Orchestrator
	pipeline     *extract.Pipeline
	endpoints    endpoint.Endpoints
	folder       string
	logger       zerolog.Logger
}

// New validates cfg, creates the transport and loads the company directory.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.DownloadFolder == "" {
		cfg.DownloadFolder = "."
	}
	e := cfg.Endpoints.WithDefaults()

	tcfg := client.DefaultConfig(cfg.UserAgent())
	tcfg.Budget = cfg.Budget
	if cfg.RequestsPerSecond > 0 {
		tcfg.RequestsPerSecond = cfg.RequestsPerSecond
	}
	tcfg.Retry = cfg.Retry
	tcfg.Cache = cfg.Cache
	if cfg.CacheTTL > 0 {
		tcfg.CacheTTL = cfg.CacheTTL
	}
	tcfg.HTTPClient = cfg.HTTPClient

	transport, err := client.New(tcfg)
	if err != nil {
		return nil, err
	}

	resolver, err := identifier.Load(ctx, transport, e)
	if err != nil {
		transport.Close()
		return nil, err
	}

	aggregator := pagination.NewAggregator(transport, e)
	orchestrator := download.NewOrchestrator(transport, aggregator, resolver, e, cfg.DownloadFolder)

	format := cfg.ExtractFormat
	if format == "" {
		format = facts.FormatCSV
	}

	c := &Client{
		transport:    transport,
		resolver:     resolver,
		aggregator:   aggregator,
		orchestrator: orchestrator,
		pipeline:     extract.NewPipeline(resolver, orchestrator.Layout().FactsDir(), format),
		endpoints:    e,
		folder:       cfg.DownloadFolder,
		logger:       logging.NewLogger("edgar"),
	}

	c.logger.Info().
		Str("download_folder", c.folder).
		Int("companies", resolver.Len()).
		Msg("EDGAR client ready")
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Resolver exposes the loaded company directory.
func (c *Client) Resolver() *identifier.Resolver {
	return c.resolver
}

// Layout returns the local path layout under the download folder.
func (c *Client) Layout() download.Layout {
	return c.orchestrator.Layout()
}

// Submissions returns the submissions document of a company. With paginate
// the continuation pages are merged into Recent.
func (c *Client) Submissions(ctx context.Context, company string, paginate bool) (*pagination.Document, error) {
	cik, err := c.resolver.Resolve(company)
	if err != nil {
		return nil, err
	}
	if paginate {
		return c.aggregator.Merge(ctx, cik)
	}
	return c.aggregator.First(ctx, cik)
}

// CompanyConcept returns the disclosures of one concept of a company.
func (c *Client) CompanyConcept(ctx context.Context, company, taxonomy, tag string) (json.RawMessage, error) {
	cik, err := c.resolver.Resolve(company)
	if err != nil {
		return nil, err
	}
	if err := required("taxonomy", taxonomy); err != nil {
		return nil, err
	}
	if err := required("tag", tag); err != nil {
		return nil, err
	}

	var out json.RawMessage
	if err := c.transport.GetJSON(ctx, c.endpoints.CompanyConcept(cik, taxonomy, tag), endpoint.HostData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompanyFacts returns every fact disclosed by a company.
func (c *Client) CompanyFacts(ctx context.Context, company string) (*facts.Document, error) {
	cik, err := c.resolver.Resolve(company)
	if err != nil {
		return nil, err
	}

	var doc facts.Document
	if err := c.transport.GetJSON(ctx, c.endpoints.CompanyFacts(cik), endpoint.HostData, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Frames returns one fact across all companies for a calendar period.
// Quarter 0 selects the whole year.
func (c *Client) Frames(ctx context.Context, taxonomy, tag, unit string, year, quarter int, instantaneous bool) (json.RawMessage, error) {
	for _, f := range []struct{ name, value string }{{"taxonomy", taxonomy}, {"tag", tag}, {"unit", unit}} {
		if err := required(f.name, f.value); err != nil {
			return nil, err
		}
	}
	if year < 1900 {
		return nil, &filing.ValidationError{Field: "year", Value: fmt.Sprint(year), Reason: "must be a calendar year"}
	}
	if quarter < 0 || quarter > 4 {
		return nil, &filing.ValidationError{Field: "quarter", Value: fmt.Sprint(quarter), Reason: "must be between 0 and 4"}
	}

	period := endpoint.FramePeriod(year, quarter, instantaneous)
	var out json.RawMessage
	if err := c.transport.GetJSON(ctx, c.endpoints.Frames(taxonomy, tag, unit, period), endpoint.HostData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadForms saves the filings of one company selected by params and
// returns how many were saved. CIK, Symbol and Root of params are filled in.
func (c *Client) DownloadForms(ctx context.Context, company string, params filing.Params) (int, error) {
	cik, err := c.resolver.Resolve(company)
	if err != nil {
		return 0, err
	}

	params.CIK = cik
	params.Symbol = c.symbolOf(cik)
	params.Root = c.folder
	req, err := filing.NewDownloadRequest(params)
	if err != nil {
		return 0, err
	}
	return c.orchestrator.FetchAndSave(ctx, req)
}

// DownloadFormsForCompanies runs DownloadForms for each company in turn.
func (c *Client) DownloadFormsForCompanies(ctx context.Context, companies []string, params filing.Params) download.BatchResult {
	return c.orchestrator.DownloadForCompanies(ctx, companies, params)
}

// DownloadFactsForCompanies saves the facts document of each company.
func (c *Client) DownloadFactsForCompanies(ctx context.Context, companies []string, skipIfExists bool) download.BatchResult {
	return c.orchestrator.DownloadFactsForCompanies(ctx, companies, skipIfExists)
}

// DownloadFactsArchive saves today's bulk facts archive.
func (c *Client) DownloadFactsArchive(ctx context.Context) (string, error) {
	return c.orchestrator.DownloadFactsArchive(ctx)
}

// DownloadSubmissionsArchive saves today's bulk submissions archive.
func (c *Client) DownloadSubmissionsArchive(ctx context.Context) (string, error) {
	return c.orchestrator.DownloadSubmissionsArchive(ctx)
}

// LatestFactsArchive returns the most recent facts archive in the download
// folder.
func (c *Client) LatestFactsArchive() (string, error) {
	return extract.LatestArchive(c.Layout().FactsDir(), download.FactsArchivePrefix)
}

// ExtractAllFacts writes one table per company in a facts archive. An empty
// archivePath selects LatestFactsArchive.
func (c *Client) ExtractAllFacts(ctx context.Context, archivePath string, workers int) (extract.Summary, error) {
	if archivePath == "" {
		latest, err := c.LatestFactsArchive()
		if err != nil {
			return extract.Summary{}, err
		}
		archivePath = latest
	}
	return c.pipeline.ExtractAll(ctx, archivePath, workers)
}

// QueryFacts normalizes the facts of one company straight from an archive.
// An empty archivePath selects LatestFactsArchive.
func (c *Client) QueryFacts(ctx context.Context, archivePath, company string) (*facts.Table, error) {
	cik, err := c.resolver.Resolve(company)
	if err != nil {
		return nil, err
	}
	if archivePath == "" {
		if archivePath, err = c.LatestFactsArchive(); err != nil {
			return nil, err
		}
	}

	doc, err := extract.QueryArchive(ctx, archivePath, cik)
	if err != nil {
		return nil, err
	}
	return facts.Normalize(doc)
}

// Watch polls the current-filings feed every interval and passes new
// entries to handle until ctx is done.
func (c *Client) Watch(ctx context.Context, interval time.Duration, handle feed.Handler) error {
	return feed.NewWatcher(c.transport, c.endpoints).Run(ctx, interval, handle)
}

func (c *Client) symbolOf(cik string) string {
	if symbol, ok := c.resolver.Symbol(cik); ok {
		return symbol
	}
	return cik
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &filing.ValidationError{Field: field, Reason: "must not be blank"}
	}
	return nil
}
