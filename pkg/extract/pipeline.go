package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/Sternrassler/sec-edgar-client/internal/fsutil"
	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Prometheus metrics for bulk extraction.
var (
	membersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_extract_members_total",
		Help: "Archive members processed by result (written, existing, failed)",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgar_extract_run_duration_seconds",
		Help:    "Duration of complete extraction runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Resolver maps a CIK to its display symbol.
type Resolver interface {
	Symbol(cik string) (string, bool)
}

// Summary counts the outcome of one run.
type Summary struct {
	RunID    string
	Archive  string
	Date     time.Time
	Workers  int
	Written  int
	Existing int
	Failed   int
	Failures []string // member names
}

// Pipeline extracts per-company tables from facts archives.
type Pipeline struct {
	resolver  Resolver
	factsRoot string
	format    facts.Format
	logger    zerolog.Logger
}

// NewPipeline creates a pipeline writing format tables under factsRoot.
func NewPipeline(resolver Resolver, factsRoot string, format facts.Format) *Pipeline {
	if format == "" {
		format = facts.FormatCSV
	}
	return &Pipeline{
		resolver:  resolver,
		factsRoot: factsRoot,
		format:    format,
		logger:    logging.NewLogger("extract"),
	}
}

// OutputPath is the table path of one company for an archive dated day.
func (p *Pipeline) OutputPath(symbol string, day time.Time) string {
	return filepath.Join(p.factsRoot,
		fmt.Sprintf("%s_facts-%s.%s", symbol, day.Format(filing.DateLayout), p.format.Ext()))
}

type memberResult int

const (
	resultWritten memberResult = iota
	resultExisting
)

// errMemberFailed marks member errors that are counted and skipped.
var errMemberFailed = errors.New("member failed")

// ExtractAll writes one table per company document in the archive at
// archivePath, using at most workers goroutines (see ClampWorkers). Tables
// that already exist are skipped. The returned summary is valid even when
// err is not nil.
func (p *Pipeline) ExtractAll(ctx context.Context, archivePath string, workers int) (Summary, error) {
	summary := Summary{
		RunID:   uuid.NewString(),
		Archive: archivePath,
		Workers: ClampWorkers(workers),
	}
	logger := p.logger.With().Str("run_id", summary.RunID).Logger()

	day, err := ArchiveDate(archivePath)
	if err != nil {
		return summary, err
	}
	summary.Date = day

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return summary, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	logger.Info().
		Str("archive", archivePath).
		Int("members", len(zr.File)).
		Int("workers", summary.Workers).
		Msg("Starting extraction")
	start := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summary.Workers)

	for i, f := range zr.File {
		if f.FileInfo().IsDir() || filepath.Ext(f.Name) != ".json" {
			continue
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			mlog := logger.With().Int("member_index", i).Str("member", f.Name).Logger()

			result, err := p.extractMember(f, day)
			mu.Lock()
			defer mu.Unlock()

			switch {
			case errors.Is(err, errMemberFailed):
				mlog.Error().Err(err).Msg("Skipping archive member")
				membersTotal.WithLabelValues("failed").Inc()
				summary.Failed++
				summary.Failures = append(summary.Failures, f.Name)
				return nil
			case err != nil:
				mlog.Error().Err(err).Msg("Aborting extraction")
				return err
			case result == resultExisting:
				membersTotal.WithLabelValues("existing").Inc()
				summary.Existing++
			default:
				membersTotal.WithLabelValues("written").Inc()
				summary.Written++
			}
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	runDuration.Observe(time.Since(start).Seconds())

	logger.Info().
		Int("written", summary.Written).
		Int("existing", summary.Existing).
		Int("failed", summary.Failed).
		Dur("duration", time.Since(start)).
		Msg("Extraction finished")

	return summary, err
}

// extractMember processes one member. Errors wrapping errMemberFailed are
// local to the member; any other error ends the run.
func (p *Pipeline) extractMember(f *zip.File, day time.Time) (memberResult, error) {
	cik := memberCIK(f.Name)

	var doc *facts.Document
	if cik == "" {
		d, err := decodeMember(f)
		if err != nil {
			return 0, err
		}
		doc, cik = d, d.PaddedCIK()
		if cik == "" {
			return 0, fmt.Errorf("%w: no CIK in member name or document", errMemberFailed)
		}
	}

	symbol, ok := p.resolver.Symbol(cik)
	if !ok {
		return 0, fmt.Errorf("%w: unknown CIK %s", errMemberFailed, cik)
	}

	dst := p.OutputPath(symbol, day)
	if fsutil.Exists(dst) {
		return resultExisting, nil
	}

	if doc == nil {
		d, err := decodeMember(f)
		if err != nil {
			return 0, err
		}
		doc = d
	}

	table, err := facts.Normalize(doc)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", f.Name, err)
	}

	err = fsutil.WriteWith(dst, func(w io.Writer) error {
		return facts.Write(w, table, p.format)
	})
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	return resultWritten, nil
}

func decodeMember(f *zip.File) (*facts.Document, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", errMemberFailed, err)
	}
	defer rc.Close()

	doc, err := facts.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMemberFailed, err)
	}
	return doc, nil
}
