package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"potato-prices/metrics"
	"potato-prices/models"
	"potato-prices/scraper"
	"potato-prices/utils"
)

// Runner executes every source pipeline (fetch, clean, resolve, aggregate)
// concurrently and reconciles the results.
type Runner struct {
	sources    []scraper.Source
	cleaner    *Cleaner
	resolver   *Resolver
	aggregator *Aggregator
	metrics    *metrics.Collector
	logger     *utils.Logger
	timeout    time.Duration
	now        func() time.Time
}

// NewRunner creates a Runner. collector may be nil. A timeout <= 0 leaves
// sources bounded only by the caller's context.
func NewRunner(sources []scraper.Source, resolver *Resolver, aggregator *Aggregator,
	collector *metrics.Collector, logger *utils.Logger, timeout time.Duration) *Runner {
	return &Runner{
		sources:    sources,
		cleaner:    NewCleaner(logger),
		resolver:   resolver,
		aggregator: aggregator,
		metrics:    collector,
		logger:     logger,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Run never fails: sources that error, panic or time out are recorded in
// the report's Failures and the combined table is built from the rest.
func (r *Runner) Run(ctx context.Context) *models.RunReport {
	start := r.now()
	r.logger.Info("[runner] Starting run with %d sources", len(r.sources))

	results := make([]models.SourceResult, len(r.sources))

	// Each goroutine writes only its own slot and always returns nil, so one
	// failing source never cancels its siblings.
	var g errgroup.Group
	for i, src := range r.sources {
		g.Go(func() error {
			results[i] = r.runSource(ctx, i, src)
			return nil
		})
	}
	_ = g.Wait()

	report := &models.RunReport{
		RunID:        uuid.NewString(),
		RunTimestamp: start.UTC().Format(time.RFC3339),
		PerSource:    make(map[string][]models.PriceSummary, len(results)),
		Results:      results,
		Failures:     make([]string, 0),
	}

	tables := make([][]models.PriceSummary, 0, len(results))
	for _, res := range results {
		report.PerSource[res.Source] = res.Summaries
		if res.Failed() {
			report.Failures = append(report.Failures, res.Source)
			continue
		}
		tables = append(tables, res.Summaries)
	}
	sort.Strings(report.Failures)
	report.Combined = Combine(tables...)

	elapsed := r.now().Sub(start)
	if r.metrics != nil {
		r.metrics.RecordRun(report, elapsed)
	}
	r.logger.Info("[runner] Run %s done in %v: %d/%d sources succeeded, %d combined states",
		report.RunID, elapsed.Round(time.Millisecond), report.Succeeded(), len(results), len(report.Combined))
	if len(report.Failures) > 0 {
		r.logger.Warn("[runner] Failed sources: %v", report.Failures)
	}
	return report
}

// runSource is the failure boundary of a pipeline: errors and panics,
// including one from Name, become a failed SourceResult.
func (r *Runner) runSource(ctx context.Context, i int, src scraper.Source) (res models.SourceResult) {
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			if res.Source == "" {
				res.Source = fmt.Sprintf("source-%d", i)
			}
			res.Status = models.StatusSourceFailed
			res.Error = fmt.Errorf("%w: panic: %v", models.ErrSourceFetch, p).Error()
			res.Summaries = nil
			r.logger.Error("[runner] Source %s panicked: %v", res.Source, p)
		}
		res.Duration = time.Since(start)
		if r.metrics != nil {
			r.metrics.RecordSource(res)
		}
	}()

	res.Source = src.Name()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.Info("[runner] Fetching %s", res.Source)
	raw, err := fetch(ctx, src)
	if err != nil {
		res.Status = models.StatusSourceFailed
		res.Error = fmt.Errorf("%w: %w", models.ErrSourceFetch, err).Error()
		r.logger.Error("[runner] Source %s failed: %v", res.Source, err)
		return res
	}

	raw = r.cleaner.Clean(res.Source, raw)
	summaries, stats := r.aggregator.Aggregate(r.resolver.ResolveAll(raw))
	res.Stats = stats
	if stats.Usable == 0 {
		res.Status = models.StatusNoData
		res.Error = models.ErrEmptyResult.Error()
		r.logger.Warn("[runner] Source %s returned %d rows, none usable", res.Source, len(raw))
		return res
	}

	res.Status = models.StatusOK
	res.Summaries = summaries
	r.logger.Info("[runner] Source %s: %d rows, %d usable, %d unresolved, %d out of catalog, %d implausible fields",
		res.Source, stats.Observations, stats.Usable, stats.Unresolved, stats.OutOfCatalog, stats.Implausible)
	return res
}

type fetchResult struct {
	rows []models.RawObservation
	err  error
}

// fetch calls src.Fetch in its own goroutine and stops waiting when ctx
// ends, so an adapter that ignores ctx cannot hold up the run. Its rows are
// then discarded. A panic in Fetch comes back as an error.
func fetch(ctx context.Context, src scraper.Source) ([]models.RawObservation, error) {
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fetchResult{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		rows, err := src.Fetch(ctx)
		done <- fetchResult{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		return res.rows, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
