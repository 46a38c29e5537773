package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"potato-prices/metrics"
	"potato-prices/models"
	"potato-prices/scraper"
)

func staticSource(name string, rows ...models.RawObservation) scraper.Source {
	return scraper.NewFuncSource(name, func(ctx context.Context) ([]models.RawObservation, error) {
		return rows, nil
	})
}

// panickyName is a Source whose Name panics.
type panickyName struct{}

func (panickyName) Name() string { panic("name lookup failed") }

func (panickyName) Fetch(context.Context) ([]models.RawObservation, error) { return nil, nil }

func newTestRunner(t *testing.T, collector *metrics.Collector, timeout time.Duration, sources ...scraper.Source) *Runner {
	t.Helper()
	r := newDefaultResolver(t)
	a := NewAggregator(r.Catalog(), DefaultPriceCeiling, newTestLogger())
	return NewRunner(sources, r, a, collector, newTestLogger(), timeout)
}

func findRow(rows []models.PriceSummary, state models.CanonicalState) (models.PriceSummary, bool) {
	for _, row := range rows {
		if row.State == state {
			return row, true
		}
	}
	return models.PriceSummary{}, false
}

func TestRunIsolatesFailingSources(t *testing.T) {
	collector := metrics.NewCollector("test")
	runner := newTestRunner(t, collector, time.Minute,
		staticSource("alpha",
			models.RawObservation{Location: "Patna", MinPrice: 1000, MaxPrice: 1500, ModalPrice: 1200},
			models.RawObservation{Location: "Kolkata", MinPrice: 800, MaxPrice: 900, ModalPrice: 850},
		),
		scraper.NewFuncSource("gamma", func(ctx context.Context) ([]models.RawObservation, error) {
			return nil, errors.New("connection refused")
		}),
		staticSource("beta",
			models.RawObservation{Location: "Muzaffarpur", MinPrice: 1100, MaxPrice: 1600, ModalPrice: 1300},
		),
		scraper.NewFuncSource("delta", func(ctx context.Context) ([]models.RawObservation, error) {
			panic("selector not found")
		}),
		staticSource("empty",
			models.RawObservation{Location: "Xyzzy Qwerty", MinPrice: 1000, MaxPrice: 1000, ModalPrice: 1000},
		),
		panickyName{},
		nil,
	)

	report := runner.Run(context.Background())

	if got, want := strings.Join(report.Failures, ","), "delta,empty,gamma,source-5,source-6"; got != want {
		t.Errorf("Failures: got %q, want %q", got, want)
	}
	if report.Succeeded() != 2 {
		t.Errorf("Succeeded: got %d, want 2", report.Succeeded())
	}

	wantStatus := map[string]models.SourceStatus{
		"alpha": models.StatusOK,
		"gamma": models.StatusSourceFailed,
		"beta":  models.StatusOK,
		"delta": models.StatusSourceFailed,
		"empty": models.StatusNoData,
	}
	for i, name := range []string{"alpha", "gamma", "beta", "delta", "empty"} {
		res := report.Results[i]
		if res.Source != name {
			t.Errorf("Results[%d]: got %q, want %q", i, res.Source, name)
			continue
		}
		if res.Status != wantStatus[name] {
			t.Errorf("%s status: got %q, want %q", name, res.Status, wantStatus[name])
		}
	}
	if !strings.Contains(report.Results[1].Error, models.ErrSourceFetch.Error()) {
		t.Errorf("gamma error: got %q", report.Results[1].Error)
	}
	if !strings.Contains(report.Results[3].Error, "selector not found") {
		t.Errorf("delta error: got %q", report.Results[3].Error)
	}
	if report.Results[4].Error != models.ErrEmptyResult.Error() {
		t.Errorf("empty error: got %q", report.Results[4].Error)
	}
	for _, i := range []int{5, 6} {
		res := report.Results[i]
		if res.Status != models.StatusSourceFailed || !strings.Contains(res.Error, "panic") {
			t.Errorf("Results[%d]: got %+v, want a recovered source_failed", i, res)
		}
	}

	if len(report.PerSource["alpha"]) != len(models.DefaultCatalog) {
		t.Errorf("alpha table: got %d rows, want %d", len(report.PerSource["alpha"]), len(models.DefaultCatalog))
	}
	if report.PerSource["gamma"] != nil {
		t.Errorf("gamma table: got %v, want nil", report.PerSource["gamma"])
	}

	bihar, ok := findRow(report.Combined, "bihar")
	if !ok {
		t.Fatal("bihar missing from combined")
	}
	if want := (models.PriceSummary{State: "bihar", MinPrice: 1050, MaxPrice: 1550, CurrentPrice: 1250}); bihar != want {
		t.Errorf("bihar: got %+v, want %+v", bihar, want)
	}
	if wb, _ := findRow(report.Combined, "west-bengal"); wb.CurrentPrice != 850 {
		t.Errorf("west-bengal current: got %d, want 850", wb.CurrentPrice)
	}
	if len(report.Combined) != len(models.DefaultCatalog) {
		t.Errorf("combined: got %d rows, want %d", len(report.Combined), len(models.DefaultCatalog))
	}

	if got := testutil.ToFloat64(collector.SourceStatus.WithLabelValues("delta", "source_failed")); got != 1 {
		t.Errorf("delta source_failed gauge: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.SourcesFailedTotal); got != 5 {
		t.Errorf("sources_failed gauge: got %v, want 5", got)
	}
}

func TestRunReportIdentity(t *testing.T) {
	runner := newTestRunner(t, nil, 0, staticSource("alpha",
		models.RawObservation{Location: "Patna", ModalPrice: 1200},
	))
	report := runner.Run(context.Background())

	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("RunID %q: %v", report.RunID, err)
	}
	ts, err := time.Parse(time.RFC3339, report.RunTimestamp)
	if err != nil {
		t.Fatalf("RunTimestamp %q: %v", report.RunTimestamp, err)
	}
	if !strings.HasSuffix(report.RunTimestamp, "Z") {
		t.Errorf("RunTimestamp not UTC: %q", report.RunTimestamp)
	}
	if time.Since(ts) > time.Minute {
		t.Errorf("RunTimestamp too old: %v", ts)
	}
	if report.Failures == nil {
		t.Error("Failures should be an empty slice, not nil")
	}
}

func TestRunSourceTimeout(t *testing.T) {
	slow := scraper.NewFuncSource("slow", func(ctx context.Context) ([]models.RawObservation, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	runner := newTestRunner(t, nil, 50*time.Millisecond, slow, staticSource("fast",
		models.RawObservation{Location: "Agra", ModalPrice: 900},
	))

	done := make(chan *models.RunReport, 1)
	go func() { done <- runner.Run(context.Background()) }()

	select {
	case report := <-done:
		if report.Results[0].Status != models.StatusSourceFailed {
			t.Errorf("slow status: got %q, want source_failed", report.Results[0].Status)
		}
		if !strings.Contains(report.Results[0].Error, context.DeadlineExceeded.Error()) {
			t.Errorf("slow error: got %q", report.Results[0].Error)
		}
		if up, _ := findRow(report.Combined, "uttar-pradesh"); up.CurrentPrice != 900 {
			t.Errorf("uttar-pradesh current: got %d, want 900", up.CurrentPrice)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not honour the source timeout")
	}
}

func TestRunSourceIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := scraper.NewFuncSource("stuck", func(context.Context) ([]models.RawObservation, error) {
		<-release
		return []models.RawObservation{{Location: "Patna", ModalPrice: 1200}}, nil
	})
	runner := newTestRunner(t, nil, 50*time.Millisecond, stuck, staticSource("fast",
		models.RawObservation{Location: "Agra", ModalPrice: 900},
	))

	done := make(chan *models.RunReport, 1)
	go func() { done <- runner.Run(context.Background()) }()

	select {
	case report := <-done:
		if report.Results[0].Status != models.StatusSourceFailed {
			t.Errorf("stuck status: got %q, want source_failed", report.Results[0].Status)
		}
		if report.Results[1].Status != models.StatusOK {
			t.Errorf("fast status: got %q, want ok", report.Results[1].Status)
		}
		if bihar, _ := findRow(report.Combined, "bihar"); bihar.CurrentPrice != 0 {
			t.Errorf("bihar current: got %d, want 0", bihar.CurrentPrice)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run waited for a source that ignores its context")
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	fail := func(ctx context.Context) ([]models.RawObservation, error) { return nil, errors.New("down") }
	runner := newTestRunner(t, nil, 0,
		scraper.NewFuncSource("a", fail),
		scraper.NewFuncSource("b", fail),
	)
	report := runner.Run(context.Background())

	if report.Succeeded() != 0 {
		t.Errorf("Succeeded: got %d, want 0", report.Succeeded())
	}
	if len(report.Combined) != 0 {
		t.Errorf("Combined: got %d rows, want 0", len(report.Combined))
	}
	if len(report.Failures) != 2 {
		t.Errorf("Failures: got %v", report.Failures)
	}
}
