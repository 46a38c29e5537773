package models

import (
	"errors"
	"time"
)

var (
	// ErrSourceFetch marks a source that could not produce any data.
	ErrSourceFetch = errors.New("source fetch failed")
	// ErrEmptyResult marks a source whose rows were all unusable.
	ErrEmptyResult = errors.New("source returned no usable observations")
)

// SourceStatus distinguishes why a source did or did not contribute.
type SourceStatus string

const (
	StatusOK           SourceStatus = "ok"
	StatusNoData       SourceStatus = "no_data"
	StatusSourceFailed SourceStatus = "source_failed"
)

// SourceResult is one source pipeline's outcome. Summaries is nil unless
// Status is StatusOK.
type SourceResult struct {
	Source    string         `json:"source"`
	Status    SourceStatus   `json:"status"`
	Error     string         `json:"error,omitempty"`
	Summaries []PriceSummary `json:"-"`
	Stats     AggregateStats `json:"stats"`
	Duration  time.Duration  `json:"duration_ns"`
}

// Failed reports whether the source is listed in the run's failures.
func (r SourceResult) Failed() bool {
	return r.Status != StatusOK
}

// RunReport is produced once per run and handed to the persistence sinks.
type RunReport struct {
	RunID        string                    `json:"run_id"`
	RunTimestamp string                    `json:"run_timestamp"`
	PerSource    map[string][]PriceSummary `json:"per_source"`
	Results      []SourceResult            `json:"results"`
	Combined     []PriceSummary            `json:"combined"`
	Failures     []string                  `json:"failures"`
}

// Succeeded returns the number of sources that contributed.
func (r *RunReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if !res.Failed() {
			n++
		}
	}
	return n
}

// RunStatus is the machine-readable run summary, without price tables.
type RunStatus struct {
	RunID        string         `json:"run_id"`
	RunTimestamp string         `json:"run_timestamp"`
	Failures     []string       `json:"failures"`
	Sources      []SourceResult `json:"sources"`
}

// Status extracts the run summary.
func (r *RunReport) Status() RunStatus {
	return RunStatus{
		RunID:        r.RunID,
		RunTimestamp: r.RunTimestamp,
		Failures:     r.Failures,
		Sources:      r.Results,
	}
}
