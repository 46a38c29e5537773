package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"potato-prices/models"
)

const (
	CombinedFile = "combined_prices.json"
	StatusFile   = "status.json"
	LatestFile   = "latest.json"
)

// ErrNoReport is returned by the readers before any run has been written.
var ErrNoReport = errors.New("no report has been written yet")

// SourceFile returns the per-source table file name.
func SourceFile(source string) string {
	return source + "_prices.json"
}

// JSONWriter publishes each run as JSON files in one directory: a table per
// source (null when the source failed), the combined table, the run status
// and the full report.
type JSONWriter struct {
	dir string
}

// NewJSONWriter creates dir if needed.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("json: create output dir: %w", err)
	}
	return &JSONWriter{dir: dir}, nil
}

func (j *JSONWriter) Write(ctx context.Context, report *models.RunReport) error {
	for _, res := range report.Results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.writeFile(SourceFile(res.Source), report.PerSource[res.Source]); err != nil {
			return err
		}
	}
	if err := j.writeFile(CombinedFile, report.Combined); err != nil {
		return err
	}
	if err := j.writeFile(StatusFile, report.Status()); err != nil {
		return err
	}
	// latest.json goes last so readers never see a report newer than its tables.
	return j.writeFile(LatestFile, report)
}

func (j *JSONWriter) Close() error { return nil }

// writeFile replaces name atomically.
func (j *JSONWriter) writeFile(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(j.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("json: create temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("json: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("json: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(j.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("json: replace %s: %w", name, err)
	}
	return nil
}

// ReadLatest loads the last full report written to dir.
func ReadLatest(dir string) (*models.RunReport, error) {
	var r models.RunReport
	if err := readFile(filepath.Join(dir, LatestFile), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ReadStatus loads the last run status written to dir.
func ReadStatus(dir string) (*models.RunStatus, error) {
	var s models.RunStatus
	if err := readFile(filepath.Join(dir, StatusFile), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReadSource loads one source's table. A nil slice with no error means the
// source failed in the last run.
func ReadSource(dir, source string) ([]models.PriceSummary, error) {
	var rows []models.PriceSummary
	if err := readFile(filepath.Join(dir, SourceFile(source)), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func readFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoReport
	}
	if err != nil {
		return fmt.Errorf("json: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("json: decode %s: %w", path, err)
	}
	return nil
}
