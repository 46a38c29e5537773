// Package scraper defines the source adapter contract and the helpers the
// site-specific adapters share.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"potato-prices/models"
)

// Source fetches raw price rows from one external provider. An error means
// the source produced nothing usable for this run. Fetch should return
// promptly once ctx is done; the runner stops waiting for it at that point
// and drops whatever it returns later.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.RawObservation, error)
}

// ProgressFunc is called before each unit of work (a state page, a table).
type ProgressFunc func(source, step string)

type funcSource struct {
	name  string
	fetch func(ctx context.Context) ([]models.RawObservation, error)
}

// NewFuncSource wraps a function as a Source.
func NewFuncSource(name string, fetch func(ctx context.Context) ([]models.RawObservation, error)) Source {
	return &funcSource{name: name, fetch: fetch}
}

func (f *funcSource) Name() string { return f.name }

func (f *funcSource) Fetch(ctx context.Context) ([]models.RawObservation, error) {
	return f.fetch(ctx)
}

// FileSource replays observations saved as JSON, for offline runs.
type FileSource struct {
	name string
	path string
}

// NewFileSource reads <dir>/<name>.json on every Fetch.
func NewFileSource(name, dir string) *FileSource {
	return &FileSource{name: name, path: filepath.Join(dir, name+".json")}
}

func (f *FileSource) Name() string { return f.name }

type fileRow struct {
	Location   string  `json:"location"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	ModalPrice float64 `json:"modal_price"`
}

func (f *FileSource) Fetch(ctx context.Context) ([]models.RawObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %q: %w", f.path, err)
	}
	var rows []fileRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("fixture: decode %q: %w", f.path, err)
	}
	out := make([]models.RawObservation, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.RawObservation{
			Location:   r.Location,
			MinPrice:   r.MinPrice,
			MaxPrice:   r.MaxPrice,
			ModalPrice: r.ModalPrice,
		})
	}
	return out, nil
}

// priceRegexp captures the first number in a price cell.
var priceRegexp = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParsePrice extracts a ₹/quintal value from cell text such as
// "₹ 1,250 /Quintal" or "Rs 980". It returns 0 when no number is present.
func ParsePrice(raw string) float64 {
	cleaned := strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", "/Quintal", "").Replace(raw)
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// NormaliseText collapses internal whitespace and trims s.
func NormaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
