package storage

import (
	"context"
	"errors"
	"fmt"

	"potato-prices/models"
)

// MultiWriter hands a report to every writer. A failing writer does not
// stop the others; all errors are joined.
type MultiWriter struct {
	writers []namedWriter
}

type namedWriter struct {
	name string
	w    ReportWriter
}

// NewMultiWriter creates an empty MultiWriter.
func NewMultiWriter() *MultiWriter {
	return &MultiWriter{}
}

// Add registers w under name, used in error messages.
func (m *MultiWriter) Add(name string, w ReportWriter) {
	m.writers = append(m.writers, namedWriter{name: name, w: w})
}

// Len returns the number of registered writers.
func (m *MultiWriter) Len() int {
	return len(m.writers)
}

func (m *MultiWriter) Write(ctx context.Context, report *models.RunReport) error {
	var errs []error
	for _, nw := range m.writers {
		if err := nw.w.Write(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nw.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer in reverse registration order.
func (m *MultiWriter) Close() error {
	var errs []error
	for i := len(m.writers) - 1; i >= 0; i-- {
		if err := m.writers[i].w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: close: %w", m.writers[i].name, err))
		}
	}
	return errors.Join(errs...)
}
