package storage

import (
	"context"

	"potato-prices/models"
)

// ReportWriter is the interface any storage backend must satisfy.
type ReportWriter interface {
	Write(ctx context.Context, report *models.RunReport) error
	Close() error
}

// CombinedSource labels the reconciled rows wherever rows of several
// sources share a table.
const CombinedSource = "combined"
