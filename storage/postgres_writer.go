package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"potato-prices/models"
)

// PostgresWriter keeps a bounded history of runs in PostgreSQL.
type PostgresWriter struct {
	db            *sqlx.DB
	retentionDays int
}

// summaryRow is one stored table row; source is CombinedSource for the
// reconciled table.
type summaryRow struct {
	RunID  string `db:"run_id"`
	Source string `db:"source"`
	models.PriceSummary
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter. Runs older than retentionDays
// are pruned on every write; 0 keeps everything.
func NewPostgresWriter(ctx context.Context, dsn string, retentionDays int) (*PostgresWriter, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db, retentionDays: retentionDays}
	if err := pw.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS price_runs (
			run_id     TEXT        PRIMARY KEY,
			run_at     TIMESTAMPTZ NOT NULL,
			failures   TEXT        NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS price_summaries (
			id            SERIAL      PRIMARY KEY,
			run_id        TEXT        NOT NULL REFERENCES price_runs(run_id) ON DELETE CASCADE,
			source        VARCHAR(50) NOT NULL,
			state         VARCHAR(64) NOT NULL,
			min_price     INTEGER     NOT NULL DEFAULT 0,
			max_price     INTEGER     NOT NULL DEFAULT 0,
			current_price INTEGER     NOT NULL DEFAULT 0,
			UNIQUE (run_id, source, state)
		);

		CREATE INDEX IF NOT EXISTS idx_price_runs_run_at        ON price_runs(run_at);
		CREATE INDEX IF NOT EXISTS idx_price_summaries_state    ON price_summaries(state);
		CREATE INDEX IF NOT EXISTS idx_price_summaries_run_src  ON price_summaries(run_id, source);
	`)
	return err
}

// Write stores the run, every successful source table and the combined
// table in one transaction, then prunes expired runs.
func (pw *PostgresWriter) Write(ctx context.Context, report *models.RunReport) error {
	runAt, err := time.Parse(time.RFC3339, report.RunTimestamp)
	if err != nil {
		return fmt.Errorf("postgres: run timestamp %q: %w", report.RunTimestamp, err)
	}

	tx, err := pw.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO price_runs (run_id, run_at, failures) VALUES ($1, $2, $3)`,
		report.RunID, runAt, strings.Join(report.Failures, ","),
	); err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	rows := summaryRows(report)
	const batchSize = 100
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO price_summaries (run_id, source, state, min_price, max_price, current_price)
			VALUES (:run_id, :source, :state, :min_price, :max_price, :current_price)
		`, rows[i:end]); err != nil {
			return fmt.Errorf("postgres: insert summaries: %w", err)
		}
	}

	if pw.retentionDays > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM price_runs WHERE run_at < NOW() - ($1 * INTERVAL '1 day')`,
			pw.retentionDays,
		); err != nil {
			return fmt.Errorf("postgres: prune: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// summaryRows flattens the report into rows, successful sources first in
// result order, then the combined table.
func summaryRows(report *models.RunReport) []summaryRow {
	var rows []summaryRow
	for _, res := range report.Results {
		if res.Failed() {
			continue
		}
		for _, s := range report.PerSource[res.Source] {
			rows = append(rows, summaryRow{RunID: report.RunID, Source: res.Source, PriceSummary: s})
		}
	}
	for _, s := range report.Combined {
		rows = append(rows, summaryRow{RunID: report.RunID, Source: CombinedSource, PriceSummary: s})
	}
	return rows
}

// LatestCombined returns the combined table of the most recent run and its
// run id. ErrNoReport is returned when no run is stored.
func (pw *PostgresWriter) LatestCombined(ctx context.Context) ([]models.PriceSummary, string, error) {
	var runID string
	err := pw.db.GetContext(ctx, &runID,
		`SELECT run_id FROM price_runs ORDER BY run_at DESC, created_at DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNoReport
		}
		return nil, "", fmt.Errorf("postgres: latest run: %w", err)
	}

	var rows []models.PriceSummary
	if err := pw.db.SelectContext(ctx, &rows, `
		SELECT state, min_price, max_price, current_price
		FROM price_summaries
		WHERE run_id = $1 AND source = $2
		ORDER BY state
	`, runID, CombinedSource); err != nil {
		return nil, "", fmt.Errorf("postgres: latest combined: %w", err)
	}
	return rows, runID, nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
