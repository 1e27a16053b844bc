// Package sqlitestore archives cleaned observations into a SQLite database.
// The archive is an optional sink, enabled by setting ARCHIVE_DB_PATH.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/water-data-pipeline/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	site_id               TEXT NOT NULL,
	parameter_code        TEXT NOT NULL,
	date                  TEXT NOT NULL,
	statistic_code        TEXT NOT NULL,
	value                 REAL NOT NULL,
	unit                  TEXT,
	site_name             TEXT,
	site_type             TEXT,
	parameter_name        TEXT,
	statistic_description TEXT,
	approval_status       TEXT,
	state_name            TEXT,
	county_name           TEXT,
	last_modified         TEXT,
	PRIMARY KEY (site_id, parameter_code, date)
);`

// Store persists observations via database/sql and the modernc SQLite driver.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// ArchiveObservations inserts all rows in one transaction. Rows sharing a
// (site, parameter, date) key with an archived row replace it, so re-running
// the pipeline over an overlapping window supersedes rather than duplicates.
func (s *Store) ArchiveObservations(ctx context.Context, rows []domain.Observation) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive observations: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO observations (
			site_id, parameter_code, date, statistic_code, value, unit,
			site_name, site_type, parameter_name, statistic_description,
			approval_status, state_name, county_name, last_modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("archive observations: %w", err)
	}
	defer stmt.Close()

	for _, obs := range rows {
		_, err := stmt.ExecContext(ctx,
			obs.SiteID, obs.ParameterCode, obs.Date.Format("2006-01-02"),
			obs.StatisticCode, obs.Value, obs.Unit,
			obs.SiteName, obs.SiteType, obs.ParameterName, obs.StatisticDescription,
			obs.ApprovalStatus, obs.State, obs.County,
			obs.LastModified.UTC().Format("2006-01-02T15:04:05Z"),
		)
		if err != nil {
			return fmt.Errorf("archive observation %s/%s: %w", obs.SiteID, obs.ParameterCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive observations: %w", err)
	}

	s.logger.Info("observations archived", "rows", len(rows))
	return nil
}

// CountObservations returns the number of archived rows.
func (s *Store) CountObservations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
