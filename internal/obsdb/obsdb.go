// Package obsdb writes simulated observations, run metadata and the ToO event
// table to a SQLite file.
package obsdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/star/surveyruns/internal/observatory"
	"github.com/star/surveyruns/internal/too"
)

//go:embed schema.sql
var schema string

// ErrExists is returned by Create when the output file is already present and
// deletePast is false.
var ErrExists = errors.New("output database already exists")

// DB is an open output database.
type DB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Create opens a fresh database at path. An existing file is removed when
// deletePast is set; otherwise Create fails with ErrExists.
func Create(ctx context.Context, path string, deletePast bool, logger *slog.Logger) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if _, err := os.Stat(path); err == nil {
		if !deletePast {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing previous database: %w", err)
		}
		logger.Info("removed previous database", "path", path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One writer; the simulation loop is the only client.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db, path: path, logger: logger}, nil
}

// Open opens an existing database for reading.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &DB{db: db, path: path, logger: logger}, nil
}

// Path returns the file the database was created at.
func (d *DB) Path() string { return d.path }

// Close releases the database.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// InsertObservations appends completed visits in one transaction.
func (d *DB) InsertObservations(ctx context.Context, obs []observatory.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO observations(observationId, fieldRA, fieldDec, band, visitExposureTime, numExposures,
		   note, target_id, healpix_id, observationStartMJD, altitude, azimuth, airmass,
		   slewTime, visitTime, sunAlt, moonPhase, night)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx,
			o.ID, o.RA, o.Dec, o.Band, o.ExpTime, o.NExp,
			o.Note, o.TargetID, o.HPID, o.MJD, o.Alt, o.Az, o.Airmass,
			o.SlewTime, o.VisitTime, o.SunAlt, o.MoonIllum, o.Night,
		); err != nil {
			return fmt.Errorf("inserting observation %d: %w", o.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	d.logger.Debug("observations written", "count", len(obs))
	return nil
}

// WriteInfo stores run metadata as Parameter/Value rows. Existing keys are
// overwritten.
func (d *DB) WriteInfo(ctx context.Context, info map[string]string) error {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO info(Parameter, Value) VALUES(?,?)
			 ON CONFLICT(Parameter) DO UPDATE SET Value=excluded.Value`,
			k, info[k],
		); err != nil {
			return fmt.Errorf("writing info %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// WriteEvents stores the ToO event table.
func (d *DB) WriteEvents(ctx context.Context, events too.EventTable) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events(id, type, mjd_start, duration, ra, dec, healpix_id, bands, exptime)
			 VALUES(?,?,?,?,?,?,?,?,?)`,
			e.ID, string(e.Type), e.MJDStart, e.Duration, e.RA, e.Dec, e.HPID,
			strings.Join(e.Bands, ""), e.ExpTime,
		); err != nil {
			return fmt.Errorf("writing event %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Info reads back the metadata rows.
func (d *DB) Info(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT Parameter, Value FROM info`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v.String
	}
	return out, rows.Err()
}

// CountObservations returns the number of stored visits.
func (d *DB) CountObservations(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n)
	return n, err
}

// CountEvents returns the number of stored ToO events.
func (d *DB) CountEvents(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// BandCounts returns the number of stored visits per band.
func (d *DB) BandCounts(ctx context.Context) (map[string]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT band, COUNT(*) FROM observations GROUP BY band`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var band string
		var n int
		if err := rows.Scan(&band, &n); err != nil {
			return nil, err
		}
		out[band] = n
	}
	return out, rows.Err()
}
