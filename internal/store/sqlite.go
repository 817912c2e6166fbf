package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-anomaly/internal/anomaly"
	"github.com/i474232898/weather-anomaly/internal/dataset"
	"github.com/i474232898/weather-anomaly/internal/weather"
)

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path to the database file. ":memory:" keeps everything in memory.
	Path string

	// BusyTimeout is the timeout for acquiring locks in milliseconds.
	BusyTimeout int

	// Retention, same meaning as for MemoryStore.
	MaxHistory int
	MaxAge     time.Duration
}

// SQLiteStore is a weather.Store persisted in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	cfg SQLiteConfig
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database and its schema.
func NewSQLiteStore(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		cfg.Path = "weather-anomaly.db"
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5000
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, cfg.BusyTimeout)
	if cfg.Path == ":memory:" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" on one database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, cfg: cfg, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			loaded_at INTEGER NOT NULL,
			size INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS records (
			dataset_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			city TEXT NOT NULL,
			ts INTEGER NOT NULL,
			temperature REAL NOT NULL,
			season TEXT NOT NULL,
			PRIMARY KEY (dataset_id, seq)
		);

		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_key TEXT NOT NULL,
			ts INTEGER NOT NULL,
			payload TEXT NOT NULL  -- JSON encoded snapshot
		);

		CREATE INDEX IF NOT EXISTS idx_records_city ON records(city, seq);
		CREATE INDEX IF NOT EXISTS idx_snapshots_loc_ts ON snapshots(location_key, ts);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveSnapshot stores a snapshot and enforces retention.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, loc weather.Location, snapshot weather.WeatherSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	key := loc.Key()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (location_key, ts, payload) VALUES (?, ?, ?)`,
		key, snapshot.Timestamp.UnixNano(), string(payload),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if s.cfg.MaxHistory > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM snapshots
			WHERE location_key = ? AND id NOT IN (
				SELECT id FROM snapshots WHERE location_key = ? ORDER BY id DESC LIMIT ?
			)`, key, key, s.cfg.MaxHistory,
		); err != nil {
			return fmt.Errorf("enforce max history: %w", err)
		}
	}

	if s.cfg.MaxAge > 0 {
		cutoff := s.now().Add(-s.cfg.MaxAge).UnixNano()
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM snapshots
			WHERE location_key = ? AND ts < ?
			  AND EXISTS (SELECT 1 FROM snapshots WHERE location_key = ? AND ts >= ?)`,
			key, cutoff, key, cutoff,
		); err != nil {
			return fmt.Errorf("enforce max age: %w", err)
		}
	}

	return tx.Commit()
}

// GetLatest returns the most recently saved snapshot for a location.
func (s *SQLiteStore) GetLatest(ctx context.Context, loc weather.Location) (weather.WeatherSnapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE location_key = ? ORDER BY id DESC LIMIT 1`, loc.Key(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.WeatherSnapshot{}, ErrNotFound
	}
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}

	var snap weather.WeatherSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return weather.WeatherSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// GetRange returns the snapshots for a location between from and to (inclusive).
func (s *SQLiteStore) GetRange(ctx context.Context, loc weather.Location, from, to time.Time) ([]weather.WeatherSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM snapshots WHERE location_key = ? AND ts >= ? AND ts <= ? ORDER BY id`,
		loc.Key(), from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []weather.WeatherSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var snap weather.WeatherSnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// ReplaceHistory swaps the stored dataset for ds in one transaction.
func (s *SQLiteStore) ReplaceHistory(ctx context.Context, ds dataset.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets`); err != nil {
		return fmt.Errorf("clear datasets: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (id, loaded_at, size) VALUES (?, ?, ?)`,
		ds.ID, ds.LoadedAt.UnixNano(), len(ds.Records),
	); err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (dataset_id, seq, city, ts, temperature, season) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range ds.Records {
		if _, err := stmt.ExecContext(ctx, ds.ID, i, r.City, r.Timestamp.UnixNano(), r.Temperature, string(r.Season)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ActiveDataset returns the metadata of the stored dataset.
func (s *SQLiteStore) ActiveDataset(ctx context.Context) (dataset.Dataset, error) {
	var (
		ds       dataset.Dataset
		loadedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, loaded_at, size FROM datasets LIMIT 1`).
		Scan(&ds.ID, &loadedAt, &ds.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return dataset.Dataset{}, ErrNotFound
	}
	if err != nil {
		return dataset.Dataset{}, err
	}
	ds.LoadedAt = time.Unix(0, loadedAt).UTC()

	cities, err := s.Cities(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return dataset.Dataset{}, err
	}
	ds.Cities = cities
	return ds, nil
}

// History returns a city's records in upload order.
func (s *SQLiteStore) History(ctx context.Context, city string) ([]anomaly.TemperatureRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, temperature, season FROM records WHERE city = ? ORDER BY seq`, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []anomaly.TemperatureRecord
	for rows.Next() {
		var (
			ts     int64
			temp   float64
			season string
		)
		if err := rows.Scan(&ts, &temp, &season); err != nil {
			return nil, err
		}
		out = append(out, anomaly.TemperatureRecord{
			City:        city,
			Timestamp:   time.Unix(0, ts).UTC(),
			Temperature: temp,
			Season:      anomaly.Season(season),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Cities lists the stored cities in order of first appearance.
func (s *SQLiteStore) Cities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT city FROM records GROUP BY city ORDER BY MIN(seq)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, err
		}
		out = append(out, city)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
