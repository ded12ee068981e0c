package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	ride "bikecloud/internal/ride/domain"
)

const (
	defaultStateTable   = "ride_state"
	defaultSamplesTable = "ride_samples"
)

// Store is a Postgres implementation of the ride store. Session state
// lives in a single-row table, samples in an append log; every
// multi-key mutation runs in one transaction so readers never observe
// a partial reset or an append without its trim.
type Store struct {
	db           *sql.DB
	stateTable   string
	samplesTable string
	maxLen       int
}

// NewStore constructs a store with default table names.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	store := &Store{db: db, stateTable: defaultStateTable, samplesTable: defaultSamplesTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithTables overrides the default table names.
func WithTables(stateTable, samplesTable string) StoreOption {
	return func(store *Store) {
		if stateTable != "" {
			store.stateTable = stateTable
		}
		if samplesTable != "" {
			store.samplesTable = samplesTable
		}
	}
}

// WithMaxSeriesLength caps the retained sample log. Zero keeps the
// log unbounded.
func WithMaxSeriesLength(maxLen int) StoreOption {
	return func(store *Store) {
		if maxLen > 0 {
			store.maxLen = maxLen
		}
	}
}

// EnsureSchema creates the backing tables and the singleton state row.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("ride store: nil db")
	}
	ddl := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	powered_on_at bigint,
	session_start bigint,
	session_end bigint,
	bike_ip text
)`, s.stateTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	seq bigserial PRIMARY KEY,
	ts bigint NOT NULL,
	speed_mph double precision NOT NULL,
	resistance integer,
	heart_bpm double precision NOT NULL
)`, s.samplesTable),
		fmt.Sprintf(`INSERT INTO %s (id) VALUES (1) ON CONFLICT (id) DO NOTHING`, s.stateTable),
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ride store: ensure schema: %w", err)
		}
	}
	return nil
}

// Snapshot returns a consistent view of session and series.
func (s *Store) Snapshot(ctx context.Context) (ride.Snapshot, error) {
	if s == nil || s.db == nil {
		return ride.Snapshot{}, errors.New("ride store: nil db")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return ride.Snapshot{}, err
	}
	defer tx.Rollback()

	session, err := scanSession(tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT powered_on_at, session_start, session_end, bike_ip FROM %s WHERE id = 1`, s.stateTable)))
	if err != nil {
		return ride.Snapshot{}, err
	}

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT ts, speed_mph, resistance, heart_bpm FROM %s ORDER BY seq DESC`, s.samplesTable))
	if err != nil {
		return ride.Snapshot{}, err
	}
	defer rows.Close()

	var series ride.Series
	for rows.Next() {
		var sample ride.Sample
		var resistance sql.NullInt64
		if err := rows.Scan(&sample.TS, &sample.SpeedMPH, &resistance, &sample.HeartBPM); err != nil {
			return ride.Snapshot{}, err
		}
		if resistance.Valid {
			level := int(resistance.Int64)
			sample.Resistance = &level
		}
		series = append(series, sample)
	}
	if err := rows.Err(); err != nil {
		return ride.Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return ride.Snapshot{}, err
	}
	return ride.Snapshot{Session: session, Series: series}, nil
}

// Session returns session boundaries only.
func (s *Store) Session(ctx context.Context) (ride.Session, error) {
	if s == nil || s.db == nil {
		return ride.Session{}, errors.New("ride store: nil db")
	}
	return scanSession(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT powered_on_at, session_start, session_end, bike_ip FROM %s WHERE id = 1`, s.stateTable)))
}

// Head returns the newest sample.
func (s *Store) Head(ctx context.Context) (ride.Sample, bool, error) {
	if s == nil || s.db == nil {
		return ride.Sample{}, false, errors.New("ride store: nil db")
	}
	var sample ride.Sample
	var resistance sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT ts, speed_mph, resistance, heart_bpm FROM %s ORDER BY seq DESC LIMIT 1`, s.samplesTable)).
		Scan(&sample.TS, &sample.SpeedMPH, &resistance, &sample.HeartBPM)
	if errors.Is(err, sql.ErrNoRows) {
		return ride.Sample{}, false, nil
	}
	if err != nil {
		return ride.Sample{}, false, err
	}
	if resistance.Valid {
		level := int(resistance.Int64)
		sample.Resistance = &level
	}
	return sample, true, nil
}

// SetPoweredOn records the power-on marker.
func (s *Store) SetPoweredOn(ctx context.Context, t int64) error {
	if s == nil || s.db == nil {
		return errors.New("ride store: nil db")
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET powered_on_at = $1 WHERE id = 1`, s.stateTable), t)
	return err
}

// StartSession discards all prior state and records the new start.
func (s *Store) StartSession(ctx context.Context, t int64, bikeIP string) error {
	if s == nil || s.db == nil {
		return errors.New("ride store: nil db")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.samplesTable)); err != nil {
		_ = tx.Rollback()
		return err
	}
	ip := sql.NullString{}
	if bikeIP != "" {
		ip = sql.NullString{String: bikeIP, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET powered_on_at = NULL, session_start = $1, session_end = NULL, bike_ip = $2 WHERE id = 1`, s.stateTable),
		t, ip); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// EndSession records the end and clears the bike address.
func (s *Store) EndSession(ctx context.Context, t int64) error {
	if s == nil || s.db == nil {
		return errors.New("ride store: nil db")
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET session_end = $1, bike_ip = NULL WHERE id = 1`, s.stateTable), t)
	return err
}

// Append writes a sample and trims the log to the configured cap in
// the same transaction.
func (s *Store) Append(ctx context.Context, sample ride.Sample) error {
	if s == nil || s.db == nil {
		return errors.New("ride store: nil db")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	resistance := sql.NullInt64{}
	if sample.Resistance != nil {
		resistance = sql.NullInt64{Int64: int64(*sample.Resistance), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (ts, speed_mph, resistance, heart_bpm) VALUES ($1, $2, $3, $4)`, s.samplesTable),
		sample.TS, sample.SpeedMPH, resistance, sample.HeartBPM); err != nil {
		_ = tx.Rollback()
		return err
	}
	if s.maxLen > 0 {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE seq NOT IN (SELECT seq FROM %s ORDER BY seq DESC LIMIT $1)`, s.samplesTable, s.samplesTable),
			s.maxLen); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func scanSession(row *sql.Row) (ride.Session, error) {
	var session ride.Session
	var poweredOn, start, end sql.NullInt64
	var bikeIP sql.NullString
	err := row.Scan(&poweredOn, &start, &end, &bikeIP)
	if errors.Is(err, sql.ErrNoRows) {
		return ride.Session{}, nil
	}
	if err != nil {
		return ride.Session{}, err
	}
	if poweredOn.Valid {
		session.PoweredOnAt = poweredOn.Int64
	}
	if start.Valid {
		session.StartedAt = start.Int64
	}
	if end.Valid {
		session.EndedAt = end.Int64
	}
	if bikeIP.Valid {
		session.BikeIP = bikeIP.String
	}
	return session, nil
}
