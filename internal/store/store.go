// Package store caches compiled boundary fragments in SQLite, keyed by the
// hash of the configuration they were compiled from.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"qlbmcirq/internal/boundary"
	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/monitoring"
)

// ErrNotFound is returned by Get when no fragment matches.
var ErrNotFound = errors.New("fragment not found")

// Store is a fragment cache backed by a single SQLite file.
type Store struct {
	db   *sql.DB
	logf monitoring.Logf
}

// Fragment is a cached fragment circuit in QASM form.
type Fragment struct {
	ConfigHash string
	ObstacleID string
	Key        string
	Kind       string
	QASM       string
	Stats      circuit.Stats
	CreatedAt  time.Time
}

// NewFragment converts a compiled boundary fragment into its cached form.
func NewFragment(configHash string, f boundary.Fragment) Fragment {
	return FromCircuit(configHash, f.ObstacleID, f.Key, f.Kind.String(), f.Circuit)
}

// FromCircuit caches an arbitrary circuit under the given key.
func FromCircuit(configHash, obstacleID, key, kind string, c *circuit.Circuit) Fragment {
	return Fragment{
		ConfigHash: configHash,
		ObstacleID: obstacleID,
		Key:        key,
		Kind:       kind,
		QASM:       c.ToQASM(),
		Stats:      circuit.ComputeStats(c),
	}
}

// Circuit parses the cached QASM back into a circuit.
func (f Fragment) Circuit() (*circuit.Circuit, error) {
	c := circuit.New(f.Key, f.Stats.Qubits)
	if err := c.ParseQASM(f.QASM); err != nil {
		return nil, fmt.Errorf("fragment %s/%s: %w", f.ObstacleID, f.Key, err)
	}
	return c, nil
}

// Open opens (or creates) the cache at path and brings its schema up to
// date.
func Open(path string, logf monitoring.Logf) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", path, err)
	}
	s := &Store{db: db, logf: monitoring.OrDiscard(logf)}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	s.logf("Opened fragment cache %s", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const upsertFragment = `
	INSERT INTO fragments (config_hash, obstacle_id, key, kind, qasm, stats_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (config_hash, obstacle_id, key) DO UPDATE SET
		kind = excluded.kind,
		qasm = excluded.qasm,
		stats_json = excluded.stats_json,
		created_at = excluded.created_at`

type execer interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
}

func exec(ctx context.Context, stmt execer, f Fragment) error {
	stats, err := json.Marshal(f.Stats)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, f.ConfigHash, f.ObstacleID, f.Key, f.Kind, f.QASM, string(stats), f.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store fragment %s/%s: %w", f.ObstacleID, f.Key, err)
	}
	return nil
}

// Put inserts f, replacing any fragment with the same key.
func (s *Store) Put(ctx context.Context, f Fragment) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	stmt, err := s.db.PrepareContext(ctx, upsertFragment)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return exec(ctx, stmt, f)
}

// PutAll stores every fragment in one transaction.
func (s *Store) PutAll(ctx context.Context, fragments []Fragment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertFragment)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, f := range fragments {
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		if err := exec(ctx, stmt, f); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logf("Cached %d fragments", len(fragments))
	return nil
}

const selectFragment = `SELECT config_hash, obstacle_id, key, kind, qasm, stats_json, created_at FROM fragments`

type scanner interface {
	Scan(dest ...any) error
}

func scanFragment(row scanner) (Fragment, error) {
	var (
		f       Fragment
		stats   string
		created int64
	)
	if err := row.Scan(&f.ConfigHash, &f.ObstacleID, &f.Key, &f.Kind, &f.QASM, &stats, &created); err != nil {
		return Fragment{}, err
	}
	if err := json.Unmarshal([]byte(stats), &f.Stats); err != nil {
		return Fragment{}, fmt.Errorf("fragment %s/%s has corrupt stats: %w", f.ObstacleID, f.Key, err)
	}
	f.CreatedAt = time.Unix(0, created)
	return f, nil
}

// Get returns a single fragment or ErrNotFound.
func (s *Store) Get(ctx context.Context, configHash, obstacleID, key string) (*Fragment, error) {
	row := s.db.QueryRowContext(ctx, selectFragment+` WHERE config_hash = ? AND obstacle_id = ? AND key = ?`,
		configHash, obstacleID, key)
	f, err := scanFragment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns every fragment of a configuration ordered by obstacle and key.
func (s *Store) List(ctx context.Context, configHash string) ([]Fragment, error) {
	rows, err := s.db.QueryContext(ctx, selectFragment+` WHERE config_hash = ? ORDER BY obstacle_id, key`, configHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete drops every fragment of a configuration and reports how many went.
func (s *Store) Delete(ctx context.Context, configHash string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fragments WHERE config_hash = ?`, configHash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
