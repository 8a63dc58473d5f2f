// Package store persists collapse runs and their results to a libsql
// database. The collapse core never imports this package; callers hand it
// finished results.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	internal "github.com/bcdtools/barcode-collapse/bcc"
	"github.com/bcdtools/barcode-collapse/bcc/collapse"
)

// RunParams describes the parameters a result was produced with; stored
// alongside the run row.
type RunParams struct {
	Mode            string // greedy | adaptive | bottomup
	FindIndels      bool
	EditDistance    int
	MinEditDistance int
	MaxEditDistance int
}

// ResultStore writes and reads collapse results.
type ResultStore struct {
	db *sql.DB
}

// Open connects to the database at dsn (e.g. "file:results.db") and creates
// the schema if needed. An empty dsn falls back to the shared in-memory
// default.
func Open(dsn string) (*ResultStore, error) {
	if dsn == "" {
		dsn = internal.DefaultDatabaseDSN
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", dsn, err)
	}
	s := &ResultStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// init sets up the result tables.
func (s *ResultStore) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY UNIQUE,
			mode TEXT NOT NULL,
			find_indels INTEGER NOT NULL,
			edit_distance INTEGER NOT NULL,
			min_edit_distance INTEGER NOT NULL,
			max_edit_distance INTEGER NOT NULL,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cluster_cores (
			run_id TEXT NOT NULL,
			core TEXT NOT NULL,
			num_members INTEGER NOT NULL,
			PRIMARY KEY (run_id, core)
		)`,
		`CREATE TABLE IF NOT EXISTS cluster_members (
			run_id TEXT NOT NULL,
			core TEXT NOT NULL,
			member TEXT NOT NULL,
			PRIMARY KEY (run_id, member)
		)`,
		`CREATE TABLE IF NOT EXISTS mapping_metrics (
			run_id TEXT NOT NULL,
			barcode TEXT NOT NULL,
			num_merged INTEGER NOT NULL,
			edit_distance_used INTEGER NOT NULL,
			edit_distance_discovered INTEGER NOT NULL,
			original_observations INTEGER NOT NULL,
			total_observations INTEGER NOT NULL,
			PRIMARY KEY (run_id, barcode)
		)`,
		`CREATE TABLE IF NOT EXISTS bottom_up_pairs (
			run_id TEXT NOT NULL,
			small TEXT NOT NULL,
			large TEXT NOT NULL,
			PRIMARY KEY (run_id, small)
		)`,
		`CREATE TABLE IF NOT EXISTS bottom_up_ambiguous (
			run_id TEXT NOT NULL,
			barcode TEXT NOT NULL,
			PRIMARY KEY (run_id, barcode)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

func (s *ResultStore) insertRun(tx *sql.Tx, params RunParams) (uuid.UUID, error) {
	id := uuid.New()
	_, err := tx.Exec(
		`INSERT INTO runs (id, mode, find_indels, edit_distance, min_edit_distance, max_edit_distance, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), params.Mode, params.FindIndels, params.EditDistance,
		params.MinEditDistance, params.MaxEditDistance, time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

func (s *ResultStore) insertClusters(tx *sql.Tx, runID uuid.UUID, res collapse.Result) error {
	cores := make([]string, 0, len(res))
	for core := range res {
		cores = append(cores, core)
	}
	sort.Strings(cores)
	for _, core := range cores {
		members := res[core]
		if _, err := tx.Exec(
			"INSERT INTO cluster_cores (run_id, core, num_members) VALUES (?, ?, ?)",
			runID.String(), core, len(members),
		); err != nil {
			return fmt.Errorf("failed to insert core %q: %w", core, err)
		}
		for _, member := range members {
			if _, err := tx.Exec(
				"INSERT INTO cluster_members (run_id, core, member) VALUES (?, ?, ?)",
				runID.String(), core, member,
			); err != nil {
				return fmt.Errorf("failed to insert member %q: %w", member, err)
			}
		}
	}
	return nil
}

// SaveCollapse stores a greedy collapse result and returns the run ID.
func (s *ResultStore) SaveCollapse(params RunParams, res collapse.Result) (uuid.UUID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be a no-op if transaction is committed

	runID, err := s.insertRun(tx, params)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.insertClusters(tx, runID, res); err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("saved collapse run", "id", runID, "cores", len(res))
	return runID, nil
}

// SaveAdaptive stores an adaptive collapse result, clusters and metrics both.
func (s *ResultStore) SaveAdaptive(params RunParams, res *collapse.AdaptiveResult) (uuid.UUID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runID, err := s.insertRun(tx, params)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.insertClusters(tx, runID, res.Clusters); err != nil {
		return uuid.Nil, err
	}
	for _, m := range res.Metrics {
		if _, err := tx.Exec(
			`INSERT INTO mapping_metrics
			 (run_id, barcode, num_merged, edit_distance_used, edit_distance_discovered, original_observations, total_observations)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID.String(), m.Barcode, m.NumMerged, m.EditDistanceUsed,
			m.EditDistanceDiscovered, m.OriginalObservations, m.TotalObservations,
		); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert metric for %q: %w", m.Barcode, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("saved adaptive run", "id", runID, "cores", len(res.Clusters), "metrics", len(res.Metrics))
	return runID, nil
}

// SaveBottomUp stores a bottom-up pairing result.
func (s *ResultStore) SaveBottomUp(params RunParams, res *collapse.BottomUpResult) (uuid.UUID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runID, err := s.insertRun(tx, params)
	if err != nil {
		return uuid.Nil, err
	}
	for small, large := range res.Pairs {
		if _, err := tx.Exec(
			"INSERT INTO bottom_up_pairs (run_id, small, large) VALUES (?, ?, ?)",
			runID.String(), small, large,
		); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert pair %q -> %q: %w", small, large, err)
		}
	}
	for bc := range res.Ambiguous {
		if _, err := tx.Exec(
			"INSERT INTO bottom_up_ambiguous (run_id, barcode) VALUES (?, ?)",
			runID.String(), bc,
		); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert ambiguous %q: %w", bc, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return runID, nil
}

// Clusters reads back the cluster mapping of a stored run.
func (s *ResultStore) Clusters(runID uuid.UUID) (collapse.Result, error) {
	res := make(collapse.Result)

	rows, err := s.db.Query("SELECT core, num_members FROM cluster_cores WHERE run_id = ?", runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query cores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var core string
		var n int
		if err := rows.Scan(&core, &n); err != nil {
			return nil, err
		}
		res[core] = []string{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	memberRows, err := s.db.Query("SELECT core, member FROM cluster_members WHERE run_id = ? ORDER BY core, member", runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer memberRows.Close()
	for memberRows.Next() {
		var core, member string
		if err := memberRows.Scan(&core, &member); err != nil {
			return nil, err
		}
		res[core] = append(res[core], member)
	}
	if err := memberRows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
