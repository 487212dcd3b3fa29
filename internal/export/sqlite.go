package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/trustprop/internal/trust"
)

// ErrRunNotFound is returned when a run ID has no stored matrix.
var ErrRunNotFound = errors.New("run not found")

// schema is executed on every open; IF NOT EXISTS keeps it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT PRIMARY KEY,
    generation INTEGER NOT NULL,
    records    INTEGER NOT NULL,
    first_time INTEGER NOT NULL,
    last_time  INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS actors (
    run_id   TEXT    NOT NULL,
    position INTEGER NOT NULL,
    actor    INTEGER NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS scores (
    run_id TEXT    NOT NULL,
    start  INTEGER NOT NULL,
    target INTEGER NOT NULL,
    score  REAL,
    PRIMARY KEY (run_id, start, target)
);
`

// SQLiteStore persists score matrices in a SQLite database. Unreachable
// cells are stored as NULL scores.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path, enables WAL mode and a
// busy timeout, and creates the schema if needed.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("export: open database: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// pooled connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("export: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("export: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Write stores m under man.RunID in a single transaction, replacing any
// previous matrix for the same run.
func (s *SQLiteStore) Write(ctx context.Context, m Matrix, man Manifest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, q := range []string{
		"DELETE FROM scores WHERE run_id = ?",
		"DELETE FROM actors WHERE run_id = ?",
		"DELETE FROM runs WHERE run_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, man.RunID); err != nil {
			return fmt.Errorf("export: clear run %s: %w", man.RunID, err)
		}
	}

	const insertRun = `
		INSERT INTO runs (run_id, generation, records, first_time, last_time)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRun,
		man.RunID, man.Generation, man.Records, man.FirstTime, man.LastTime); err != nil {
		return fmt.Errorf("export: insert run %s: %w", man.RunID, err)
	}

	actorStmt, err := tx.PrepareContext(ctx, "INSERT INTO actors (run_id, position, actor) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("export: prepare actor insert: %w", err)
	}
	defer actorStmt.Close()

	for i, actor := range m.Columns {
		if _, err := actorStmt.ExecContext(ctx, man.RunID, i, actor); err != nil {
			return fmt.Errorf("export: insert actor %d: %w", actor, err)
		}
	}

	scoreStmt, err := tx.PrepareContext(ctx, "INSERT INTO scores (run_id, start, target, score) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("export: prepare score insert: %w", err)
	}
	defer scoreStmt.Close()

	for _, row := range m.Rows {
		for _, col := range m.Columns {
			var score sql.NullFloat64
			if v := row.Value(col); !math.IsInf(v, 1) {
				score = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err := scoreStmt.ExecContext(ctx, man.RunID, row.Start, col, score); err != nil {
				return fmt.Errorf("export: insert score %d→%d: %w", row.Start, col, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit run %s: %w", man.RunID, err)
	}
	return nil
}

// LoadMatrix reads the matrix stored for runID. NULL scores are left out of
// the row maps, so they read back as unreachable.
func (s *SQLiteStore) LoadMatrix(ctx context.Context, runID string) (Matrix, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT actor FROM actors WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return Matrix{}, fmt.Errorf("export: query actors: %w", err)
	}
	var m Matrix
	for rows.Next() {
		var actor int
		if err := rows.Scan(&actor); err != nil {
			rows.Close()
			return Matrix{}, fmt.Errorf("export: scan actor: %w", err)
		}
		m.Columns = append(m.Columns, actor)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Matrix{}, fmt.Errorf("export: read actors: %w", err)
	}
	if len(m.Columns) == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE run_id = ?", runID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return Matrix{}, fmt.Errorf("export: %w: %s", ErrRunNotFound, runID)
		}
		if err != nil {
			return Matrix{}, fmt.Errorf("export: lookup run %s: %w", runID, err)
		}
		return m, nil
	}

	byStart := make(map[int]trust.Scores, len(m.Columns))
	for _, actor := range m.Columns {
		byStart[actor] = make(trust.Scores)
	}

	srows, err := s.db.QueryContext(ctx,
		"SELECT start, target, score FROM scores WHERE run_id = ? AND score IS NOT NULL", runID)
	if err != nil {
		return Matrix{}, fmt.Errorf("export: query scores: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var start, target int
		var score float64
		if err := srows.Scan(&start, &target, &score); err != nil {
			return Matrix{}, fmt.Errorf("export: scan score: %w", err)
		}
		if row, ok := byStart[start]; ok {
			row[target] = score
		}
	}
	if err := srows.Err(); err != nil {
		return Matrix{}, fmt.Errorf("export: read scores: %w", err)
	}

	for _, actor := range m.Columns {
		m.Rows = append(m.Rows, Row{Start: actor, Scores: byStart[actor]})
	}
	return m, nil
}

// LatestRun returns the most recently written run ID.
func (s *SQLiteStore) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT run_id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("export: %w: no runs stored", ErrRunNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("export: latest run: %w", err)
	}
	return id, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("export: close database: %w", err)
	}
	return nil
}
