// Package store accumulates coverage counters across report runs in a
// SQLite database.
package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ludo-technologies/ucover/internal/coverage"
	"github.com/ludo-technologies/ucover/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS hits (
	project_id  TEXT    NOT NULL,
	assembly_id INTEGER NOT NULL,
	method_id   INTEGER NOT NULL,
	kind        INTEGER NOT NULL,
	entity_id   INTEGER NOT NULL,
	count       INTEGER NOT NULL,
	PRIMARY KEY (project_id, assembly_id, method_id, kind, entity_id)
);
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT    NOT NULL,
	created_at TEXT    NOT NULL,
	test_cases INTEGER NOT NULL,
	counters   INTEGER NOT NULL
);
`

// HitStore is a SQLite-backed counter store. A HitStore holds a single
// connection and must not be used from several goroutines at once.
type HitStore struct {
	conn *sqlite.Conn
	path string
}

// Open opens or creates the database at path
func Open(path string) (*HitStore, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA synchronous = NORMAL", nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &HitStore{conn: conn, path: path}, nil
}

// Close closes the database
func (s *HitStore) Close() error {
	return s.conn.Close()
}

// Merge adds counts to the stored totals of a project and records the run
func (s *HitStore) Merge(projectID string, counts map[coverage.HitKey]int64, testCases int) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	stmt, err := s.conn.Prepare(`INSERT INTO hits (project_id, assembly_id, method_id, kind, entity_id, count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, assembly_id, method_id, kind, entity_id)
		DO UPDATE SET count = count + excluded.count`)
	if err != nil {
		return fmt.Errorf("prepare hit upsert: %w", err)
	}

	for key, n := range counts {
		stmt.BindText(1, projectID)
		stmt.BindInt64(2, int64(key.AssemblyID))
		stmt.BindInt64(3, int64(key.MethodID))
		stmt.BindInt64(4, int64(key.Kind))
		stmt.BindInt64(5, int64(key.EntityID))
		stmt.BindInt64(6, n)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("upsert hit %+v: %w", key, err)
		}
		_ = stmt.Reset()
	}

	err = sqlitex.Execute(s.conn,
		`INSERT INTO runs (project_id, created_at, test_cases, counters) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{projectID, time.Now().UTC().Format(time.RFC3339), testCases, len(counts)},
		})
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	logging.Logger().Debug("merged hits into store",
		zap.String("path", s.path),
		zap.String("project", projectID),
		zap.Int("counters", len(counts)))
	return nil
}

// Load returns the accumulated totals of a project
func (s *HitStore) Load(projectID string) (map[coverage.HitKey]int64, error) {
	counts := make(map[coverage.HitKey]int64)
	err := sqlitex.Execute(s.conn,
		`SELECT assembly_id, method_id, kind, entity_id, count FROM hits WHERE project_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				key := coverage.HitKey{
					AssemblyID: int(stmt.ColumnInt64(0)),
					MethodID:   int(stmt.ColumnInt64(1)),
					Kind:       coverage.EntityKind(stmt.ColumnInt64(2)),
					EntityID:   int(stmt.ColumnInt64(3)),
				}
				counts[key] = stmt.ColumnInt64(4)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("load hits: %w", err)
	}
	return counts, nil
}

// Runs returns how many runs have been merged for a project
func (s *HitStore) Runs(projectID string) (int, error) {
	var n int64
	err := sqlitex.Execute(s.conn,
		`SELECT COUNT(*) FROM runs WHERE project_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				n = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return int(n), nil
}

// Accumulate merges the table into the store and replaces its contents
// with the accumulated totals
func (s *HitStore) Accumulate(projectID string, hits *coverage.HitTable, testCases int) error {
	if err := s.Merge(projectID, hits.Snapshot(), testCases); err != nil {
		return err
	}
	totals, err := s.Load(projectID)
	if err != nil {
		return err
	}
	hits.Replace(totals)
	return nil
}
