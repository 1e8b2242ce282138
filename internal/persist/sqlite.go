// Package persist implements the long-term persistence layer: a SQLite
// store for task memories with an FTS5 shadow table for full-text
// search, plus raw query, update, and transactional batch entry points
// for the orchestrator.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite handle.
type DB struct {
	db   *sql.DB
	path string
}

// Record is a generic query result row. SQLite values come back
// stringified: NULL as "null", integers and reals in decimal form.
type Record map[string]string

// Statement pairs a SQL string with its named parameters for Batch.
type Statement struct {
	SQL    string
	Params map[string]any
}

// Open opens (creating if needed) the database at path and applies the
// schema. WAL journaling and a busy timeout keep concurrent readers
// and the writer from tripping over each other.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &DB{db: db, path: path}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS long_term_memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_description TEXT,
		metadata TEXT,
		datetime TEXT,
		score REAL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS long_term_memories_fts USING fts5(
		task_description,
		metadata,
		content='long_term_memories',
		content_rowid='id'
	);

	CREATE TRIGGER IF NOT EXISTS long_term_memories_ai AFTER INSERT ON long_term_memories BEGIN
		INSERT INTO long_term_memories_fts(rowid, task_description, metadata)
		VALUES (new.id, new.task_description, new.metadata);
	END;
	CREATE TRIGGER IF NOT EXISTS long_term_memories_ad AFTER DELETE ON long_term_memories BEGIN
		INSERT INTO long_term_memories_fts(long_term_memories_fts, rowid, task_description, metadata)
		VALUES('delete', old.id, old.task_description, old.metadata);
	END;
	CREATE TRIGGER IF NOT EXISTS long_term_memories_au AFTER UPDATE ON long_term_memories BEGIN
		INSERT INTO long_term_memories_fts(long_term_memories_fts, rowid, task_description, metadata)
		VALUES('delete', old.id, old.task_description, old.metadata);
		INSERT INTO long_term_memories_fts(rowid, task_description, metadata)
		VALUES (new.id, new.task_description, new.metadata);
	END;
	`
	_, err := d.db.Exec(schema)
	return err
}

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// InsertMemory stores a long-term memory row and returns its id.
func (d *DB) InsertMemory(ctx context.Context, taskDescription, metadata, datetime string, score float64) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO long_term_memories (task_description, metadata, datetime, score)
		VALUES (?, ?, ?, ?)
	`, taskDescription, metadata, datetime, score)
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	return res.LastInsertId()
}

// SearchMemories runs an FTS5 MATCH over the memories, ranked by bm25.
func (d *DB) SearchMemories(ctx context.Context, query string, limit int) ([]Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT m.id, m.task_description, m.metadata, m.datetime, m.score,
		       bm25(long_term_memories_fts) AS rank
		FROM long_term_memories m
		JOIN long_term_memories_fts fts ON m.id = fts.rowid
		WHERE long_term_memories_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// AllMemories returns memories ordered most recent first.
func (d *DB) AllMemories(ctx context.Context, limit int) ([]Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, task_description, metadata, datetime, score
		FROM long_term_memories
		ORDER BY datetime DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Query runs a read statement with named parameters and returns its
// rows as records.
func (d *DB) Query(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	rows, err := d.db.QueryContext(ctx, query, namedArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Update runs a write statement with named parameters and returns the
// affected row count.
func (d *DB) Update(ctx context.Context, query string, params map[string]any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, namedArgs(params)...)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	return res.RowsAffected()
}

// Batch runs the statements inside a single transaction and returns
// the affected row count per statement. Any failure rolls the whole
// batch back.
func (d *DB) Batch(ctx context.Context, stmts []Statement) ([]int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	affected := make([]int64, 0, len(stmts))
	for i, stmt := range stmts {
		res, err := tx.ExecContext(ctx, stmt.SQL, namedArgs(stmt.Params)...)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("batch statement %d: %w", i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("batch statement %d: %w", i, err)
		}
		affected = append(affected, n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return affected, nil
}

func namedArgs(params map[string]any) []any {
	args := make([]any, 0, len(params))
	for k, v := range params {
		args = append(args, sql.Named(k, v))
	}
	return args
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = stringifyValue(values[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
