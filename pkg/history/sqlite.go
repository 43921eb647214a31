package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	model      TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	response   TEXT NOT NULL,
	streamed   INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
`

// SQLiteStore persists turns in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) a SQLite database at the
// given path. Use ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("cannot record nil turn")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (model, prompt, response, streamed, created_at) VALUES (?, ?, ?, ?, ?)`,
		turn.Model, turn.Prompt, turn.Response, turn.Streamed, turn.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read insert id: %w", err)
	}
	turn.ID = id
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Turn, error) {
	query := `SELECT id, model, prompt, response, streamed, created_at FROM turns ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []*Turn
	for rows.Next() {
		var turn Turn
		var createdAt string
		if err := rows.Scan(&turn.ID, &turn.Model, &turn.Prompt, &turn.Response, &turn.Streamed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			turn.CreatedAt = ts
		}
		out = append(out, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
