// Package history persists the conversation log in a local SQLite file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	id         INTEGER PRIMARY KEY,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_created_at ON conversation_turns(created_at);`

// SQLiteStore implements service.TurnStore.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// single writer connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create conversation_turns table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts turn. A turn whose id is already stored is rejected; persisted
// turns are never rewritten.
func (s *SQLiteStore) Append(ctx context.Context, turn domain.ConversationTurn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_turns (id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		turn.ID, string(turn.Role), turn.Content, turn.CreatedAt.UTC().UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn %d: %w", turn.ID, err)
	}
	return nil
}

// List returns every persisted turn, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM conversation_turns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := make([]domain.ConversationTurn, 0)
	for rows.Next() {
		var (
			turn      domain.ConversationTurn
			role      string
			createdAt int64
		)
		if err := rows.Scan(&turn.ID, &role, &turn.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Role = domain.Role(role)
		turn.CreatedAt = time.UnixMicro(createdAt).UTC()
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_turns`); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	return nil
}
