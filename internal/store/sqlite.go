package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a single SQLite database. All mutation
// goes through Append; database/sql serializes concurrent access to the
// underlying handle, so the two channel adapters can share one store.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the conversation database at path, ensuring the
// parent directory exists and the schema is in place.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, id);
	`)
	return err
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append records one turn with a UTC timestamp assigned here, so ordering
// does not depend on caller clocks.
func (s *SQLiteStore) Append(ctx context.Context, userID, userMessage, botReply string) (Turn, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, user_message, bot_response, timestamp) VALUES (?, ?, ?, ?)`,
		userID, userMessage, botReply, now,
	)
	if err != nil {
		return Turn{}, fmt.Errorf("append turn for user %s: %w", userID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Turn{}, fmt.Errorf("read appended turn id: %w", err)
	}
	return Turn{
		ID:          id,
		UserID:      userID,
		UserMessage: userMessage,
		BotReply:    botReply,
		CreatedAt:   now,
	}, nil
}

// History returns the most recent limit turns, oldest first.
func (s *SQLiteStore) History(ctx context.Context, userID string, limit int) ([]Turn, error) {
	turns, err := s.query(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	// The query selects newest first; reverse to chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Recent returns turns newest first, as served by the history endpoint.
func (s *SQLiteStore) Recent(ctx context.Context, userID string, limit int) ([]Turn, error) {
	return s.query(ctx, userID, limit)
}

func (s *SQLiteStore) query(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		// SQLite treats a negative LIMIT as "no limit".
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, user_message, bot_response, timestamp
		 FROM conversations WHERE user_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("read history for user %s: %w", userID, err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserMessage, &t.BotReply, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn for user %s: %w", userID, err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history for user %s: %w", userID, err)
	}
	return turns, nil
}
