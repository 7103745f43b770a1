// Package store persists the append-only conversation ledger.
package store

import (
	"context"
	"time"
)

// Turn is one completed (message, reply) exchange for a user. Turns are
// written once by Append and never mutated.
type Turn struct {
	ID          int64
	UserID      string
	UserMessage string
	BotReply    string
	CreatedAt   time.Time
}

// Store is the single write path to the durable medium. Turns for a given
// user are totally ordered by timestamp, ties broken by id.
type Store interface {
	// Append durably records one turn and returns it with its assigned
	// id and timestamp. The write is a single transaction; a partial turn
	// is never observable.
	Append(ctx context.Context, userID, userMessage, botReply string) (Turn, error)

	// History returns the most recent limit turns for userID in
	// chronological order, oldest first. An unknown user yields an empty
	// slice, never an error.
	History(ctx context.Context, userID string, limit int) ([]Turn, error)

	// Recent returns turns newest first. limit <= 0 means all turns.
	Recent(ctx context.Context, userID string, limit int) ([]Turn, error)
}
