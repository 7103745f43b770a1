// Package prompt assembles the bounded context window sent to the
// generation provider.
package prompt

import (
	"context"
	"fmt"

	"github.com/vmakris/syntrofos/internal/store"
)

// Roles used in a context window.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultDepth is the history depth used when none is configured.
const DefaultDepth = 5

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string
	Content string
}

// HistorySource yields the most recent limit turns for a user, oldest first.
type HistorySource interface {
	History(ctx context.Context, userID string, limit int) ([]store.Turn, error)
}

// Builder produces context windows: one system preamble, the last Depth
// turns expanded as (user, assistant) pairs, then the new user message.
// Windows are built fresh per request and never shared.
type Builder struct {
	History  HistorySource
	Preamble string
	Depth    int
}

// Build reads history and assembles the window for one new message.
func (b *Builder) Build(ctx context.Context, userID, newMessage string) ([]Message, error) {
	depth := b.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}

	turns, err := b.History.History(ctx, userID, depth)
	if err != nil {
		return nil, fmt.Errorf("load history for user %s: %w", userID, err)
	}

	window := make([]Message, 0, 2+2*len(turns))
	window = append(window, Message{Role: RoleSystem, Content: b.Preamble})
	for _, t := range turns {
		window = append(window, Message{Role: RoleUser, Content: t.UserMessage})
		window = append(window, Message{Role: RoleAssistant, Content: t.BotReply})
	}
	window = append(window, Message{Role: RoleUser, Content: newMessage})
	return window, nil
}
