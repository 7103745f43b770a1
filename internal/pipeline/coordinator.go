// Package pipeline owns the read-context, generate, persist sequence for
// every inbound message, on both channels.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/vmakris/syntrofos/internal/llm"
	"github.com/vmakris/syntrofos/internal/prompt"
	"github.com/vmakris/syntrofos/internal/store"
)

// FallbackReply is persisted and returned when the provider call fails or
// the circuit is open, so every accepted message still produces exactly
// one stored turn.
const FallbackReply = "Συγγνώμη, κάτι πήγε στραβά. Δοκίμασε ξανά σε λίγο."

// Appender records completed turns.
type Appender interface {
	Append(ctx context.Context, userID, userMessage, botReply string) (store.Turn, error)
}

// WindowBuilder assembles the context window for one new message.
type WindowBuilder interface {
	Build(ctx context.Context, userID, newMessage string) ([]prompt.Message, error)
}

// Coordinator runs the pipeline with per-user serialization: a message
// never builds its context before the previous message for the same user
// has been persisted. Unrelated users do not contend.
type Coordinator struct {
	store     Appender
	builder   WindowBuilder
	generator llm.Generator
	breaker   *CircuitBreaker
	logger    *slog.Logger
	locks     *userLocks
}

// NewCoordinator wires the pipeline. A nil breaker gets the default one;
// a nil logger falls back to slog.Default.
func NewCoordinator(st Appender, builder WindowBuilder, gen llm.Generator, breaker *CircuitBreaker, logger *slog.Logger) *Coordinator {
	if breaker == nil {
		breaker = NewCircuitBreaker(0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:     st,
		builder:   builder,
		generator: gen,
		breaker:   breaker,
		logger:    logger,
		locks:     newUserLocks(),
	}
}

// Process handles one accepted message end to end and returns the reply.
// The provider is called at most once. A generation failure yields the
// fallback reply with the turn still recorded; a store failure after a
// successful generation returns the reply together with a
// *PersistenceError so the caller can still deliver it.
func (c *Coordinator) Process(ctx context.Context, userID, message string) (string, error) {
	c.locks.acquire(userID)
	defer c.locks.release(userID)

	window, err := c.builder.Build(ctx, userID, message)
	if err != nil {
		return "", &PersistenceError{UserID: userID, Stage: StageContext, Err: err}
	}

	reply := FallbackReply
	if c.breaker.Allow(time.Now()) {
		generated, genErr := c.generator.Generate(ctx, window)
		if genErr != nil {
			c.breaker.RecordFailure(time.Now())
			c.logger.Error("generation failed, using fallback reply",
				"user_id", userID, "error", genErr)
		} else {
			c.breaker.RecordSuccess()
			reply = generated
		}
	} else {
		c.logger.Warn("generation circuit open, using fallback reply", "user_id", userID)
	}

	if _, err := c.store.Append(ctx, userID, message, reply); err != nil {
		return reply, &PersistenceError{UserID: userID, Stage: StageAppend, Err: err}
	}
	return reply, nil
}
