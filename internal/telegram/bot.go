package telegram

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/vmakris/syntrofos/internal/pipeline"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Sender delivers an outbound reply to a chat.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Pipeline is the coordinator entry point shared with the HTTP adapter.
type Pipeline interface {
	Process(ctx context.Context, userID, message string) (string, error)
}

// Bot receives webhook updates and dispatches them without blocking the
// ingress handler: the store write and the provider call run in a worker
// goroutine per update, and the transport is acknowledged immediately.
type Bot struct {
	sender        Sender
	pipeline      Pipeline
	webhookSecret string
	logger        *slog.Logger

	updates chan Update
	wg      sync.WaitGroup
}

// NewBot creates the event channel adapter. webhookSecret may be empty,
// which disables the secret-token check.
func NewBot(sender Sender, p Pipeline, webhookSecret string, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		sender:        sender,
		pipeline:      p,
		webhookSecret: webhookSecret,
		logger:        logger,
		updates:       make(chan Update, 64),
	}
}

// Run drains the update channel until ctx is cancelled, spawning one
// worker per update. Per-user ordering is the coordinator's job, so
// unrelated chats never wait on each other here.
func (b *Bot) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			return
		case u := <-b.updates:
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handle(ctx, u)
			}()
		}
	}
}

func (b *Bot) handle(ctx context.Context, u Update) {
	if u.Message == nil || u.Message.Text == nil {
		return
	}
	text := strings.TrimSpace(*u.Message.Text)
	if text == "" {
		return
	}
	chatID := u.Message.Chat.ID
	userID := strconv.FormatInt(chatID, 10)

	reply, err := b.pipeline.Process(ctx, userID, text)
	if err != nil {
		b.logger.Error("event pipeline failed", "user_id", userID, "error", err)
		if reply == "" {
			reply = pipeline.FallbackReply
		}
	}
	if err := b.sender.SendMessage(chatID, reply); err != nil {
		b.logger.Error("send reply failed", "chat_id", chatID, "error", err)
	}
}

// WebhookHandler parses and enqueues one update per request. It returns
// 200 before any processing happens; Telegram redelivers updates whose
// acknowledgement it never saw, so the ingress must stay fast.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.webhookSecret != "" && r.Header.Get(secretTokenHeader) != b.webhookSecret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var u Update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}

		select {
		case b.updates <- u:
		default:
			b.logger.Warn("update queue full, dropping update", "update_id", u.UpdateID)
		}
		w.WriteHeader(http.StatusOK)
	})
}
