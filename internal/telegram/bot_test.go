package telegram

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vmakris/syntrofos/internal/pipeline"
)

type scriptedPipeline struct {
	reply string
	err   error
	block chan struct{}

	calls  atomic.Int32
	gotUID atomic.Value
}

func (p *scriptedPipeline) Process(_ context.Context, userID, message string) (string, error) {
	p.calls.Add(1)
	p.gotUID.Store(userID)
	if p.block != nil {
		<-p.block
	}
	return p.reply, p.err
}

type capturingSender struct {
	sent chan string
}

func (s *capturingSender) SendMessage(chatID int64, text string) error {
	s.sent <- text
	return nil
}

func postUpdate(handler http.Handler, body string, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const updateJSON = `{"update_id":7,"message":{"chat":{"id":12345},"text":"Γεια","date":1700000000}}`

func TestWebhook_DispatchesAndReplies(t *testing.T) {
	p := &scriptedPipeline{reply: "Γεια σου!"}
	sender := &capturingSender{sent: make(chan string, 1)}
	bot := NewBot(sender, p, "", slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Run(ctx)

	rec := postUpdate(bot.WebhookHandler(), updateJSON, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", rec.Code)
	}

	select {
	case text := <-sender.sent:
		if text != "Γεια σου!" {
			t.Errorf("unexpected reply sent: %q", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reply never sent")
	}
	if uid, _ := p.gotUID.Load().(string); uid != "12345" {
		t.Errorf("expected user id from chat id, got %q", uid)
	}
}

func TestWebhook_SecretRejected(t *testing.T) {
	p := &scriptedPipeline{reply: "never"}
	bot := NewBot(&capturingSender{sent: make(chan string, 1)}, p, "s3cret", slog.New(slog.DiscardHandler))

	rec := postUpdate(bot.WebhookHandler(), updateJSON, "wrong")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if p.calls.Load() != 0 {
		t.Error("rejected update must not reach the pipeline")
	}

	rec = postUpdate(bot.WebhookHandler(), updateJSON, "s3cret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct secret, got %d", rec.Code)
	}
}

func TestWebhook_BadPayload(t *testing.T) {
	bot := NewBot(&capturingSender{sent: make(chan string, 1)}, &scriptedPipeline{}, "", slog.New(slog.DiscardHandler))

	rec := postUpdate(bot.WebhookHandler(), `{not json`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhook_AckNotBlockedBySlowPipeline(t *testing.T) {
	p := &scriptedPipeline{reply: "slow", block: make(chan struct{})}
	sender := &capturingSender{sent: make(chan string, 1)}
	bot := NewBot(sender, p, "", slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Run(ctx)

	start := time.Now()
	rec := postUpdate(bot.WebhookHandler(), updateJSON, "")
	elapsed := time.Since(start)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", rec.Code)
	}
	if elapsed > time.Second {
		t.Errorf("ack took %v; ingress must not wait for the pipeline", elapsed)
	}

	close(p.block)
	select {
	case <-sender.sent:
	case <-time.After(5 * time.Second):
		t.Fatal("reply never sent after pipeline unblocked")
	}
}

func TestHandle_FallbackOnPipelineFailure(t *testing.T) {
	p := &scriptedPipeline{reply: "", err: io.ErrUnexpectedEOF}
	sender := &capturingSender{sent: make(chan string, 1)}
	bot := NewBot(sender, p, "", slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Run(ctx)

	postUpdate(bot.WebhookHandler(), updateJSON, "")

	select {
	case text := <-sender.sent:
		if text != pipeline.FallbackReply {
			t.Errorf("expected fallback apology, got %q", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("best-effort reply never sent")
	}
}

func TestHandle_IgnoresNonTextUpdates(t *testing.T) {
	p := &scriptedPipeline{reply: "never"}
	sender := &capturingSender{sent: make(chan string, 1)}
	bot := NewBot(sender, p, "", slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Run(ctx)

	rec := postUpdate(bot.WebhookHandler(), `{"update_id":9,"message":{"chat":{"id":1},"date":1700000000}}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	select {
	case text := <-sender.sent:
		t.Errorf("no reply expected for textless update, got %q", text)
	case <-time.After(200 * time.Millisecond):
	}
	if p.calls.Load() != 0 {
		t.Error("textless update must not reach the pipeline")
	}
}
