package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vmakris/syntrofos/internal/prompt"
)

func testClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClient(ClientConfig{
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		MaxTokens:   150,
		Temperature: 0.7,
		Timeout:     2 * time.Second,
		BaseURL:     baseURL,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGenerate_MapsWindowAndExtractsReply(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  Γεια σου!  "}}]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	window := []prompt.Message{
		{Role: prompt.RoleSystem, Content: "preamble"},
		{Role: prompt.RoleUser, Content: "Γεια"},
	}

	reply, err := c.Generate(context.Background(), window)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Γεια σου!" {
		t.Errorf("expected trimmed reply, got %q", reply)
	}

	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("unexpected model: %v", gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(150) {
		t.Errorf("unexpected max_tokens: %v", gotBody["max_tokens"])
	}
	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("unexpected messages: %v", gotBody["messages"])
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "preamble" {
		t.Errorf("unexpected first message: %v", first)
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Generate(context.Background(), []prompt.Message{{Role: prompt.RoleUser, Content: "hi"}})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Generate(context.Background(), []prompt.Message{{Role: prompt.RoleUser, Content: "hi"}})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(ClientConfig{
		APIKey:  "test-key",
		Timeout: 50 * time.Millisecond,
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Generate(context.Background(), []prompt.Message{{Role: prompt.RoleUser, Content: "hi"}})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError on timeout, got %v", err)
	}
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(ClientConfig{}); err == nil {
		t.Fatal("expected error for missing provider key")
	}
}
