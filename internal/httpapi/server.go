// Package httpapi is the synchronous HTTP channel adapter.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vmakris/syntrofos/internal/pipeline"
	"github.com/vmakris/syntrofos/internal/store"
)

// DefaultUserID is used when a chat request carries no user_id.
const DefaultUserID = "guest"

// Pipeline is the coordinator entry point the adapter drives.
type Pipeline interface {
	Process(ctx context.Context, userID, message string) (string, error)
}

// HistoryReader serves the read-only history endpoint.
type HistoryReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]store.Turn, error)
}

// Server exposes the chat API: POST /chat, GET /history/{user_id}, and a
// liveness probe at /.
type Server struct {
	pipeline Pipeline
	history  HistoryReader
	logger   *slog.Logger
}

// NewServer creates the adapter with its collaborators injected.
func NewServer(p Pipeline, h HistoryReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pipeline: p, history: h, logger: logger}
}

// Routes mounts the chat API on a fresh mux, wrapped with CORS.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /history/{user_id}", s.handleHistory)
	return allowCORS(mux)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type historyEntry struct {
	User      string    `json:"user"`
	Bot       string    `json:"bot"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Chatbot API is running! Use POST /chat to interact.")
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no input provided"})
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	reply, err := s.pipeline.Process(r.Context(), userID, req.Message)
	if err != nil {
		s.logger.Error("chat pipeline failed", "user_id", userID, "error", err)
		var pe *pipeline.PersistenceError
		if errors.As(err, &pe) && reply != "" {
			// Generation succeeded but the turn could not be recorded;
			// hand the reply back rather than discarding it.
			writeJSON(w, http.StatusOK, chatResponse{Response: reply})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	turns, err := s.history.Recent(r.Context(), userID, 0)
	if err != nil {
		s.logger.Error("history read failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	entries := make([]historyEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, historyEntry{
			User:      t.UserMessage,
			Bot:       t.BotReply,
			Timestamp: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// writeJSON encodes without HTML escaping so non-ASCII text survives
// losslessly, matching the persisted content byte for byte.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
