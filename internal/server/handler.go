// Package server provides the HTTP surface: the chat endpoint, health check
// and landing page.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/22yuto/devbot/internal/chat"
)

// ChatRequest is the inbound body of the chat endpoint.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Responder answers one user query. Satisfied by *chat.Service.
type Responder interface {
	Respond(ctx context.Context, userQuery string) *chat.Response
}

// NewChatHandler creates the handler for POST /api/chat/notion. The endpoint
// always answers HTTP 200 with a structured body; success=false plus an
// error string is the failure signal, never a transport-level status.
func NewChatHandler(responder Responder, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, &chat.Response{
				Message: "The request body could not be parsed.",
				Success: false,
				Error:   "invalid request body",
			})
			return
		}

		if req.Message == "" {
			writeJSON(w, &chat.Response{
				Message: "How can I help? Ask me anything about the workspace.",
				Success: false,
				Error:   "empty message",
			})
			return
		}

		logger.Info("chat request", "session_id", req.SessionID)
		writeJSON(w, responder.Respond(r.Context(), req.Message))
	}
}

func writeJSON(w http.ResponseWriter, body *chat.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}
