package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pvanhorn/chatgate/pkg/logging"
)

// TurnHandler is the single entry point presentation layers use.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID, userText string) string
}

// Handler wires HTTP requests to the turn controller and history store.
type Handler struct {
	turns  TurnHandler
	store  Store
	logger *logging.Logger
}

func NewHandler(turns TurnHandler, store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{turns: turns, store: store, logger: logger}
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type messageResponse struct {
	SessionID string    `json:"session_id"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// Message handles POST /chat/message. A missing session ID starts a new
// session.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply := h.turns.HandleTurn(r.Context(), sessionID, req.Message)
	h.writeJSON(w, http.StatusOK, messageResponse{
		SessionID: sessionID,
		Reply:     reply,
		Timestamp: time.Now().UTC(),
	})
}

type historyResponse struct {
	SessionID string `json:"session_id"`
	Messages  []Turn `json:"messages"`
}

// History handles GET /chat/{sessionID}/history. Messages are returned
// newest first; the store keeps them chronological and the reversal here
// is purely a display concern.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	turns, err := h.store.Messages(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load history", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	reversed := make([]Turn, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		reversed = append(reversed, turns[i])
	}
	h.writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Messages: reversed})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
