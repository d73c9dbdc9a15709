package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/pvanhorn/chatgate/internal/conversation"
	"github.com/pvanhorn/chatgate/pkg/logging"
)

// Handler manages web chat connections and messages.
type Handler struct {
	turns  conversation.TurnHandler
	store  conversation.Store
	logger *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history replay.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// NewHandler creates a web chat handler.
func NewHandler(turns conversation.TurnHandler, store conversation.Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{turns: turns, store: store, logger: logger}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	// Replay stored history so a reconnecting widget picks up where it left off.
	if h.store != nil {
		if msgs, err := h.store.Messages(r.Context(), sessionID); err == nil && len(msgs) > 0 {
			history := make([]HistoryMessage, 0, len(msgs))
			for _, m := range msgs {
				history = append(history, HistoryMessage{Role: string(m.Role), Text: m.Content})
			}
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
		}
	}

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.processMessage(r.Context(), conn, sessionID, msg.Text)
	}
}

func (h *Handler) processMessage(ctx context.Context, conn *websocket.Conn, sessionID, text string) {
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

	// The turn controller always yields a displayable reply, even when
	// moderation blocks the turn or generation fails.
	reply := h.turns.HandleTurn(ctx, sessionID, text)

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type: "message",
		Role: string(conversation.RoleAssistant),
		Text: reply,
	})
}
