package webchat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/pvanhorn/chatgate/internal/conversation"
	"github.com/pvanhorn/chatgate/pkg/logging"
)

// echoTurnHandler replies with a canned transform of the input.
type echoTurnHandler struct{}

func (echoTurnHandler) HandleTurn(_ context.Context, _ string, text string) string {
	return "echo: " + text
}

func newTestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/webchat/ws", h.HandleWebSocket)
	return mux
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/webchat/ws" + query
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func TestWebSocket_SessionAssignment(t *testing.T) {
	h := NewHandler(echoTurnHandler{}, nil, logging.New("error"))
	srv := httptest.NewServer(newTestMux(h))
	defer srv.Close()

	conn := dialWS(t, srv, "")
	defer conn.Close()

	msg := receive(t, conn)
	assert.Equal(t, "session", msg.Type)
	assert.NotEmpty(t, msg.SessionID)
}

func TestWebSocket_MessageRoundTrip(t *testing.T) {
	h := NewHandler(echoTurnHandler{}, nil, logging.New("error"))
	srv := httptest.NewServer(newTestMux(h))
	defer srv.Close()

	conn := dialWS(t, srv, "?session=sess1")
	defer conn.Close()

	msg := receive(t, conn)
	require.Equal(t, "session", msg.Type)
	assert.Equal(t, "sess1", msg.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "Hello"}))

	typing := receive(t, conn)
	assert.Equal(t, "typing", typing.Type)

	reply := receive(t, conn)
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, string(conversation.RoleAssistant), reply.Role)
	assert.Equal(t, "echo: Hello", reply.Text)
}

func TestWebSocket_Ping(t *testing.T) {
	h := NewHandler(echoTurnHandler{}, nil, logging.New("error"))
	srv := httptest.NewServer(newTestMux(h))
	defer srv.Close()

	conn := dialWS(t, srv, "?session=sess1")
	defer conn.Close()

	_ = receive(t, conn) // session

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	msg := receive(t, conn)
	assert.Equal(t, "pong", msg.Type)
}

func TestWebSocket_HistoryReplay(t *testing.T) {
	store := conversation.NewMemoryStore(0)
	require.NoError(t, store.Append(context.Background(), "sess1",
		conversation.Turn{Role: conversation.RoleHuman, Content: "Hello"},
		conversation.Turn{Role: conversation.RoleAssistant, Content: "Hi there!"},
	))

	h := NewHandler(echoTurnHandler{}, store, logging.New("error"))
	srv := httptest.NewServer(newTestMux(h))
	defer srv.Close()

	conn := dialWS(t, srv, "?session=sess1")
	defer conn.Close()

	_ = receive(t, conn) // session

	history := receive(t, conn)
	require.Equal(t, "history", history.Type)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "human", history.Messages[0].Role)
	assert.Equal(t, "Hello", history.Messages[0].Text)
	assert.Equal(t, "assistant", history.Messages[1].Role)
	assert.Equal(t, "Hi there!", history.Messages[1].Text)
}

func TestWebSocket_IgnoresEmptyAndUnknownMessages(t *testing.T) {
	h := NewHandler(echoTurnHandler{}, nil, logging.New("error"))
	srv := httptest.NewServer(newTestMux(h))
	defer srv.Close()

	conn := dialWS(t, srv, "?session=sess1")
	defer conn.Close()

	_ = receive(t, conn) // session

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "   "}))
	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "hello"}))
	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "real"}))

	// Both ignored messages produce no output; the next frames belong
	// to the real message.
	typing := receive(t, conn)
	assert.Equal(t, "typing", typing.Type)

	reply := receive(t, conn)
	assert.Equal(t, "echo: real", reply.Text)
}
