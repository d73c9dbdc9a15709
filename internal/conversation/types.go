package conversation

import "context"

// Role identifies who authored a turn.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation transcript. Turns are immutable
// once recorded; the only sanctioned mutation of a history is
// RetractLastAssistantTurn.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store keeps per-session conversation history. Sessions are created
// lazily on first use of an unseen session ID. Implementations must
// serialize mutations on the same session ID; different sessions are
// fully independent.
type Store interface {
	// Append adds turns to the end of the session's history.
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	// RetractLastAssistantTurn removes the final turn only when it is an
	// assistant turn, and reports whether it did.
	RetractLastAssistantTurn(ctx context.Context, sessionID string) (bool, error)
	// Messages returns the history in chronological order, oldest first.
	// Callers that want newest-first reverse it themselves.
	Messages(ctx context.Context, sessionID string) ([]Turn, error)
}
