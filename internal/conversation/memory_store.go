package conversation

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSessions = 1000

// MemoryStore keeps session histories in process memory. The session
// count is bounded: once maxSessions is reached, touching a new session
// evicts the least recently used one. A single mutex serializes all
// operations, which trivially satisfies the per-session ordering
// guarantee the turn controller relies on.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*list.Element
	order       *list.List // front = most recently used
	maxSessions int
}

type sessionEntry struct {
	id    string
	turns []Turn
}

// NewMemoryStore creates an in-memory store bounded to maxSessions
// sessions. Non-positive values fall back to the default cap.
func NewMemoryStore(maxSessions int) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &MemoryStore{
		sessions:    make(map[string]*list.Element),
		order:       list.New(),
		maxSessions: maxSessions,
	}
}

// Append adds turns to the end of the session's history, creating the
// session if it does not exist yet.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.touch(sessionID)
	entry.turns = append(entry.turns, turns...)
	return nil
}

// RetractLastAssistantTurn removes the final turn when it is an
// assistant turn. A history that is empty or ends with a human turn is
// left untouched.
func (s *MemoryStore) RetractLastAssistantTurn(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	entry := elem.Value.(*sessionEntry)
	s.order.MoveToFront(elem)
	n := len(entry.turns)
	if n == 0 || entry.turns[n-1].Role != RoleAssistant {
		return false, nil
	}
	entry.turns = entry.turns[:n-1]
	return true, nil
}

// Messages returns a copy of the session's history, oldest first. An
// unknown session yields an empty history, not an error.
func (s *MemoryStore) Messages(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	entry := elem.Value.(*sessionEntry)
	s.order.MoveToFront(elem)
	out := make([]Turn, len(entry.turns))
	copy(out, entry.turns)
	return out, nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// touch returns the session entry, creating it (and evicting the least
// recently used session if at capacity) when absent. Caller holds s.mu.
func (s *MemoryStore) touch(sessionID string) *sessionEntry {
	if elem, ok := s.sessions[sessionID]; ok {
		s.order.MoveToFront(elem)
		return elem.Value.(*sessionEntry)
	}
	if len(s.sessions) >= s.maxSessions {
		if oldest := s.order.Back(); oldest != nil {
			evicted := oldest.Value.(*sessionEntry)
			delete(s.sessions, evicted.id)
			s.order.Remove(oldest)
		}
	}
	entry := &sessionEntry{id: sessionID}
	s.sessions[sessionID] = s.order.PushFront(entry)
	return entry
}
