package conversation

import "sync"

// sessionLocks serializes work per session ID without retaining a mutex
// for every session ID ever seen. Session IDs are caller-supplied, so
// the registry must not grow with them: each entry is reference-counted
// and removed as soon as the last holder or waiter releases it.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*sessionLockEntry
}

type sessionLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[string]*sessionLockEntry)}
}

// Lock acquires the session's mutex, creating it on first use.
func (l *sessionLocks) Lock(sessionID string) {
	l.mu.Lock()
	entry, ok := l.entries[sessionID]
	if !ok {
		entry = &sessionLockEntry{}
		l.entries[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the session's mutex and drops the registry entry when
// nothing else holds or waits on it.
func (l *sessionLocks) Unlock(sessionID string) {
	l.mu.Lock()
	entry, ok := l.entries[sessionID]
	if !ok {
		l.mu.Unlock()
		panic("conversation: unlock of unknown session lock")
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, sessionID)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}

// Len reports how many session locks are currently live.
func (l *sessionLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
