package realtime

import "sync"

// Registry maps each user id to their current session. Last connection
// wins: a user with multiple open sessions only receives targeted events
// on the most recent one. Entries are dropped on disconnect.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Put(userID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// a session re-identifying itself gives up its previous binding
	if s.userID != "" && s.userID != userID {
		if curr, ok := r.sessions[s.userID]; ok && curr == s {
			delete(r.sessions, s.userID)
		}
	}
	s.userID = userID
	r.sessions[userID] = s
}

// Remove drops the entry for s, unless a newer session has already
// replaced it.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if curr, ok := r.sessions[s.userID]; ok && curr == s {
		delete(r.sessions, s.userID)
	}
}

func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// All returns a snapshot of the currently registered sessions.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return all
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
