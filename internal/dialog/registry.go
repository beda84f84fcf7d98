package dialog

import "sync"

// Registry owns every live Session, keyed by chat id. Sessions are created
// on first event and retained for the process lifetime. The registry lock
// only guards the map; each session carries its own lock so one chat's
// in-flight collaborator call never blocks another chat.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Get returns the session for a chat, creating it in the initial state.
func (r *Registry) Get(chatID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[chatID]; ok {
		return s
	}
	s := newSession(chatID)
	r.sessions[chatID] = s
	return s
}

// Visit runs fn under the session's lock. The whole read-decide-write cycle
// of one event happens inside fn, so concurrent events for the same chat
// serialize instead of interleaving stale transitions.
func (r *Registry) Visit(chatID int64, fn func(*Session)) {
	s := r.Get(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// InProgress reports whether the chat is in the middle of a dialogue flow.
func (r *Registry) InProgress(chatID int64) bool {
	r.mu.Lock()
	s, ok := r.sessions[chatID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateMain
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
