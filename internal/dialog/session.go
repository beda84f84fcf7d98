package dialog

import "sync"

// ImageRequest accumulates the multi-step image generation form.
type ImageRequest struct {
	Description string
	Count       int
}

// Session is the in-memory conversational state of one chat. It is never
// persisted; a restart drops every session back to the initial state.
//
// The conversation handle is present exactly when the state is
// StateHavingConversation. The only mutators are attachConversation and
// dropConversation, which change both together.
type Session struct {
	mu sync.Mutex

	chatID int64
	state  State
	secret string // cached plaintext, fetched from the store at most once
	image  ImageRequest
	conv   Conversation
}

func newSession(chatID int64) *Session {
	return &Session{chatID: chatID, state: StateMain}
}

func (s *Session) attachConversation(conv Conversation) {
	s.conv = conv
	s.state = StateHavingConversation
}

// dropConversation closes any live conversation and moves to the given
// state. Every transition out of StateHavingConversation goes through here.
func (s *Session) dropConversation(next State) {
	if s.conv != nil {
		s.conv.Close()
		s.conv = nil
	}
	s.state = next
}

// State reports the current dialogue state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasConversation reports whether a live assistant conversation is attached.
func (s *Session) HasConversation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv != nil
}

// PendingImage returns the image form collected so far.
func (s *Session) PendingImage() ImageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}
