package dialog

import (
	"context"
	"io"
)

// Assistant is the AI collaborator surface the machine drives. Every call
// carries the user's own secret; one call per user action.
type Assistant interface {
	// Ask performs a single-turn completion.
	Ask(ctx context.Context, secret, prompt string) (string, error)
	// OpenConversation starts a multi-turn conversation with the role as
	// system context.
	OpenConversation(ctx context.Context, secret, role string) (Conversation, error)
	// GenerateImages returns image references; an empty slice means failure.
	GenerateImages(ctx context.Context, secret, prompt string, count int, size string) ([]string, error)
	// Transcribe converts a media stream to text.
	Transcribe(ctx context.Context, secret string, media io.Reader, filename string) (string, error)
}

// Conversation is an opaque multi-turn handle owned by exactly one Session.
// It must be closed when the session leaves the conversation state.
type Conversation interface {
	Ask(ctx context.Context, message string) (string, error)
	Close()
}
