package bot

import (
	"context"
	"io"

	"github.com/akorchev/gptbot/internal/dialog"
	"github.com/akorchev/gptbot/internal/openai"
)

// assistant adapts the OpenAI client to the dialogue layer's collaborator
// interface.
type assistant struct {
	client *openai.Client
}

func (a assistant) Ask(ctx context.Context, secret, prompt string) (string, error) {
	return a.client.Ask(ctx, secret, prompt)
}

func (a assistant) OpenConversation(ctx context.Context, secret, role string) (dialog.Conversation, error) {
	conv, err := a.client.OpenConversation(ctx, secret, role)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (a assistant) GenerateImages(ctx context.Context, secret, prompt string, count int, size string) ([]string, error) {
	return a.client.GenerateImages(ctx, secret, prompt, count, size)
}

func (a assistant) Transcribe(ctx context.Context, secret string, media io.Reader, filename string) (string, error) {
	return a.client.Transcribe(ctx, secret, media, filename)
}
