package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/akorchev/gptbot/core/logger"
)

// Message is a single chat completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Ask performs a single-turn completion with no conversation context.
func (c *Client) Ask(ctx context.Context, secret, prompt string) (string, error) {
	return c.complete(ctx, secret, []Message{{Role: "user", Content: prompt}})
}

func (c *Client) complete(ctx context.Context, secret string, messages []Message) (string, error) {
	start := time.Now()
	req := chatRequest{
		Model:       c.cfg.ChatModel,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
	}
	var resp chatResponse
	if err := c.postJSON(ctx, secret, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Message: "chat completion: empty choices"}
	}
	logger.Info(ctx, "openai", "chat.completion",
		slog.String("status", "ok"),
		slog.String("model", resp.Model),
		slog.Int("messages", len(messages)),
		slog.Duration("duration", logger.Took(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

// Conversation is a multi-turn chat handle. It owns the accumulated message
// history; the bot keeps at most one per chat session and must Close it
// when the conversation ends.
type Conversation struct {
	client *Client
	secret string

	mu       sync.Mutex
	messages []Message
	closed   bool
}

// OpenConversation starts a conversation seeded with the assistant role as
// system context. No network call happens until the first Ask.
func (c *Client) OpenConversation(_ context.Context, secret, role string) (*Conversation, error) {
	return &Conversation{
		client:   c,
		secret:   secret,
		messages: []Message{{Role: "system", Content: role}},
	}, nil
}

// Ask sends the message with the full conversation history. The exchange is
// recorded only on success, so a failed call can simply be retried.
func (conv *Conversation) Ask(ctx context.Context, message string) (string, error) {
	conv.mu.Lock()
	defer conv.mu.Unlock()
	if conv.closed {
		return "", fmt.Errorf("openai: conversation closed")
	}

	history := append(append([]Message(nil), conv.messages...), Message{Role: "user", Content: message})
	answer, err := conv.client.complete(ctx, conv.secret, history)
	if err != nil {
		return "", err
	}
	conv.messages = append(history, Message{Role: "assistant", Content: answer})
	return answer, nil
}

// Close releases the history. Subsequent Asks fail.
func (conv *Conversation) Close() {
	conv.mu.Lock()
	conv.messages = nil
	conv.closed = true
	conv.mu.Unlock()
}
