package openai

import (
	"context"
	"log/slog"
	"time"

	"github.com/akorchev/gptbot/core/logger"
)

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImages produces count images for the prompt and returns their
// URLs. Size is an API size string such as "512x512". An empty result means
// the provider produced nothing; callers treat it the same as a failure.
func (c *Client) GenerateImages(ctx context.Context, secret, prompt string, count int, size string) ([]string, error) {
	start := time.Now()
	req := imageRequest{
		Model:  c.cfg.ImageModel,
		Prompt: prompt,
		N:      count,
		Size:   size,
	}
	var resp imageResponse
	if err := c.postJSON(ctx, secret, "/images/generations", req, &resp); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	logger.Info(ctx, "openai", "images.generate",
		slog.String("status", "ok"),
		slog.String("model", c.cfg.ImageModel),
		slog.Int("images", len(urls)),
		slog.String("size", size),
		slog.Duration("duration", logger.Took(start)),
	)
	return urls, nil
}
