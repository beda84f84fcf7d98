package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/akorchev/gptbot/core/logger"
)

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the media stream to the speech-to-text endpoint and
// returns the recognized text. The filename extension tells the API the
// container format, so callers should pass the original name.
func (c *Client) Transcribe(ctx context.Context, secret string, media io.Reader, filename string) (string, error) {
	start := time.Now()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("openai: build form: %w", err)
	}
	if _, err := io.Copy(part, media); err != nil {
		return "", fmt.Errorf("openai: read media: %w", err)
	}
	if err := form.WriteField("model", c.cfg.TranscribeModel); err != nil {
		return "", fmt.Errorf("openai: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("openai: build form: %w", err)
	}

	var resp transcriptionResponse
	if err := c.post(ctx, secret, "/audio/transcriptions", form.FormDataContentType(), &body, &resp); err != nil {
		return "", err
	}
	logger.Info(ctx, "openai", "audio.transcribe",
		slog.String("status", "ok"),
		slog.String("model", c.cfg.TranscribeModel),
		slog.Duration("duration", logger.Took(start)),
	)
	return resp.Text, nil
}
