package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config holds OpenAI client settings. The user's API key is NOT part of the
// config: every call carries the per-user secret resolved by the dialogue
// layer.
type Config struct {
	BaseURL         string  `yaml:"base_url" envconfig:"OPENAI_BASE_URL"`
	ChatModel       string  `yaml:"chat_model" envconfig:"OPENAI_CHAT_MODEL"`
	ImageModel      string  `yaml:"image_model" envconfig:"OPENAI_IMAGE_MODEL"`
	TranscribeModel string  `yaml:"transcribe_model" envconfig:"OPENAI_TRANSCRIBE_MODEL"`
	Temperature     float64 `yaml:"temperature" envconfig:"OPENAI_TEMPERATURE"`
	TimeoutSeconds  int     `yaml:"timeout_seconds" envconfig:"OPENAI_TIMEOUT_SECONDS"`
}

// Normalize fills defaults for unset fields.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o-mini"
	}
	if c.ImageModel == "" {
		c.ImageModel = "dall-e-2"
	}
	if c.TranscribeModel == "" {
		c.TranscribeModel = "whisper-1"
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.7
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 90
	}
}

// Client talks to the OpenAI REST API. One attempt per call: retries are a
// user decision, not a transport one.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client with a connection pool tuned for long
// generation requests.
func NewClient(cfg Config) *Client {
	cfg.Normalize()
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: transport,
		},
	}
}

// postJSON sends a JSON payload and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, secret, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}
	return c.post(ctx, secret, path, "application/json", bytes.NewReader(body), out)
}

func (c *Client) post(ctx context.Context, secret, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: sanitizeTransportError(err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &APIError{Status: resp.StatusCode, Message: "read response body"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "decode response body"}
	}
	return nil
}

func decodeAPIError(status int, raw []byte) *APIError {
	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil {
		return &APIError{Status: status, Type: body.Error.Type, Message: body.Error.Message}
	}
	return &APIError{Status: status}
}

// sanitizeTransportError keeps transport failures loggable without echoing
// request bodies or auth material that some wrapped errors include.
func sanitizeTransportError(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "Bearer "); i >= 0 {
		msg = msg[:i] + "Bearer <redacted>"
	}
	return msg
}
