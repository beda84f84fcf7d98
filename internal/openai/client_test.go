package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, TimeoutSeconds: 5})
	return client, srv
}

func TestAskSendsBearerAndModel(t *testing.T) {
	var got chatRequest
	var auth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "Paris"}}},
		})
	})

	answer, err := client.Ask(context.Background(), "sk-user-1", "capital of France?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "Paris" {
		t.Fatalf("answer = %q", answer)
	}
	if auth != "Bearer sk-user-1" {
		t.Fatalf("auth = %q", auth)
	}
	if got.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", got.Model)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestAskNormalizesAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := client.Ask(context.Background(), "sk-bad", "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T %v", err, err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Type != "invalid_request_error" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if apiErr.Code() != "invalid_request_error" {
		t.Fatalf("code = %q", apiErr.Code())
	}
}

func TestAskEmptyChoicesIsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[]}`))
	})
	if _, err := client.Ask(context.Background(), "sk", "hello"); err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestConversationAccumulatesHistory(t *testing.T) {
	var requests []chatRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		requests = append(requests, req)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "aye"}}},
		})
	})

	conv, err := client.OpenConversation(context.Background(), "sk", "a pirate")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(requests) != 0 {
		t.Fatal("open must not call the API")
	}

	if _, err := conv.Ask(context.Background(), "first"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if _, err := conv.Ask(context.Background(), "second"); err != nil {
		t.Fatalf("ask: %v", err)
	}

	second := requests[1].Messages
	want := []Message{
		{Role: "system", Content: "a pirate"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "aye"},
		{Role: "user", Content: "second"},
	}
	if len(second) != len(want) {
		t.Fatalf("history = %+v", second)
	}
	for i := range want {
		if second[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, second[i], want[i])
		}
	}
}

func TestConversationFailedTurnNotRecorded(t *testing.T) {
	fail := true
	var requests []chatRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		requests = append(requests, req)
		if fail {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limit","type":"rate_limit_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "ok"}}},
		})
	})

	conv, _ := client.OpenConversation(context.Background(), "sk", "helper")
	if _, err := conv.Ask(context.Background(), "first"); err == nil {
		t.Fatal("expected rate limit error")
	}
	fail = false
	if _, err := conv.Ask(context.Background(), "retry"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	// The failed turn must not appear in the retry's history.
	last := requests[len(requests)-1].Messages
	if len(last) != 2 || last[1].Content != "retry" {
		t.Fatalf("history = %+v", last)
	}
}

func TestConversationClosedAskFails(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"})
	conv, _ := client.OpenConversation(context.Background(), "sk", "helper")
	conv.Close()
	if _, err := conv.Ask(context.Background(), "hello"); err == nil {
		t.Fatal("ask after close must fail")
	}
}

func TestGenerateImagesRequestShape(t *testing.T) {
	var got imageRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"data":[{"url":"https://img/1"},{"url":"https://img/2"}]}`))
	})

	urls, err := client.GenerateImages(context.Background(), "sk", "a red bicycle", 2, "512x512")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.Prompt != "a red bicycle" || got.N != 2 || got.Size != "512x512" || got.Model != "dall-e-2" {
		t.Fatalf("request = %+v", got)
	}
	if len(urls) != 2 || urls[0] != "https://img/1" {
		t.Fatalf("urls = %v", urls)
	}
}

func TestTranscribeMultipartForm(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file: %v", err)
		} else {
			file.Close()
			if header.Filename != "note.ogg" {
				t.Errorf("filename = %q", header.Filename)
			}
		}
		w.Write([]byte(`{"text":"hello world"}`))
	})

	text, err := client.Transcribe(context.Background(), "sk", strings.NewReader("fake-ogg-bytes"), "note.ogg")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q", text)
	}
}

func TestSanitizeTransportError(t *testing.T) {
	err := errors.New(`Post "https://api": Authorization Bearer sk-secret refused`)
	msg := sanitizeTransportError(err)
	if strings.Contains(msg, "sk-secret") {
		t.Fatalf("secret leaked: %q", msg)
	}
	if !strings.Contains(msg, "Bearer <redacted>") {
		t.Fatalf("msg = %q", msg)
	}
}

func TestConfigNormalizeDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()
	if cfg.BaseURL != defaultBaseURL {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.ChatModel == "" || cfg.ImageModel == "" || cfg.TranscribeModel == "" {
		t.Fatalf("models not defaulted: %+v", cfg)
	}
	if cfg.TimeoutSeconds <= 0 || cfg.Temperature <= 0 {
		t.Fatalf("numeric defaults missing: %+v", cfg)
	}

	cfg = Config{BaseURL: "http://example.com/v1/"}
	cfg.Normalize()
	if cfg.BaseURL != "http://example.com/v1" {
		t.Fatalf("trailing slash kept: %q", cfg.BaseURL)
	}
}
