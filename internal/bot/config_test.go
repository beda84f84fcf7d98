package bot

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
telegram:
  token: "123:abc"
  admin_id: 42

logging:
  level: info

database:
  host: localhost
  port: "5432"
  user: gptbot
  name: gptbot
  sslmode: disable

openai:
  chat_model: gpt-4o

store:
  encryption_key: "0123456789abcdef0123456789abcdef"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Core.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Core.Telegram.Token)
	}
	if cfg.Core.Telegram.AdminID != 42 {
		t.Fatalf("admin id = %d", cfg.Core.Telegram.AdminID)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Fatalf("chat model = %q", cfg.OpenAI.ChatModel)
	}
	// Unset fields pick up defaults.
	if cfg.OpenAI.ImageModel == "" || cfg.OpenAI.TimeoutSeconds <= 0 {
		t.Fatalf("openai defaults missing: %+v", cfg.OpenAI)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_CHAT_MODEL", "gpt-4o-mini")
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o-mini" {
		t.Fatalf("chat model = %q", cfg.OpenAI.ChatModel)
	}
}

func TestLoadConfigRequiresEncryptionKey(t *testing.T) {
	noKey := `
telegram:
  token: "123:abc"
`
	if _, err := LoadConfig(writeConfig(t, noKey)); err == nil {
		t.Fatal("expected error without encryption key")
	}
}

func TestLoadConfigRequiresToken(t *testing.T) {
	noToken := `
store:
  encryption_key: "0123456789abcdef0123456789abcdef"
`
	if _, err := LoadConfig(writeConfig(t, noToken)); err == nil {
		t.Fatal("expected error without telegram token")
	}
}
