package bot

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/akorchev/gptbot/core/config"
	coredatabase "github.com/akorchev/gptbot/core/database"
	"github.com/akorchev/gptbot/internal/openai"
)

// StoreConfig holds credential store settings. The encryption key protects
// user API keys at rest and is only ever read from configuration; it is
// never logged.
type StoreConfig struct {
	EncryptionKey string `yaml:"encryption_key" envconfig:"STORE_ENCRYPTION_KEY"`
}

// AppConfig aggregates the core configuration with the bot's own sections.
type AppConfig struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	OpenAI   openai.Config       `yaml:"openai"`
	Store    StoreConfig         `yaml:"store"`
}

// CoreConfig exposes the embedded core configuration.
func (c *AppConfig) CoreConfig() *coreconfig.Config { return &c.Core }

// LoadConfig reads the YAML config file and applies environment overrides.
func LoadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	cfg.OpenAI.Normalize()
	if cfg.Store.EncryptionKey == "" {
		return nil, fmt.Errorf("store.encryption_key is required")
	}
	return &cfg, nil
}
