package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/akorchev/gptbot/core/bootstrap"
	"github.com/akorchev/gptbot/core/cmd"
	"github.com/akorchev/gptbot/internal/bot"
)

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg, ok := carrier.(*bot.AppConfig)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			res, err := bootstrap.Run(bootstrap.Options{
				Config:   cfg.CoreConfig(),
				Database: cfg.Database,
			})
			if err != nil {
				return nil, err
			}
			return bot.New(cfg, res.DB)
		},
	})
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
