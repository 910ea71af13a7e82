package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	DatabaseURL string `env:"DATABASE_URL"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// NLP backend; when the key is empty the deterministic slot filler is used.
	OpenRouterKey   string `env:"OPENROUTER_API_KEY"`
	OpenRouterModel string `env:"OPENROUTER_MODEL" envDefault:"z-ai/glm-4.5-air:free"`

	// Attachment storage
	BlobDir string `env:"BLOB_DIR" envDefault:"./data/blobs"`

	// Concurrency cap for in-flight NLP backend calls
	BackendConcurrency int64 `env:"BACKEND_CONCURRENCY" envDefault:"8"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required with STORE_DRIVER=postgres")
	}
	return cfg, nil
}
