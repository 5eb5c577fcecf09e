package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables that override file settings. Values from a .env file
// are visible here once the caller has run godotenv.Load.
const (
	EnvDebug             = "DOCRAG_DEBUG"
	EnvPort              = "DOCRAG_PORT"
	EnvEmbeddingProvider = "DOCRAG_EMBEDDING_PROVIDER"
	EnvOllamaHost        = "DOCRAG_OLLAMA_HOST"
	EnvSnapshotPath      = "DOCRAG_SNAPSHOT_PATH"
)

// ApplyEnv overrides cfg with any DOCRAG_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		cfg.Debug = b
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvEmbeddingProvider); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv(EnvOllamaHost); v != "" {
		cfg.Embedding.Host = v
	}
	if v := os.Getenv(EnvSnapshotPath); v != "" {
		cfg.Storage.SnapshotPath = v
	}
	return nil
}
