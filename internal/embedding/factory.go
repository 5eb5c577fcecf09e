package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/docrag/internal/config"
)

// Provider names accepted in embedding.provider.
const (
	ProviderHash   = "hash"
	ProviderONNX   = "onnx"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// pingTimeout bounds the reachability check made when an Ollama embedder is first used.
const pingTimeout = 5 * time.Second

// NewFromConfig returns a lazily initialized embedder for cfg. The model is not
// loaded and remote endpoints are not contacted until the first embed call.
// An unreachable Ollama host then makes the embedder permanently unavailable.
// Model-backed providers are wrapped in an LRU cache.
func NewFromConfig(cfg *config.EmbeddingConfig) (*Lazy, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	var factory func() (Embedder, error)
	switch provider {
	case "", ProviderHash:
		factory = func() (Embedder, error) { return NewHashEmbedder(cfg.Dimensions), nil }
	case ProviderONNX:
		factory = func() (Embedder, error) {
			emb, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
			if err != nil {
				return nil, err
			}
			return WithCache(emb, cfg.CacheSize), nil
		}
	case ProviderOllama:
		factory = func() (Embedder, error) {
			emb := NewOllamaEmbedder(cfg.Host, cfg.Model, cfg.Dimensions, cfg.BatchSize, cfg.Timeout())
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			defer cancel()
			if err := emb.Ping(ctx); err != nil {
				return nil, err
			}
			return WithCache(emb, cfg.CacheSize), nil
		}
	case ProviderOpenAI:
		factory = func() (Embedder, error) {
			emb, err := NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKeyEnv, cfg.Model, cfg.Dimensions, cfg.BatchSize, cfg.Timeout())
			if err != nil {
				return nil, err
			}
			return WithCache(emb, cfg.CacheSize), nil
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	return NewLazy(cfg.Dimensions, factory), nil
}
