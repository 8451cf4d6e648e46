package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ChatClient is the chat surface consumed by query understanding.
type ChatClient interface {
	Complete(ctx context.Context, messages []ChatMessage, temperature float64) (string, error)
}

// Embedder turns text into a vector. Identical text embeds identically,
// which the cache below exploits.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type chatClient struct {
	provider IChatProvider
	model    string
	timeout  time.Duration
}

func NewChatClient(provider IChatProvider, model string, timeout time.Duration) ChatClient {
	return &chatClient{provider: provider, model: model, timeout: timeout}
}

func (c *chatClient) Complete(ctx context.Context, messages []ChatMessage, temperature float64) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.provider.Complete(ctx, c.model, messages, temperature)
}

type cachedEmbedder struct {
	provider IEmbedProvider
	model    string
	timeout  time.Duration
	cache    *expirable.LRU[string, []float32]
}

// NewEmbedder wraps an embed provider with a content-hash LRU so that
// reprocessing a document does not re-bill unchanged chunks.
func NewEmbedder(provider IEmbedProvider, model string, timeout time.Duration, cacheSize int) Embedder {
	var cache *expirable.LRU[string, []float32]
	if cacheSize > 0 {
		cache = expirable.NewLRU[string, []float32](cacheSize, nil, 2*time.Hour)
	}
	return &cachedEmbedder{
		provider: provider,
		model:    model,
		timeout:  timeout,
		cache:    cache,
	}
}

func (e *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)
	if e.cache != nil {
		if vec, ok := e.cache.Get(key); ok {
			return vec, nil
		}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	vec, err := e.provider.Embed(ctx, e.model, text)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(key, vec)
	}
	return vec, nil
}

func (e *cachedEmbedder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return e.model + ":" + hex.EncodeToString(hash[:])
}
