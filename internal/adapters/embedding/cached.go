package embedding

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/0xcro3dile/askdocs/internal/domain/ports"
)

// CachedEmbedder memoizes single-text embeddings, which is what queries use.
// Batch calls from ingestion pass straight through.
type CachedEmbedder struct {
	next  ports.EmbeddingService
	cache *cache.Cache
}

// NewCachedEmbedder wraps next with a cache whose entries expire after ttl.
func NewCachedEmbedder(next ports.EmbeddingService, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedEmbedder{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Embed returns a cached vector when the same text was embedded recently.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if x, found := c.cache.Get(text); found {
		return x.([]float32), nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, cache.DefaultExpiration)
	return vec, nil
}

// EmbedBatch delegates without caching.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedBatch(ctx, texts)
}

// Len returns the number of cached entries.
func (c *CachedEmbedder) Len() int {
	return c.cache.ItemCount()
}
