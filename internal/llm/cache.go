//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultEmbeddingCacheTTL is how long cached embeddings stay valid.
const DefaultEmbeddingCacheTTL = time.Hour

// CachedEmbeddingProvider wraps an EmbeddingProvider with a TTL cache so
// repeated texts are embedded once. Query embedding dominates chat
// latency for short conversations, and embeddings for a fixed model are
// stable, so caching is safe.
type CachedEmbeddingProvider struct {
	inner EmbeddingProvider
	store *cache.Cache
}

// NewCachedEmbeddingProvider wraps inner with a cache holding entries
// for ttl. A non-positive ttl uses DefaultEmbeddingCacheTTL.
func NewCachedEmbeddingProvider(inner EmbeddingProvider, ttl time.Duration) *CachedEmbeddingProvider {
	if ttl <= 0 {
		ttl = DefaultEmbeddingCacheTTL
	}
	purge := ttl / 6
	if purge < time.Minute {
		purge = time.Minute
	}
	return &CachedEmbeddingProvider{
		inner: inner,
		store: cache.New(ttl, purge),
	}
}

// Embed returns the cached embedding for text, or embeds and caches it.
func (p *CachedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := p.key(text)
	if v, ok := p.store.Get(key); ok {
		return v.([]float32), nil
	}

	embedding, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.store.Set(key, embedding, cache.DefaultExpiration)
	return embedding, nil
}

// EmbedBatch embeds only the texts missing from the cache, preserving
// input order in the result.
func (p *CachedEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if v, ok := p.store.Get(p.key(text)); ok {
			results[i] = v.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	embeddings, err := p.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(missing) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(embeddings), len(missing))
	}
	for j, embedding := range embeddings {
		i := missingIdx[j]
		results[i] = embedding
		p.store.Set(p.key(texts[i]), embedding, cache.DefaultExpiration)
	}
	return results, nil
}

// Dimensions returns the wrapped provider's dimensionality.
func (p *CachedEmbeddingProvider) Dimensions() int {
	return p.inner.Dimensions()
}

// ModelName returns the wrapped provider's model name.
func (p *CachedEmbeddingProvider) ModelName() string {
	return p.inner.ModelName()
}

// key hashes model and text together so providers sharing a cache never
// collide across models.
func (p *CachedEmbeddingProvider) key(text string) string {
	h := sha256.New()
	h.Write([]byte(p.inner.ModelName()))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
