//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-chat-server/internal/llm"
)

// Memory is an in-process store backed by a slice of embedded documents.
// It suits small corpora, development, and tests; production corpora
// belong in the Postgres store.
type Memory struct {
	embedder llm.EmbeddingProvider

	mu         sync.RWMutex
	docs       []Document
	embeddings [][]float32
	byID       map[string]int
}

// NewMemory creates an empty in-memory store using embedder for both
// documents and queries.
func NewMemory(embedder llm.EmbeddingProvider) *Memory {
	return &Memory{
		embedder: embedder,
		byID:     make(map[string]int),
	}
}

// Add embeds docs in one batch and stores them. Documents without an ID
// get one assigned; a repeated ID replaces the earlier document.
func (m *Memory) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	embeddings, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding count mismatch: got %d for %d documents", len(embeddings), len(docs))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if idx, ok := m.byID[d.ID]; ok {
			m.docs[idx] = d
			m.embeddings[idx] = embeddings[i]
			continue
		}
		m.byID[d.ID] = len(m.docs)
		m.docs = append(m.docs, d)
		m.embeddings = append(m.embeddings, embeddings[i])
	}
	return nil
}

// Search embeds the query and returns the k most similar documents by
// cosine similarity, ties broken by insertion order.
func (m *Memory) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	queryEmbedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.docs))
	for i, d := range m.docs {
		matches = append(matches, Match{
			Document: d,
			Score:    clamp01(cosineSimilarity(queryEmbedding, m.embeddings[i])),
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count reports the number of stored documents.
func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() {}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Ensure Memory implements the interface.
var _ Store = (*Memory)(nil)
