//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package vectorstore

import (
	"context"
	"errors"
	"testing"
)

// mapEmbedder returns fixed vectors per text so similarity order is
// predictable in tests.
type mapEmbedder struct {
	vectors map[string][]float32
}

func (m *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (m *mapEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mapEmbedder) Dimensions() int { return 3 }

func (m *mapEmbedder) ModelName() string { return "map-embedder" }

func testEmbedder() *mapEmbedder {
	return &mapEmbedder{vectors: map[string][]float32{
		"replication":        {0, 1, 0},
		"replication basics": {0, 0.95, 0.05},
		"backup strategies":  {0, 0.5, 0.5},
		"apple pie":          {1, 0, 0},
	}}
}

func TestMemory_AddAndSearch(t *testing.T) {
	store := NewMemory(testEmbedder())
	ctx := context.Background()

	docs := []Document{
		{ID: "d1", Source: "docs/pie.md", Content: "apple pie"},
		{ID: "d2", Source: "docs/repl.md", Content: "replication basics"},
		{ID: "d3", Source: "docs/backup.md", Content: "backup strategies"},
	}
	if err := store.Add(ctx, docs); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	matches, err := store.Search(ctx, "replication", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].ID != "d2" {
		t.Errorf("top match = %s, want d2", matches[0].ID)
	}
	if matches[1].ID != "d3" {
		t.Errorf("second match = %s, want d3", matches[1].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Errorf("scores not descending: %v then %v", matches[0].Score, matches[1].Score)
	}
	for _, m := range matches {
		if m.Score < 0 || m.Score > 1 {
			t.Errorf("score %v outside [0,1]", m.Score)
		}
	}
}

func TestMemory_SearchLimits(t *testing.T) {
	store := NewMemory(testEmbedder())
	ctx := context.Background()

	if err := store.Add(ctx, []Document{{ID: "a", Content: "apple pie"}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	matches, err := store.Search(ctx, "replication", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("got %d matches, want 1", len(matches))
	}

	matches, err = store.Search(ctx, "replication", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if matches != nil {
		t.Errorf("k=0 returned %v, want nil", matches)
	}
}

func TestMemory_AssignsIDs(t *testing.T) {
	store := NewMemory(testEmbedder())
	ctx := context.Background()

	if err := store.Add(ctx, []Document{{Content: "apple pie"}, {Content: "backup strategies"}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	matches, err := store.Search(ctx, "replication", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	seen := make(map[string]bool)
	for _, m := range matches {
		if m.ID == "" {
			t.Error("document stored without ID")
		}
		if seen[m.ID] {
			t.Errorf("duplicate assigned ID %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestMemory_ReplacesByID(t *testing.T) {
	store := NewMemory(testEmbedder())
	ctx := context.Background()

	if err := store.Add(ctx, []Document{{ID: "x", Content: "apple pie"}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, []Document{{ID: "x", Content: "replication basics"}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}

	matches, err := store.Search(ctx, "replication", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if matches[0].Content != "replication basics" {
		t.Errorf("content = %q, want replacement", matches[0].Content)
	}
}

func TestMemory_EmbedderErrorPropagates(t *testing.T) {
	store := NewMemory(&failingEmbedder{})

	if err := store.Add(context.Background(), []Document{{Content: "x"}}); err == nil {
		t.Error("Add: expected error, got nil")
	}
	if _, err := store.Search(context.Background(), "q", 3); err == nil {
		t.Error("Search: expected error, got nil")
	}
}

type failingEmbedder struct{}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedder down")
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedder down")
}

func (f *failingEmbedder) Dimensions() int { return 3 }

func (f *failingEmbedder) ModelName() string { return "failing" }

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "mismatched lengths", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
