//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pgEdge/pgedge-chat-server/internal/llm"
)

// embeddingServer returns a mock embeddings endpoint that captures the
// last request and replies with the given data.
func embeddingServer(t *testing.T, data []embeddingData, captured *embeddingRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected path /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing or incorrect Authorization header")
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(embeddingResponse{Data: data}); err != nil {
			t.Fatalf("failed to encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testEmbeddingProvider(srv *httptest.Server, opts ...EmbeddingOption) *EmbeddingProvider {
	client := NewClient("test-key", WithBaseURL(srv.URL))
	opts = append([]EmbeddingOption{WithEmbeddingClient(client)}, opts...)
	return NewEmbeddingProvider("test-key", opts...)
}

func TestEmbeddingProvider_Embed(t *testing.T) {
	srv := embeddingServer(t, []embeddingData{
		{Embedding: []float32{0.1, 0.2, 0.3}, Index: 0},
	}, nil)

	provider := testEmbeddingProvider(srv)

	embedding, err := provider.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(embedding) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(embedding))
	}
}

func TestEmbeddingProvider_EmbedBatch_RestoresOrder(t *testing.T) {
	// Reply out of order; index must map results back to the input
	srv := embeddingServer(t, []embeddingData{
		{Embedding: []float32{0.3, 0.4}, Index: 1},
		{Embedding: []float32{0.1, 0.2}, Index: 0},
	}, nil)

	provider := testEmbeddingProvider(srv)

	embeddings, err := provider.EmbedBatch(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	if embeddings[0][0] != 0.1 {
		t.Errorf("expected first embedding to start with 0.1, got %f", embeddings[0][0])
	}
	if embeddings[1][0] != 0.3 {
		t.Errorf("expected second embedding to start with 0.3, got %f", embeddings[1][0])
	}
}

func TestEmbeddingProvider_EmbedBatch_Empty(t *testing.T) {
	provider := NewEmbeddingProvider("test-key")

	embeddings, err := provider.EmbedBatch(context.Background(), []string{})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	if embeddings != nil {
		t.Error("expected nil for empty input")
	}
}

func TestEmbeddingProvider_DimensionsParameter(t *testing.T) {
	var captured embeddingRequest
	srv := embeddingServer(t, []embeddingData{
		{Embedding: []float32{0.1}, Index: 0},
	}, &captured)

	// text-embedding-3 models accept an explicit dimensions override
	provider := testEmbeddingProvider(srv, WithDimensions(256))

	if _, err := provider.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if captured.Dimensions != 256 {
		t.Errorf("expected dimensions 256 in request, got %d", captured.Dimensions)
	}

	// Older embedding models do not accept the parameter
	captured = embeddingRequest{}
	provider = testEmbeddingProvider(srv,
		WithEmbeddingModel("text-embedding-ada-002"), WithDimensions(256))

	if _, err := provider.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if captured.Dimensions != 0 {
		t.Errorf("expected no dimensions in request, got %d", captured.Dimensions)
	}
}

func TestEmbeddingProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	provider := testEmbeddingProvider(srv)

	_, err := provider.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !llm.IsRetryable(err) {
		t.Error("server faults should be retryable")
	}
}

func TestEmbeddingProvider_Dimensions(t *testing.T) {
	provider := NewEmbeddingProvider("test-key")
	if provider.Dimensions() != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", provider.Dimensions())
	}

	provider = NewEmbeddingProvider("test-key", WithDimensions(768))
	if provider.Dimensions() != 768 {
		t.Errorf("expected 768 dimensions, got %d", provider.Dimensions())
	}
}

func TestEmbeddingProvider_ModelName(t *testing.T) {
	provider := NewEmbeddingProvider("test-key")
	if provider.ModelName() != defaultEmbeddingModel {
		t.Errorf("expected %s, got %s", defaultEmbeddingModel, provider.ModelName())
	}

	provider = NewEmbeddingProvider("test-key", WithEmbeddingModel("custom-model"))
	if provider.ModelName() != "custom-model" {
		t.Errorf("expected custom-model, got %s", provider.ModelName())
	}
}
