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
	"testing"
	"time"
)

// mockCompleter implements CompletionProvider for decorator tests.
type mockCompleter struct {
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	calls        int
}

func (m *mockCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.calls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "ok", FinishReason: "stop"}, nil
}

func (m *mockCompleter) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk)
	errs := make(chan error, 1)
	close(chunks)
	close(errs)
	return chunks, errs
}

func (m *mockCompleter) ModelName() string { return "mock-completion-model" }

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
	}
}

func TestRetryCompletionProvider_SucceedsAfterRetry(t *testing.T) {
	attempts := 0
	inner := &mockCompleter{
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			attempts++
			if attempts < 3 {
				return nil, &Error{Code: ErrCodeRateLimit, Message: "rate limited", Retryable: true}
			}
			return &CompletionResponse{Content: "finally"}, nil
		},
	}
	provider := NewRetryCompletionProvider(inner, fastRetryConfig(), nil)

	resp, err := provider.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "finally" {
		t.Errorf("content = %q, want finally", resp.Content)
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
}

func TestRetryCompletionProvider_NonRetryableFailsFast(t *testing.T) {
	inner := &mockCompleter{
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			return nil, &Error{Code: ErrCodeInvalidKey, Message: "bad key", Retryable: false}
		},
	}
	provider := NewRetryCompletionProvider(inner, fastRetryConfig(), nil)

	_, err := provider.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}

func TestRetryCompletionProvider_ExhaustsAttempts(t *testing.T) {
	inner := &mockCompleter{
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			return nil, &Error{Code: ErrCodeTimeout, Message: "timed out", Retryable: true}
		},
	}
	provider := NewRetryCompletionProvider(inner, fastRetryConfig(), nil)

	_, err := provider.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
	if !IsRetryable(err) {
		t.Error("final error lost its retryable classification")
	}
}

func TestRetryCompletionProvider_ContextCancelled(t *testing.T) {
	inner := &mockCompleter{
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			return nil, &Error{Code: ErrCodeNetworkError, Message: "connection refused", Retryable: true}
		},
	}
	cfg := RetryConfig{
		MaxAttempts:     5,
		InitialInterval: time.Hour,
		MaxInterval:     time.Hour,
	}
	provider := NewRetryCompletionProvider(inner, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := provider.Complete(ctx, CompletionRequest{})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}

var _ CompletionProvider = (*RetryCompletionProvider)(nil)
