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
	"log/slog"
	"time"
)

// RetryConfig controls retry behavior for provider calls.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps the exponential backoff delay.
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the standard retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
	}
}

// RetryCompletionProvider wraps a CompletionProvider and retries
// retryable failures (rate limits, timeouts, network errors) with
// exponential backoff. Non-retryable errors return immediately.
type RetryCompletionProvider struct {
	inner  CompletionProvider
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetryCompletionProvider wraps inner with the given retry policy.
// Zero-valued config fields fall back to DefaultRetryConfig.
func NewRetryCompletionProvider(inner CompletionProvider, cfg RetryConfig, logger *slog.Logger) *RetryCompletionProvider {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryCompletionProvider{inner: inner, cfg: cfg, logger: logger}
}

// Complete calls the wrapped provider, retrying retryable errors until
// the attempt budget or the context runs out.
func (p *RetryCompletionProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	interval := p.cfg.InitialInterval
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		resp, err := p.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == p.cfg.MaxAttempts {
			break
		}

		p.logger.Warn("completion failed, retrying",
			"model", p.inner.ModelName(),
			"attempt", attempt,
			"backoff", interval,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		interval *= 2
		if interval > p.cfg.MaxInterval {
			interval = p.cfg.MaxInterval
		}
	}

	return nil, lastErr
}

// CompleteStream delegates without retrying: a stream that has already
// emitted chunks cannot be restarted transparently.
func (p *RetryCompletionProvider) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, <-chan error) {
	return p.inner.CompleteStream(ctx, req)
}

// ModelName returns the wrapped provider's model name.
func (p *RetryCompletionProvider) ModelName() string {
	return p.inner.ModelName()
}
