//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package factory provides functions to create LLM providers from configuration.
package factory

import (
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-chat-server/internal/config"
	"github.com/pgEdge/pgedge-chat-server/internal/llm"
	"github.com/pgEdge/pgedge-chat-server/internal/llm/anthropic"
	"github.com/pgEdge/pgedge-chat-server/internal/llm/ollama"
	"github.com/pgEdge/pgedge-chat-server/internal/llm/openai"
	"github.com/pgEdge/pgedge-chat-server/internal/llm/voyage"
	"github.com/pgEdge/pgedge-chat-server/internal/rerank"
)

// Provider constants for matching configuration values.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderVoyage    = "voyage"
	ProviderOllama    = "ollama"
	ProviderLocal     = "local"
)

// NewEmbeddingProvider creates an embedding provider based on configuration.
func NewEmbeddingProvider(
	cfg config.EmbeddingConfig,
	apiKeys *config.LoadedKeys,
) (llm.EmbeddingProvider, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case ProviderOpenAI:
		if apiKeys.OpenAI == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		opts := []openai.EmbeddingOption{}
		if cfg.Model != "" {
			opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
		}
		if cfg.Dimensions > 0 {
			opts = append(opts, openai.WithDimensions(cfg.Dimensions))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithEmbeddingClient(
				openai.NewClient(apiKeys.OpenAI, openai.WithBaseURL(cfg.BaseURL))))
		}
		return openai.NewEmbeddingProvider(apiKeys.OpenAI, opts...), nil

	case ProviderVoyage:
		if apiKeys.Voyage == "" {
			return nil, fmt.Errorf("Voyage API key not configured")
		}
		opts := []voyage.EmbeddingOption{}
		if cfg.Model != "" {
			opts = append(opts, voyage.WithEmbeddingModel(cfg.Model))
		}
		if cfg.Dimensions > 0 {
			opts = append(opts, voyage.WithDimensions(cfg.Dimensions))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, voyage.WithEmbeddingClient(
				voyage.NewClient(apiKeys.Voyage, voyage.WithBaseURL(cfg.BaseURL))))
		}
		return voyage.NewEmbeddingProvider(apiKeys.Voyage, opts...), nil

	case ProviderOllama:
		opts := []ollama.EmbeddingOption{}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithEmbeddingModel(cfg.Model))
		}
		if cfg.Dimensions > 0 {
			opts = append(opts, ollama.WithDimensions(cfg.Dimensions))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithEmbeddingClient(
				ollama.NewClient(ollama.WithBaseURL(cfg.BaseURL))))
		}
		return ollama.NewEmbeddingProvider(opts...), nil

	case ProviderAnthropic:
		return nil, fmt.Errorf("Anthropic does not provide an embedding API")

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// NewCompletionProvider creates a completion provider based on configuration.
// Generation parameters like max tokens and temperature travel with each
// request, so only transport concerns are configured here.
func NewCompletionProvider(
	cfg config.CompletionConfig,
	apiKeys *config.LoadedKeys,
) (llm.CompletionProvider, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case ProviderOpenAI:
		if apiKeys.OpenAI == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		opts := []openai.CompletionOption{}
		if cfg.Model != "" {
			opts = append(opts, openai.WithCompletionModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithCompletionClient(
				openai.NewClient(apiKeys.OpenAI, openai.WithBaseURL(cfg.BaseURL))))
		}
		return openai.NewCompletionProvider(apiKeys.OpenAI, opts...), nil

	case ProviderAnthropic:
		if apiKeys.Anthropic == "" {
			return nil, fmt.Errorf("Anthropic API key not configured")
		}
		opts := []anthropic.CompletionOption{}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithCompletionModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithCompletionClient(
				anthropic.NewClient(apiKeys.Anthropic, anthropic.WithBaseURL(cfg.BaseURL))))
		}
		return anthropic.NewCompletionProvider(apiKeys.Anthropic, opts...), nil

	case ProviderOllama:
		opts := []ollama.CompletionOption{}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithCompletionModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithCompletionClient(
				ollama.NewClient(ollama.WithBaseURL(cfg.BaseURL))))
		}
		return ollama.NewCompletionProvider(opts...), nil

	case ProviderVoyage:
		return nil, fmt.Errorf("Voyage does not provide a completion API")

	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}

// NewRerankProvider creates a rerank provider based on configuration. The
// local provider scores documents in-process and needs no API key.
func NewRerankProvider(
	cfg config.RerankConfig,
	apiKeys *config.LoadedKeys,
) (llm.RerankProvider, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case ProviderLocal, "":
		return rerank.NewLocal(), nil

	case ProviderVoyage:
		if apiKeys.Voyage == "" {
			return nil, fmt.Errorf("Voyage API key not configured")
		}
		opts := []voyage.RerankOption{}
		if cfg.Model != "" {
			opts = append(opts, voyage.WithRerankModel(cfg.Model))
		}
		return voyage.NewRerankProvider(apiKeys.Voyage, opts...), nil

	default:
		return nil, fmt.Errorf("unknown rerank provider: %s", cfg.Provider)
	}
}
