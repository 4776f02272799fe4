//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration loading and validation for the
// pgEdge Chat Server.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure for the server.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Guardrail GuardrailConfig  `yaml:"guardrail"`
	Session   SessionConfig    `yaml:"session"`
	APIKeys   APIKeysConfig    `yaml:"api_keys"`
	Defaults  Defaults         `yaml:"defaults"`
	Pipelines []PipelineConfig `yaml:"pipelines"`
}

// APIKeysConfig contains paths to files containing API keys for LLM
// providers. If not specified, keys are loaded from environment
// variables or default file locations (~/.anthropic-api-key,
// ~/.openai-api-key, ~/.voyage-api-key).
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Voyage    string `yaml:"voyage"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	CORSEnabled *bool  `yaml:"cors_enabled"` // default: true
}

// Address returns the host:port the server listens on.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CORS reports whether CORS headers are emitted.
func (s ServerConfig) CORS() bool {
	return s.CORSEnabled == nil || *s.CORSEnabled
}

// LoggingConfig controls the server log output.
type LoggingConfig struct {
	Level  string        `yaml:"level"`  // debug, info, warn, error
	Format string        `yaml:"format"` // text or json
	File   LogFileConfig `yaml:"file"`
}

// LogFileConfig describes a rotated log file. An empty path disables
// file output.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// GuardrailConfig tunes the safety evaluator shared by all pipelines.
type GuardrailConfig struct {
	AuditLog           LogFileConfig       `yaml:"audit_log"`
	QualifierWindow    int                 `yaml:"qualifier_window"`
	DisabledCategories []string            `yaml:"disabled_categories"`
	ExtraTerms         map[string][]string `yaml:"extra_terms"`
	ExtraQualifiers    []string            `yaml:"extra_qualifiers"`
}

// SessionConfig controls conversation persistence. A directory enables
// file-backed sessions; otherwise sessions live in memory.
type SessionConfig struct {
	TTLMinutes int    `yaml:"ttl_minutes"`
	Directory  string `yaml:"directory"`
}

// TTL returns the session time-to-live.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// Defaults contains values that apply to every pipeline unless the
// pipeline overrides them.
type Defaults struct {
	TopK            int     `yaml:"top_k"`
	TopN            int     `yaml:"top_n"`
	RerankThreshold float64 `yaml:"rerank_threshold"`
	TokenBudget     int     `yaml:"token_budget"`
	HistoryLimit    int     `yaml:"history_limit"`
	HistoryWindow   int     `yaml:"history_window"`

	RetrievalTimeoutSeconds  int `yaml:"retrieval_timeout_seconds"`
	RerankTimeoutSeconds     int `yaml:"rerank_timeout_seconds"`
	GenerationTimeoutSeconds int `yaml:"generation_timeout_seconds"`
}

// PipelineConfig defines a single chat pipeline.
type PipelineConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Rerank     RerankConfig     `yaml:"rerank"`
	Cache      CacheConfig      `yaml:"cache"`
	Retry      RetryConfig      `yaml:"retry"`

	TopK         int    `yaml:"top_k"`
	TokenBudget  int    `yaml:"token_budget"`
	HistoryLimit int    `yaml:"history_limit"`
	SystemPrompt string `yaml:"system_prompt"`
}

// StoreConfig selects and configures the document store backing a
// pipeline.
type StoreConfig struct {
	Type          string         `yaml:"type"` // memory or postgres
	Database      DatabaseConfig `yaml:"database"`
	Table         string         `yaml:"table"`
	IDColumn      string         `yaml:"id_column"`
	ContentColumn string         `yaml:"content_column"`
	SourceColumn  string         `yaml:"source_column"`
	VectorColumn  string         `yaml:"vector_column"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// EmbeddingConfig selects the embedding provider for a pipeline.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, voyage, or ollama
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
}

// CompletionConfig selects the completion provider for a pipeline.
type CompletionConfig struct {
	Provider    string   `yaml:"provider"` // anthropic, openai, or ollama
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"` // Sampling temperature (default: 0.7)
}

// RerankConfig selects the rerank provider for a pipeline. The local
// provider needs no credentials or network.
type RerankConfig struct {
	Provider  string   `yaml:"provider"` // local or voyage
	Model     string   `yaml:"model"`
	TopN      int      `yaml:"top_n"`
	Threshold *float64 `yaml:"threshold"` // Minimum score to keep a document (default: 0.5)
}

// CacheConfig controls embedding caching for a pipeline.
type CacheConfig struct {
	Enabled    *bool `yaml:"enabled"` // default: true
	TTLSeconds int   `yaml:"ttl_seconds"`
}

// IsEnabled reports whether the embedding cache is on.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RetryConfig controls completion retry behavior for a pipeline.
type RetryConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	InitialIntervalMS int `yaml:"initial_interval_ms"`
	MaxIntervalMS     int `yaml:"max_interval_ms"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Session: SessionConfig{
			TTLMinutes: 60,
		},
		Defaults: Defaults{
			TopK:                     10,
			TopN:                     5,
			RerankThreshold:          0.5,
			TokenBudget:              4000,
			HistoryLimit:             50,
			HistoryWindow:            6,
			RetrievalTimeoutSeconds:  10,
			RerankTimeoutSeconds:     10,
			GenerationTimeoutSeconds: 60,
		},
	}
}
