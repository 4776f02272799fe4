//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a YAML config to a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
  cors_enabled: false

logging:
  level: debug
  format: json

session:
  ttl_minutes: 30

pipelines:
  - name: docs
    description: Documentation assistant
    store:
      type: memory
    embedding:
      provider: openai
      model: text-embedding-3-small
    completion:
      provider: anthropic
      model: claude-sonnet-4-20250514
      max_tokens: 1024
      temperature: 0.2
    rerank:
      provider: local
      top_n: 3
      threshold: 0.4
    top_k: 20
    token_budget: 2000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load valid config: %v", err)
	}

	// Check server config
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.CORS() {
		t.Error("expected CORS to be disabled")
	}
	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Errorf("expected address 0.0.0.0:9090, got %s", cfg.Server.Address())
	}

	// Check logging config
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging format json, got %s", cfg.Logging.Format)
	}

	// Check session config
	if cfg.Session.TTLMinutes != 30 {
		t.Errorf("expected session ttl 30, got %d", cfg.Session.TTLMinutes)
	}

	// Check pipeline
	if len(cfg.Pipelines) != 1 {
		t.Fatalf("expected 1 pipeline, got %d", len(cfg.Pipelines))
	}

	p := cfg.Pipelines[0]
	if p.Name != "docs" {
		t.Errorf("expected pipeline name 'docs', got '%s'", p.Name)
	}
	if p.TopK != 20 {
		t.Errorf("expected top_k 20, got %d", p.TopK)
	}
	if p.TokenBudget != 2000 {
		t.Errorf("expected token budget 2000, got %d", p.TokenBudget)
	}
	if p.Rerank.TopN != 3 {
		t.Errorf("expected rerank top_n 3, got %d", p.Rerank.TopN)
	}
	if p.Rerank.Threshold == nil || *p.Rerank.Threshold != 0.4 {
		t.Errorf("expected rerank threshold 0.4, got %v", p.Rerank.Threshold)
	}
	if p.Completion.MaxTokens != 1024 {
		t.Errorf("expected max_tokens 1024, got %d", p.Completion.MaxTokens)
	}
	if p.Completion.Temperature == nil || *p.Completion.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", p.Completion.Temperature)
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	path := writeConfig(t, `
pipelines:
  - name: minimal
    embedding:
      provider: openai
      model: text-embedding-3-small
    completion:
      provider: openai
      model: gpt-4o-mini
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load minimal config: %v", err)
	}

	// Check defaults are applied
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if !cfg.Server.CORS() {
		t.Error("expected CORS enabled by default")
	}

	p := cfg.Pipelines[0]
	if p.Store.Type != "memory" {
		t.Errorf("expected default store type memory, got %s", p.Store.Type)
	}
	if p.TopK != 10 {
		t.Errorf("expected default top_k 10, got %d", p.TopK)
	}
	if p.TokenBudget != 4000 {
		t.Errorf("expected default token budget 4000, got %d", p.TokenBudget)
	}
	if p.HistoryLimit != 50 {
		t.Errorf("expected default history limit 50, got %d", p.HistoryLimit)
	}
	if p.Rerank.Provider != "local" {
		t.Errorf("expected default rerank provider local, got %s", p.Rerank.Provider)
	}
	if p.Rerank.TopN != 5 {
		t.Errorf("expected default rerank top_n 5, got %d", p.Rerank.TopN)
	}
	if p.Rerank.Threshold == nil || *p.Rerank.Threshold != 0.5 {
		t.Errorf("expected default rerank threshold 0.5, got %v", p.Rerank.Threshold)
	}
	if p.Completion.MaxTokens != 2048 {
		t.Errorf("expected default max_tokens 2048, got %d", p.Completion.MaxTokens)
	}
	if p.Completion.Temperature == nil || *p.Completion.Temperature != 0.7 {
		t.Errorf("expected default temperature 0.7, got %v", p.Completion.Temperature)
	}
	if !p.Cache.IsEnabled() {
		t.Error("expected cache enabled by default")
	}
	if p.Cache.TTLSeconds != 3600 {
		t.Errorf("expected default cache ttl 3600, got %d", p.Cache.TTLSeconds)
	}
	if p.Retry.MaxAttempts != 3 {
		t.Errorf("expected default retry max_attempts 3, got %d", p.Retry.MaxAttempts)
	}
	if p.Retry.InitialIntervalMS != 500 {
		t.Errorf("expected default retry initial_interval_ms 500, got %d",
			p.Retry.InitialIntervalMS)
	}
	if p.Retry.MaxIntervalMS != 8000 {
		t.Errorf("expected default retry max_interval_ms 8000, got %d",
			p.Retry.MaxIntervalMS)
	}
}

func TestLoad_PostgresStoreDefaults(t *testing.T) {
	path := writeConfig(t, `
pipelines:
  - name: pg
    store:
      type: postgres
      database:
        host: localhost
        name: ragdb
        username: app
      table: documents
    embedding:
      provider: voyage
      model: voyage-3
    completion:
      provider: anthropic
      model: claude-sonnet-4-20250514
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	s := cfg.Pipelines[0].Store
	if s.Database.Port != 5432 {
		t.Errorf("expected default database port 5432, got %d", s.Database.Port)
	}
	if s.Database.SSLMode != "prefer" {
		t.Errorf("expected default ssl_mode 'prefer', got '%s'", s.Database.SSLMode)
	}
	if s.IDColumn != "id" {
		t.Errorf("expected default id_column 'id', got '%s'", s.IDColumn)
	}
	if s.ContentColumn != "content" {
		t.Errorf("expected default content_column 'content', got '%s'", s.ContentColumn)
	}
	if s.SourceColumn != "source" {
		t.Errorf("expected default source_column 'source', got '%s'", s.SourceColumn)
	}
	if s.VectorColumn != "embedding" {
		t.Errorf("expected default vector_column 'embedding', got '%s'", s.VectorColumn)
	}
}

func TestLoad_InvalidConfigs(t *testing.T) {
	validPipeline := `
    embedding:
      provider: openai
      model: text-embedding-3-small
    completion:
      provider: openai
      model: gpt-4o-mini
`

	tests := []struct {
		name        string
		content     string
		errContains string
	}{
		{
			name:        "no pipelines",
			content:     "server:\n  port: 8080\n",
			errContains: "at least one pipeline",
		},
		{
			name:        "invalid port",
			content:     "server:\n  port: 99999\npipelines:\n  - name: test" + validPipeline,
			errContains: "server.port",
		},
		{
			name: "duplicate name",
			content: "pipelines:\n  - name: test" + validPipeline +
				"  - name: test" + validPipeline,
			errContains: "duplicate pipeline name",
		},
		{
			name: "unknown store type",
			content: "pipelines:\n  - name: test\n    store:\n      type: redis" +
				validPipeline,
			errContains: "store.type",
		},
		{
			name: "unknown completion provider",
			content: `
pipelines:
  - name: test
    embedding:
      provider: openai
      model: text-embedding-3-small
    completion:
      provider: mistral
      model: some-model
`,
			errContains: "completion.provider",
		},
		{
			name: "threshold out of range",
			content: "pipelines:\n  - name: test\n    rerank:\n      threshold: 1.5" +
				validPipeline,
			errContains: "rerank.threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Error("expected error, got nil")
				return
			}
			if !contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing '%s', got '%s'",
					tt.errContains, err.Error())
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host '127.0.0.1', got '%s'", cfg.Server.Host)
	}
	if cfg.Session.TTLMinutes != 60 {
		t.Errorf("expected default session ttl 60, got %d", cfg.Session.TTLMinutes)
	}
	if cfg.Defaults.TopK != 10 {
		t.Errorf("expected default top_k 10, got %d", cfg.Defaults.TopK)
	}
	if cfg.Defaults.TopN != 5 {
		t.Errorf("expected default top_n 5, got %d", cfg.Defaults.TopN)
	}
	if cfg.Defaults.RerankThreshold != 0.5 {
		t.Errorf("expected default rerank threshold 0.5, got %f",
			cfg.Defaults.RerankThreshold)
	}
	if cfg.Defaults.TokenBudget != 4000 {
		t.Errorf("expected default token budget 4000, got %d",
			cfg.Defaults.TokenBudget)
	}
	if cfg.Defaults.HistoryLimit != 50 {
		t.Errorf("expected default history limit 50, got %d",
			cfg.Defaults.HistoryLimit)
	}
	if cfg.Defaults.HistoryWindow != 6 {
		t.Errorf("expected default history window 6, got %d",
			cfg.Defaults.HistoryWindow)
	}
	if cfg.Defaults.RetrievalTimeoutSeconds != 10 {
		t.Errorf("expected default retrieval timeout 10, got %d",
			cfg.Defaults.RetrievalTimeoutSeconds)
	}
	if cfg.Defaults.GenerationTimeoutSeconds != 60 {
		t.Errorf("expected default generation timeout 60, got %d",
			cfg.Defaults.GenerationTimeoutSeconds)
	}
}

func TestValidation_MissingFields(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Pipelines: []PipelineConfig{
			{
				Name: "test",
				Store: StoreConfig{
					Type: "postgres",
					// Missing database, table, and columns
				},
				Embedding: EmbeddingConfig{
					// Missing provider and model
				},
				Completion: CompletionConfig{
					// Missing provider and model
				},
			},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	errStr := err.Error()
	expectedErrors := []string{
		"store.database.host",
		"store.database.name",
		"store.table",
		"store.id_column",
		"store.content_column",
		"store.source_column",
		"store.vector_column",
		"embedding.provider",
		"embedding.model",
		"completion.provider",
		"completion.model",
	}

	for _, expected := range expectedErrors {
		if !contains(errStr, expected) {
			t.Errorf("expected error to contain '%s', got '%s'", expected, errStr)
		}
	}
}

func TestValidation_InvalidEmbeddingProvider(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Pipelines: []PipelineConfig{
			{
				Name:  "test",
				Store: StoreConfig{Type: "memory"},
				Embedding: EmbeddingConfig{
					Provider: "invalid-provider",
					Model:    "some-model",
				},
				Completion: CompletionConfig{
					Provider: "anthropic",
					Model:    "claude-sonnet-4-20250514",
				},
			},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for invalid provider")
	}

	if !contains(err.Error(), "embedding.provider") {
		t.Errorf("expected error about embedding.provider, got: %s", err.Error())
	}
}

func TestValidation_RerankProviders(t *testing.T) {
	base := func(r RerankConfig) *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Pipelines: []PipelineConfig{
				{
					Name:  "test",
					Store: StoreConfig{Type: "memory"},
					Embedding: EmbeddingConfig{
						Provider: "openai",
						Model:    "text-embedding-3-small",
					},
					Completion: CompletionConfig{
						Provider: "openai",
						Model:    "gpt-4o-mini",
					},
					Rerank: r,
				},
			},
		}
	}

	// Voyage rerank without a model is valid: the provider falls back to
	// its default model.
	if err := base(RerankConfig{Provider: "voyage"}).Validate(); err != nil {
		t.Errorf("expected voyage rerank without model to validate, got: %v", err)
	}

	err := base(RerankConfig{Provider: "cohere"}).Validate()
	if err == nil {
		t.Fatal("expected validation error for unknown rerank provider")
	}
	if !contains(err.Error(), "rerank.provider") {
		t.Errorf("expected error about rerank.provider, got: %s", err.Error())
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		input    string
		expected string
	}{
		{"~/test", filepath.Join(homeDir, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		result := expandPath(tt.input)
		if result != tt.expected {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchSubstring(s, substr)
}

func searchSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
