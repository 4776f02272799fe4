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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns all validation
// errors found.
func (c *Config) Validate() error {
	var errs ValidationErrors

	// Validate server config
	errs = append(errs, c.validateServer()...)

	// Validate logging config
	errs = append(errs, c.validateLogging()...)

	// Validate session config
	errs = append(errs, c.validateSession()...)

	// Validate defaults
	errs = append(errs, c.validateDefaults()...)

	// Validate pipelines
	errs = append(errs, c.validatePipelines()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateServer validates server configuration.
func (c *Config) validateServer() ValidationErrors {
	var errs ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "must be between 1 and 65535",
		})
	}

	return errs
}

// validateLogging validates logging configuration.
func (c *Config) validateLogging() ValidationErrors {
	var errs ValidationErrors

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of: debug, info, warn, error",
		})
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if c.Logging.Format != "" && !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be one of: text, json",
		})
	}

	return errs
}

// validateSession validates session configuration.
func (c *Config) validateSession() ValidationErrors {
	var errs ValidationErrors

	if c.Session.TTLMinutes < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.ttl_minutes",
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateDefaults validates the defaults configuration.
func (c *Config) validateDefaults() ValidationErrors {
	var errs ValidationErrors

	nonNegative := []struct {
		field string
		value int
	}{
		{"defaults.top_k", c.Defaults.TopK},
		{"defaults.top_n", c.Defaults.TopN},
		{"defaults.token_budget", c.Defaults.TokenBudget},
		{"defaults.history_limit", c.Defaults.HistoryLimit},
		{"defaults.history_window", c.Defaults.HistoryWindow},
		{"defaults.retrieval_timeout_seconds", c.Defaults.RetrievalTimeoutSeconds},
		{"defaults.rerank_timeout_seconds", c.Defaults.RerankTimeoutSeconds},
		{"defaults.generation_timeout_seconds", c.Defaults.GenerationTimeoutSeconds},
	}
	for _, nn := range nonNegative {
		if nn.value < 0 {
			errs = append(errs, ValidationError{
				Field:   nn.field,
				Message: "must be non-negative",
			})
		}
	}

	if c.Defaults.RerankThreshold < 0 || c.Defaults.RerankThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "defaults.rerank_threshold",
			Message: "must be between 0 and 1",
		})
	}

	return errs
}

// validatePipelines validates all pipeline configurations.
func (c *Config) validatePipelines() ValidationErrors {
	var errs ValidationErrors

	if len(c.Pipelines) == 0 {
		errs = append(errs, ValidationError{
			Field:   "pipelines",
			Message: "at least one pipeline must be configured",
		})
		return errs
	}

	// Check for duplicate pipeline names
	names := make(map[string]bool)
	for i, p := range c.Pipelines {
		if names[p.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("pipelines[%d].name", i),
				Message: fmt.Sprintf("duplicate pipeline name: %s", p.Name),
			})
		}
		names[p.Name] = true

		errs = append(errs, c.validatePipeline(i, p)...)
	}

	return errs
}

// validatePipeline validates a single pipeline configuration.
func (c *Config) validatePipeline(index int, p PipelineConfig) ValidationErrors {
	var errs ValidationErrors
	prefix := fmt.Sprintf("pipelines[%d]", index)

	// Required fields
	if p.Name == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".name",
			Message: "required",
		})
	}

	// Store validation
	errs = append(errs, c.validateStore(prefix+".store", p.Store)...)

	// Provider validation
	errs = append(errs, c.validateProvider(prefix+".embedding", p.Embedding.Provider,
		p.Embedding.Model, []string{"openai", "voyage", "ollama"})...)
	errs = append(errs, c.validateProvider(prefix+".completion", p.Completion.Provider,
		p.Completion.Model, []string{"anthropic", "openai", "ollama"})...)
	errs = append(errs, c.validateRerank(prefix+".rerank", p.Rerank)...)

	// Temperature validation
	if p.Completion.Temperature != nil &&
		(*p.Completion.Temperature < 0 || *p.Completion.Temperature > 2) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".completion.temperature",
			Message: "must be between 0 and 2",
		})
	}

	// Tuning validation
	nonNegative := []struct {
		field string
		value int
	}{
		{prefix + ".top_k", p.TopK},
		{prefix + ".token_budget", p.TokenBudget},
		{prefix + ".history_limit", p.HistoryLimit},
		{prefix + ".cache.ttl_seconds", p.Cache.TTLSeconds},
		{prefix + ".retry.max_attempts", p.Retry.MaxAttempts},
		{prefix + ".retry.initial_interval_ms", p.Retry.InitialIntervalMS},
		{prefix + ".retry.max_interval_ms", p.Retry.MaxIntervalMS},
	}
	for _, nn := range nonNegative {
		if nn.value < 0 {
			errs = append(errs, ValidationError{
				Field:   nn.field,
				Message: "must be non-negative",
			})
		}
	}

	return errs
}

// validateStore validates a pipeline's document store configuration.
func (c *Config) validateStore(prefix string, s StoreConfig) ValidationErrors {
	var errs ValidationErrors

	storeType := strings.ToLower(s.Type)
	switch storeType {
	case "", "memory":
		// Memory stores need no further configuration.
		return errs
	case "postgres":
	default:
		errs = append(errs, ValidationError{
			Field:   prefix + ".type",
			Message: "must be one of: memory, postgres",
		})
		return errs
	}

	// Database validation
	errs = append(errs, c.validateDatabase(prefix+".database", s.Database)...)

	// Table and column validation
	if s.Table == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".table",
			Message: "required for postgres stores",
		})
	}

	columns := []struct {
		field string
		value string
	}{
		{prefix + ".id_column", s.IDColumn},
		{prefix + ".content_column", s.ContentColumn},
		{prefix + ".source_column", s.SourceColumn},
		{prefix + ".vector_column", s.VectorColumn},
	}
	for _, col := range columns {
		if col.value == "" {
			errs = append(errs, ValidationError{
				Field:   col.field,
				Message: "required for postgres stores",
			})
		}
	}

	return errs
}

// validateDatabase validates database configuration.
func (c *Config) validateDatabase(prefix string, db DatabaseConfig) ValidationErrors {
	var errs ValidationErrors

	if db.Host == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".host",
			Message: "required",
		})
	}

	if db.Name == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".name",
			Message: "required",
		})
	}

	if db.Port < 1 || db.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".port",
			Message: "must be between 1 and 65535",
		})
	}

	// Validate SSL mode
	validSSLModes := map[string]bool{
		"disable":     true,
		"allow":       true,
		"prefer":      true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if db.SSLMode != "" && !validSSLModes[db.SSLMode] {
		errs = append(errs, ValidationError{
			Field:   prefix + ".ssl_mode",
			Message: "must be one of: disable, allow, prefer, require, verify-ca, verify-full",
		})
	}

	return errs
}

// validateProvider validates a provider selection (required fields).
func (c *Config) validateProvider(prefix, provider, model string, validProviders []string) ValidationErrors {
	var errs ValidationErrors

	if provider == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".provider",
			Message: "required",
		})
	} else {
		name := strings.ToLower(provider)
		valid := false
		for _, vp := range validProviders {
			if name == vp {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, ValidationError{
				Field:   prefix + ".provider",
				Message: fmt.Sprintf("must be one of: %s", strings.Join(validProviders, ", ")),
			})
		}
	}

	if model == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".model",
			Message: "required",
		})
	}

	return errs
}

// validateRerank validates rerank configuration. Unlike embedding and
// completion providers, rerank model names are optional: the local
// reranker has none and the voyage provider falls back to its default.
func (c *Config) validateRerank(prefix string, r RerankConfig) ValidationErrors {
	var errs ValidationErrors

	provider := strings.ToLower(r.Provider)
	switch provider {
	case "", "local", "voyage":
	default:
		errs = append(errs, ValidationError{
			Field:   prefix + ".provider",
			Message: "must be one of: local, voyage",
		})
	}

	if r.TopN < 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".top_n",
			Message: "must be non-negative",
		})
	}

	if r.Threshold != nil && (*r.Threshold < 0 || *r.Threshold > 1) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".threshold",
			Message: "must be between 0 and 1",
		})
	}

	return errs
}
