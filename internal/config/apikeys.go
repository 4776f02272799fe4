//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variable names for API keys.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvVoyageAPIKey    = "VOYAGE_API_KEY"
)

// Default API key file paths (relative to home directory).
const (
	DefaultAnthropicKeyFile = ".anthropic-api-key"
	DefaultOpenAIKeyFile    = ".openai-api-key"
	DefaultVoyageKeyFile    = ".voyage-api-key"
)

// LoadedKeys holds all loaded API keys.
type LoadedKeys struct {
	Anthropic string
	OpenAI    string
	Voyage    string
}

// keySource describes where one provider's API key can come from.
// Providers without an entry (ollama, local) need no key.
type keySource struct {
	provider    string // lowercase name used in pipeline configuration
	name        string // display name for error messages
	envVar      string
	defaultFile string
	configured  func(*APIKeysConfig) string
	slot        func(*LoadedKeys) *string
}

var keySources = []keySource{
	{
		provider:    "anthropic",
		name:        "Anthropic",
		envVar:      EnvAnthropicAPIKey,
		defaultFile: DefaultAnthropicKeyFile,
		configured:  func(c *APIKeysConfig) string { return c.Anthropic },
		slot:        func(k *LoadedKeys) *string { return &k.Anthropic },
	},
	{
		provider:    "openai",
		name:        "OpenAI",
		envVar:      EnvOpenAIAPIKey,
		defaultFile: DefaultOpenAIKeyFile,
		configured:  func(c *APIKeysConfig) string { return c.OpenAI },
		slot:        func(k *LoadedKeys) *string { return &k.OpenAI },
	},
	{
		provider:    "voyage",
		name:        "Voyage",
		envVar:      EnvVoyageAPIKey,
		defaultFile: DefaultVoyageKeyFile,
		configured:  func(c *APIKeysConfig) string { return c.Voyage },
		slot:        func(k *LoadedKeys) *string { return &k.Voyage },
	},
}

// APIKeyLoader loads API keys from configured paths, environment
// variables, or default file locations.
type APIKeyLoader struct {
	config APIKeysConfig
}

// NewAPIKeyLoader creates a new API key loader with the given configuration.
func NewAPIKeyLoader(cfg APIKeysConfig) *APIKeyLoader {
	return &APIKeyLoader{config: cfg}
}

// LoadRequiredKeys loads only the API keys required by the given pipelines.
// A provider that never appears in any pipeline does not need a key.
func (l *APIKeyLoader) LoadRequiredKeys(pipelines []PipelineConfig) (*LoadedKeys, error) {
	needed := make(map[string]bool)
	for _, p := range pipelines {
		needed[strings.ToLower(p.Embedding.Provider)] = true
		needed[strings.ToLower(p.Completion.Provider)] = true
		needed[strings.ToLower(p.Rerank.Provider)] = true
	}

	keys := &LoadedKeys{}
	for _, src := range keySources {
		if !needed[src.provider] {
			continue
		}
		key, err := l.loadKey(src)
		if err != nil {
			return nil, err
		}
		*src.slot(keys) = key
	}
	return keys, nil
}

// loadKey resolves one provider's key with the following priority:
// 1. Configured file path (if specified in config)
// 2. Environment variable
// 3. Default file location (~/.provider-api-key)
func (l *APIKeyLoader) loadKey(src keySource) (string, error) {
	if path := src.configured(&l.config); path != "" {
		return readKeyFile(expandPath(path), src.name)
	}

	if key := os.Getenv(src.envVar); key != "" {
		return key, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	path := filepath.Join(homeDir, src.defaultFile)

	key, err := readKeyFile(path, src.name)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf(
			"%s API key not found: set %s environment variable or create %s",
			src.name, src.envVar, path)
	}
	return key, err
}

// readKeyFile reads and trims an API key from a file.
func readKeyFile(path, providerName string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s API key file not found: %w", providerName, err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s API key: %w", providerName, err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("%s API key file is empty: %s", providerName, path)
	}

	return key, nil
}
