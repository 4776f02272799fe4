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
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "pgedge-chat-server.yaml"

	// SystemConfigPath is the system-wide configuration path.
	SystemConfigPath = "/etc/pgedge/" + ConfigFileName
)

// Load loads the configuration from the specified path, or searches
// default locations if path is empty.
//
// Search order:
//  1. Explicit path (if provided)
//  2. /etc/pgedge/pgedge-chat-server.yaml
//  3. pgedge-chat-server.yaml in the binary's directory
func Load(path string) (*Config, error) {
	configPath, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}

	return loadFromFile(configPath)
}

// findConfigFile finds the configuration file using the search order.
func findConfigFile(explicitPath string) (string, error) {
	// If explicit path provided, use it
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Search order for config file
	searchPaths := []string{
		SystemConfigPath,
		getBinaryDirConfigPath(),
	}

	for _, p := range searchPaths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no configuration file found; searched: %v", searchPaths)
}

// getBinaryDirConfigPath returns the path to config file in the binary's
// directory.
func getBinaryDirConfigPath() string {
	executable, err := os.Executable()
	if err != nil {
		return ""
	}

	// Resolve symlinks to get the actual binary location
	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return ""
	}

	return filepath.Join(filepath.Dir(executable), ConfigFileName)
}

// loadFromFile loads and parses the configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults to pipelines
	applyDefaults(cfg)

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults applies default values where not specified.
func applyDefaults(cfg *Config) {
	applyLogFileDefaults(&cfg.Logging.File)
	applyLogFileDefaults(&cfg.Guardrail.AuditLog)

	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]

		// Apply tuning defaults
		if p.TopK == 0 {
			p.TopK = cfg.Defaults.TopK
		}
		if p.TokenBudget == 0 {
			p.TokenBudget = cfg.Defaults.TokenBudget
		}
		if p.HistoryLimit == 0 {
			p.HistoryLimit = cfg.Defaults.HistoryLimit
		}

		// Apply store defaults
		if p.Store.Type == "" {
			p.Store.Type = "memory"
		}
		if p.Store.Type == "postgres" {
			if p.Store.IDColumn == "" {
				p.Store.IDColumn = "id"
			}
			if p.Store.ContentColumn == "" {
				p.Store.ContentColumn = "content"
			}
			if p.Store.SourceColumn == "" {
				p.Store.SourceColumn = "source"
			}
			if p.Store.VectorColumn == "" {
				p.Store.VectorColumn = "embedding"
			}
			if p.Store.Database.Port == 0 {
				p.Store.Database.Port = 5432
			}
			if p.Store.Database.SSLMode == "" {
				p.Store.Database.SSLMode = "prefer"
			}
		}

		// Apply completion defaults
		if p.Completion.MaxTokens == 0 {
			p.Completion.MaxTokens = 2048
		}
		if p.Completion.Temperature == nil {
			temperature := 0.7
			p.Completion.Temperature = &temperature
		}

		// Apply rerank defaults
		if p.Rerank.Provider == "" {
			p.Rerank.Provider = "local"
		}
		if p.Rerank.TopN == 0 {
			p.Rerank.TopN = cfg.Defaults.TopN
		}
		if p.Rerank.Threshold == nil {
			threshold := cfg.Defaults.RerankThreshold
			p.Rerank.Threshold = &threshold
		}

		// Apply cache defaults
		if p.Cache.TTLSeconds == 0 {
			p.Cache.TTLSeconds = 3600
		}

		// Apply retry defaults
		if p.Retry.MaxAttempts == 0 {
			p.Retry.MaxAttempts = 3
		}
		if p.Retry.InitialIntervalMS == 0 {
			p.Retry.InitialIntervalMS = 500
		}
		if p.Retry.MaxIntervalMS == 0 {
			p.Retry.MaxIntervalMS = 8000
		}
	}
}

// applyLogFileDefaults fills in rotation settings for a log file.
func applyLogFileDefaults(f *LogFileConfig) {
	if f.MaxSizeMB == 0 {
		f.MaxSizeMB = 10
	}
	if f.MaxBackups == 0 {
		f.MaxBackups = 5
	}
	if f.MaxAgeDays == 0 {
		f.MaxAgeDays = 30
	}
}
