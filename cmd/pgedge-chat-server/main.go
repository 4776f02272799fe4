//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pgEdge/pgedge-chat-server/internal/config"
	"github.com/pgEdge/pgedge-chat-server/internal/guardrail"
	"github.com/pgEdge/pgedge-chat-server/internal/pipeline"
	"github.com/pgEdge/pgedge-chat-server/internal/server"
	"github.com/pgEdge/pgedge-chat-server/internal/session"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-alpha1"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help message")
		showOpenAPI = flag.Bool("openapi", false, "Output OpenAPI specification and exit")
		configPath  = flag.String("config", "", "Path to configuration file")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `pgEdge Chat Server - Guarded conversational retrieval for PostgreSQL

Usage:
    pgedge-chat-server [options]

Options:
    -config string
        Path to configuration file. If not specified, searches:
        1. /etc/pgedge/pgedge-chat-server.yaml
        2. pgedge-chat-server.yaml (in binary directory)

    -openapi
        Output OpenAPI v3 specification as JSON and exit

    -version
        Show version information and exit

    -help
        Show this help message and exit

For more information, visit: https://github.com/pgEdge/pgedge-chat-server
`)
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("pgEdge Chat Server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Build Time: %s\n", buildTime)
		fmt.Printf("  Git Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	if *showOpenAPI {
		spec := server.BuildOpenAPISpec()
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(spec); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode OpenAPI spec: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Bootstrap logger, replaced once configuration is loaded
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Run the server
	if err := run(*configPath, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Swap in the configured logger
	logger = buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"pipelines", len(cfg.Pipelines))

	// Guardrail audit trail, shared by all pipelines
	sink, closeSink := buildAuditSink(cfg.Guardrail.AuditLog, logger)
	defer closeSink()

	guard := pipeline.NewGuardrailEvaluator(cfg.Guardrail, sink, logger)

	// Create pipeline manager
	pm, err := pipeline.NewManagerWithOptions(pipeline.ManagerConfig{
		Config:    cfg,
		Guardrail: guard,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline manager: %w", err)
	}
	defer func() {
		if err := pm.Close(); err != nil {
			logger.Error("failed to close pipeline manager", "error", err)
		}
	}()

	sessions, err := buildSessionStore(cfg.Session, logger)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	// Create and start server
	srv := server.New(cfg, pm, sessions, logger)
	srv.SetVersion(version)

	// Handle graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return err
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal", "signal", sig)

		// Give 30 seconds for graceful shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(ctx)
	}
}

// buildLogger constructs the logger described by the logging
// configuration. When a file path is set, output is mirrored to a
// size-rotated file alongside stdout.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.File.Path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
		})
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// buildAuditSink sends guardrail violations to the log and, when a
// path is configured, to a rotating audit file as well. The returned
// func flushes the file on shutdown.
func buildAuditSink(cfg config.LogFileConfig, logger *slog.Logger) (guardrail.Sink, func()) {
	logSink := guardrail.NewLogSink(logger)
	if cfg.Path == "" {
		return logSink, func() {}
	}

	fileSink := guardrail.NewFileSink(guardrail.FileSinkConfig{
		Path:       cfg.Path,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Logger:     logger,
	})

	closeSink := func() {
		if err := fileSink.Close(); err != nil {
			logger.Error("failed to close audit log", "error", err)
		}
	}
	return guardrail.MultiSink{logSink, fileSink}, closeSink
}

// buildSessionStore picks file persistence when a directory is
// configured, in-memory otherwise.
func buildSessionStore(cfg config.SessionConfig, logger *slog.Logger) (session.Store, error) {
	if cfg.Directory != "" {
		store, err := session.NewFileStore(cfg.Directory)
		if err != nil {
			return nil, err
		}
		logger.Info("using file session store", "directory", cfg.Directory)
		return store, nil
	}
	return session.NewMemoryStore(cfg.TTL()), nil
}
