//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package server provides the HTTP server for the chat API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pgEdge/pgedge-chat-server/internal/config"
	"github.com/pgEdge/pgedge-chat-server/internal/guardrail"
	"github.com/pgEdge/pgedge-chat-server/internal/pipeline"
	"github.com/pgEdge/pgedge-chat-server/internal/session"
)

// PipelineManager defines the interface for pipeline management.
type PipelineManager interface {
	List() []pipeline.Info
	Get(name string) (*pipeline.Pipeline, error)
	Guardrail() *guardrail.Evaluator
	Close() error
}

// Server is the HTTP server for the chat API.
type Server struct {
	config    *config.Config
	pipelines PipelineManager
	sessions  session.Store
	logger    *slog.Logger
	version   string
	server    *http.Server
	mux       *http.ServeMux
}

// New creates a new HTTP server. A nil session store falls back to an
// in-memory store with the configured TTL.
func New(cfg *config.Config, pm PipelineManager, sessions session.Store,
	logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if sessions == nil {
		sessions = session.NewMemoryStore(cfg.Session.TTL())
	}

	s := &Server{
		config:    cfg,
		pipelines: pm,
		sessions:  sessions,
		logger:    logger,
		version:   "dev",
		mux:       http.NewServeMux(),
	}

	// Set up routes
	s.setupRoutes()

	return s
}

// SetVersion records the build version reported by the health endpoint.
func (s *Server) SetVersion(v string) {
	if v != "" {
		s.version = v
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := s.config.Server.Address()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.applyMiddleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting server", "address", addr)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.server.Serve(listener)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}

	return nil
}

// Addr returns the server's address. Returns empty string if not started.
func (s *Server) Addr() string {
	if s.server != nil {
		return s.server.Addr
	}
	return ""
}
