//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// API v1 routes
	s.mux.HandleFunc("GET /v1/openapi.json", s.handleOpenAPI)
	s.mux.HandleFunc("GET /v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /v1/pipelines", s.handleListPipelines)
	s.mux.HandleFunc("GET /v1/guardrails", s.handleGuardrails)
	s.mux.HandleFunc("POST /v1/pipelines/{name}/chat", s.handleChat)
	s.mux.HandleFunc("POST /v1/pipelines/{name}/documents", s.handleIngest)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
}
