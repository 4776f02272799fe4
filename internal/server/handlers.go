//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pgEdge/pgedge-chat-server/internal/pipeline"
	"github.com/pgEdge/pgedge-chat-server/internal/session"
)

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Pipelines int    `json:"pipelines"`
}

// PipelinesResponse is the response for the list pipelines endpoint.
type PipelinesResponse struct {
	Pipelines []pipeline.Info `json:"pipelines"`
}

// SessionResponse describes a stored conversation.
type SessionResponse struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Messages  []pipeline.Message `json:"messages"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles the GET /v1/health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Pipelines: len(s.pipelines.List()),
	})
}

// handleListPipelines handles the GET /v1/pipelines endpoint.
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines := s.pipelines.List()
	s.respondJSON(w, http.StatusOK, PipelinesResponse{Pipelines: pipelines})
}

// handleGuardrails handles the GET /v1/guardrails endpoint.
func (s *Server) handleGuardrails(w http.ResponseWriter, r *http.Request) {
	guard := s.pipelines.Guardrail()
	if guard == nil {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"guardrail evaluator not configured")
		return
	}

	s.respondJSON(w, http.StatusOK, guard.Guidelines())
}

// handleChat handles the POST /v1/pipelines/{name}/chat endpoint.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	// Get the pipeline
	p, err := s.pipelines.Get(name)
	if err != nil {
		if errors.Is(err, pipeline.ErrPipelineNotFound) {
			s.respondError(w, http.StatusNotFound, "PIPELINE_NOT_FOUND",
				"pipeline not found: "+name)
			return
		}
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	// Parse request body first to validate input before touching sessions
	var req pipeline.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "query is required")
		return
	}

	// Resolve the conversation before running the pipeline so a stale
	// session reference fails fast.
	sess, err := s.resolveSession(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND",
				"session not found: "+req.SessionID)
			return
		}
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	// Check for nil pipeline (shouldn't happen in production but good for safety)
	if p == nil {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"pipeline is nil")
		return
	}

	result, err := p.Ask(r.Context(), pipeline.AskRequest{
		Query:          req.Query,
		History:        sess.Messages,
		PriorDocuments: sess.LastDocuments,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyQuery) ||
			errors.Is(err, pipeline.ErrInvalidHistory) {
			s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		s.logger.Error("chat failed",
			"pipeline", name,
			"error", err)
		s.respondError(w, http.StatusInternalServerError, "EXECUTION_ERROR", err.Error())
		return
	}

	// Persist the turn. A refused turn leaves the history as it was but
	// still refreshes the session TTL.
	sess.Messages = result.History
	sess.LastDocuments = result.Documents
	if err := s.sessions.Put(r.Context(), sess); err != nil {
		s.logger.Error("failed to save session",
			"session_id", sess.ID,
			"error", err)
	}

	s.respondJSON(w, http.StatusOK, buildChatResponse(result, sess.ID, req.IncludeSources))
}

// resolveSession loads the referenced session or starts a new one.
func (s *Server) resolveSession(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return session.New(), nil
	}
	return s.sessions.Get(ctx, id)
}

// buildChatResponse flattens a pipeline result into the wire format.
func buildChatResponse(result *pipeline.Result, sessionID string,
	includeSources *bool) pipeline.ChatResponse {
	resp := pipeline.ChatResponse{
		Answer:     result.Answer,
		Confidence: result.Confidence,
		SessionID:  sessionID,
		Intent:     string(result.Intent()),
		Status:     result.Status(),
	}

	if includeSources == nil || *includeSources {
		resp.Sources = result.Sources
	}

	if timings, ok := result.Metadata["timings"].(map[string]int64); ok {
		resp.Timings = timings
	}
	if tokens, ok := result.Metadata["tokens_used"].(int); ok {
		resp.TokensUsed = tokens
	}

	return resp
}

// handleIngest handles the POST /v1/pipelines/{name}/documents endpoint.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	p, err := s.pipelines.Get(name)
	if err != nil {
		if errors.Is(err, pipeline.ErrPipelineNotFound) {
			s.respondError(w, http.StatusNotFound, "PIPELINE_NOT_FOUND",
				"pipeline not found: "+name)
			return
		}
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	var req pipeline.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "NO_DOCUMENTS",
			"at least one document is required")
		return
	}

	if p == nil {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"pipeline is nil")
		return
	}

	stored, err := p.Ingest(r.Context(), req.Documents)
	if err != nil {
		s.logger.Error("ingestion failed",
			"pipeline", name,
			"error", err)
		s.respondError(w, http.StatusInternalServerError, "INGEST_ERROR", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, pipeline.IngestResponse{
		DocumentsReceived: len(req.Documents),
		ChunksStored:      stored,
	})
}

// handleGetSession handles the GET /v1/sessions/{id} endpoint.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND",
				"session not found: "+id)
			return
		}
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, SessionResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Messages:  sess.Messages,
	})
}

// handleDeleteSession handles the DELETE /v1/sessions/{id} endpoint.
// Deleting a session that does not exist is not an error.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondJSON sends a JSON response with RFC 8631 Link header for API discovery.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	// RFC 8631: Link header for API documentation discovery
	w.Header().Set("Link", `</v1/openapi.json>; rel="service-desc"`)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// respondError sends an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
