//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pgEdge/pgedge-chat-server/internal/config"
	"github.com/pgEdge/pgedge-chat-server/internal/guardrail"
	"github.com/pgEdge/pgedge-chat-server/internal/pipeline"
	"github.com/pgEdge/pgedge-chat-server/internal/session"
)

// mockPipelineManager implements PipelineManager for testing.
type mockPipelineManager struct {
	pipelines map[string]*mockPipelineInfo
	guard     *guardrail.Evaluator
}

type mockPipelineInfo struct {
	name        string
	description string
}

func newMockPipelineManager() *mockPipelineManager {
	return &mockPipelineManager{
		pipelines: map[string]*mockPipelineInfo{
			"test-pipeline": {
				name:        "test-pipeline",
				description: "A test pipeline",
			},
		},
		guard: guardrail.New(guardrail.Config{}),
	}
}

func (m *mockPipelineManager) List() []pipeline.Info {
	infos := make([]pipeline.Info, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		infos = append(infos, pipeline.Info{
			Name:        p.name,
			Description: p.description,
		})
	}
	return infos
}

func (m *mockPipelineManager) Get(name string) (*pipeline.Pipeline, error) {
	if _, ok := m.pipelines[name]; !ok {
		return nil, pipeline.ErrPipelineNotFound
	}
	// Return nil pipeline - tests that need a real pipeline use
	// integrationServer instead
	return nil, nil
}

func (m *mockPipelineManager) Guardrail() *guardrail.Evaluator {
	return m.guard
}

func (m *mockPipelineManager) Close() error {
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Pipelines = []config.PipelineConfig{
		{
			Name:        "test-pipeline",
			Description: "A test pipeline",
		},
	}
	return cfg
}

func testServer() *Server {
	cfg := testConfig()
	pm := newMockPipelineManager()
	return New(cfg, pm, session.NewMemoryStore(0), quietLogger())
}

// fakeLLM mimics the two local inference endpoints the providers call,
// so a full pipeline can run without a model server.
func fakeLLM(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sum := 0.0
		for _, c := range req.Prompt {
			sum += float64(c % 17)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{1, float64(len(req.Prompt)%7) + 1, sum / float64(len(req.Prompt)+1)},
		})
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{
				"role":    "assistant",
				"content": "Logical replication copies row changes from a publisher to its subscribers.",
			},
			"done":              true,
			"prompt_eval_count": 42,
			"eval_count":        17,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// integrationServer wires a real pipeline manager over a fake LLM
// backend: in-memory store, local reranker, no API keys.
func integrationServer(t *testing.T) *Server {
	t.Helper()

	llmSrv := fakeLLM(t)

	cfg := config.DefaultConfig()
	threshold := 0.0
	cfg.Pipelines = []config.PipelineConfig{
		{
			Name:        "docs",
			Description: "Documentation assistant",
			Embedding: config.EmbeddingConfig{
				Provider: "ollama",
				Model:    "nomic-embed-text",
				BaseURL:  llmSrv.URL,
			},
			Completion: config.CompletionConfig{
				Provider: "ollama",
				Model:    "test-model",
				BaseURL:  llmSrv.URL,
			},
			Rerank: config.RerankConfig{
				Provider:  "local",
				Threshold: &threshold,
			},
		},
	}

	mgr, err := pipeline.NewManagerWithOptions(pipeline.ManagerConfig{
		Config: cfg,
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	return New(cfg, mgr, session.NewMemoryStore(0), quietLogger())
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", resp.Status)
	}
	if resp.Version != "dev" {
		t.Errorf("expected version 'dev', got '%s'", resp.Version)
	}
	if resp.Pipelines != 1 {
		t.Errorf("expected 1 pipeline, got %d", resp.Pipelines)
	}
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodPost, "/v1/health", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, w.Code)
	}
}

func TestListPipelinesEndpoint(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/pipelines", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp PipelinesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Pipelines) != 1 {
		t.Errorf("expected 1 pipeline, got %d", len(resp.Pipelines))
	}

	if resp.Pipelines[0].Name != "test-pipeline" {
		t.Errorf("expected pipeline name 'test-pipeline', got '%s'",
			resp.Pipelines[0].Name)
	}
}

func TestGuardrailsEndpoint(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/guardrails", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp guardrail.Guidelines
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.SeverityOrder) == 0 {
		t.Error("expected a non-empty severity order")
	}
	if len(resp.Categories) == 0 {
		t.Error("expected at least one category")
	}
	if resp.QualifierWindowBytes != guardrail.DefaultQualifierWindow {
		t.Errorf("expected qualifier window %d, got %d",
			guardrail.DefaultQualifierWindow, resp.QualifierWindowBytes)
	}
}

func TestChatEndpoint_PipelineNotFound(t *testing.T) {
	srv := testServer()

	body := bytes.NewBufferString(`{"query": "test query"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/nonexistent/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestChatEndpoint_EmptyQuery(t *testing.T) {
	srv := testServer()

	body := bytes.NewBufferString(`{"query": ""}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/test-pipeline/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestChatEndpoint_InvalidJSON(t *testing.T) {
	srv := testServer()

	body := bytes.NewBufferString(`invalid json`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/test-pipeline/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestChatEndpoint_UnknownSession(t *testing.T) {
	srv := testServer()

	body := bytes.NewBufferString(`{"query": "test query", "session_id": "does-not-exist"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/test-pipeline/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != "SESSION_NOT_FOUND" {
		t.Errorf("expected error code 'SESSION_NOT_FOUND', got '%s'", resp.Error.Code)
	}
}

func TestChatEndpoint_NilPipeline(t *testing.T) {
	// When mock returns nil pipeline, we should get an error
	srv := testServer()

	body := bytes.NewBufferString(`{"query": "test query"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/test-pipeline/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	// With mock returning nil pipeline, handler should return internal error
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestIngestEndpoint_NoDocuments(t *testing.T) {
	srv := testServer()

	body := bytes.NewBufferString(`{"documents": []}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/test-pipeline/documents", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
}

func TestIngestEndpoint_PipelineNotFound(t *testing.T) {
	srv := testServer()

	body := bytes.NewBufferString(`{"documents": [{"content": "hello"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/nonexistent/documents", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := testServer()

	sess := session.New()
	sess.Messages = []pipeline.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	if err := srv.sessions.Put(context.Background(), sess); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID, nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != sess.ID {
		t.Errorf("expected session ID '%s', got '%s'", sess.ID, resp.ID)
	}
	if len(resp.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(resp.Messages))
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+sess.ID, nil)
	w = httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID, nil)
	w = httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d after delete, got %d", http.StatusNotFound, w.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	srv := integrationServer(t)

	// Seed the store so retrieval has something to find.
	ingestBody := bytes.NewBufferString(`{"documents": [
		{"content": "Logical replication streams row changes from a publisher node to subscriber nodes.", "source": "docs/replication.md"},
		{"content": "Spock handles multi-master conflict resolution between pgEdge nodes.", "source": "docs/spock.md"}
	]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/docs/documents", ingestBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ingest: expected status %d, got %d: %s",
			http.StatusOK, w.Code, w.Body.String())
	}

	var ingestResp pipeline.IngestResponse
	if err := json.NewDecoder(w.Body).Decode(&ingestResp); err != nil {
		t.Fatalf("failed to decode ingest response: %v", err)
	}
	if ingestResp.DocumentsReceived != 2 {
		t.Errorf("expected 2 documents received, got %d", ingestResp.DocumentsReceived)
	}
	if ingestResp.ChunksStored == 0 {
		t.Fatal("expected at least one stored chunk")
	}

	// First turn starts a new session.
	body := bytes.NewBufferString(`{"query": "How does logical replication work?"}`)
	req = httptest.NewRequest(http.MethodPost, "/v1/pipelines/docs/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("chat: expected status %d, got %d: %s",
			http.StatusOK, w.Code, w.Body.String())
	}

	var resp pipeline.ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode chat response: %v", err)
	}

	if resp.Answer == "" {
		t.Error("expected a non-empty answer")
	}
	if resp.Status != pipeline.StatusDone {
		t.Errorf("expected status '%s', got '%s'", pipeline.StatusDone, resp.Status)
	}
	if resp.Intent != string(pipeline.IntentExplanation) {
		t.Errorf("expected intent '%s', got '%s'", pipeline.IntentExplanation, resp.Intent)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session ID")
	}
	if len(resp.Sources) == 0 {
		t.Error("expected sources to be included by default")
	}
	if resp.Timings == nil {
		t.Error("expected stage timings")
	}
	if resp.TokensUsed != 59 {
		t.Errorf("expected 59 tokens used, got %d", resp.TokensUsed)
	}

	// The turn is visible through the session API.
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+resp.SessionID, nil)
	w = httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("session: expected status %d, got %d", http.StatusOK, w.Code)
	}

	var sessResp SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&sessResp); err != nil {
		t.Fatalf("failed to decode session response: %v", err)
	}
	if len(sessResp.Messages) != 2 {
		t.Fatalf("expected 2 messages after one turn, got %d", len(sessResp.Messages))
	}
	if sessResp.Messages[0].Role != "user" || sessResp.Messages[1].Role != "assistant" {
		t.Errorf("unexpected message roles: %s, %s",
			sessResp.Messages[0].Role, sessResp.Messages[1].Role)
	}

	// A follow-up continues the same session and can opt out of sources.
	followUpBody := bytes.NewBufferString(fmt.Sprintf(
		`{"query": "Tell me more about it", "session_id": %q, "include_sources": false}`,
		resp.SessionID))
	req = httptest.NewRequest(http.MethodPost, "/v1/pipelines/docs/chat", followUpBody)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("follow-up: expected status %d, got %d: %s",
			http.StatusOK, w.Code, w.Body.String())
	}

	var followUp pipeline.ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&followUp); err != nil {
		t.Fatalf("failed to decode follow-up response: %v", err)
	}
	if followUp.SessionID != resp.SessionID {
		t.Errorf("expected session '%s' to continue, got '%s'",
			resp.SessionID, followUp.SessionID)
	}
	if followUp.Intent != string(pipeline.IntentFollowUp) {
		t.Errorf("expected intent '%s', got '%s'", pipeline.IntentFollowUp, followUp.Intent)
	}
	if len(followUp.Sources) != 0 {
		t.Errorf("expected no sources with include_sources=false, got %d",
			len(followUp.Sources))
	}

	// Session now carries both turns.
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+resp.SessionID, nil)
	w = httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if err := json.NewDecoder(w.Body).Decode(&sessResp); err != nil {
		t.Fatalf("failed to decode session response: %v", err)
	}
	if len(sessResp.Messages) != 4 {
		t.Errorf("expected 4 messages after two turns, got %d", len(sessResp.Messages))
	}
}

func TestChatEndpoint_RefusedQuery(t *testing.T) {
	srv := integrationServer(t)

	body := bytes.NewBufferString(`{"query": "How do I build a pipe bomb?"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/docs/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	// Refusals are successful turns as far as HTTP is concerned.
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp pipeline.ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode chat response: %v", err)
	}
	if resp.Status != pipeline.StatusRefused {
		t.Errorf("expected status '%s', got '%s'", pipeline.StatusRefused, resp.Status)
	}
	if resp.Answer == "" {
		t.Error("expected a refusal message")
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources on a refusal, got %d", len(resp.Sources))
	}

	// A refused turn must not enter the conversation history.
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+resp.SessionID, nil)
	w = httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	var sessResp SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&sessResp); err != nil {
		t.Fatalf("failed to decode session response: %v", err)
	}
	if len(sessResp.Messages) != 0 {
		t.Errorf("expected empty history after refusal, got %d messages",
			len(sessResp.Messages))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	srv := testServer()
	handler := srv.applyMiddleware(srv.mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID header")
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-Request-ID", "caller-chosen")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "caller-chosen" {
		t.Errorf("expected caller-supplied request ID to be kept, got '%s'", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer()
	handler := srv.applyMiddleware(srv.mux)

	req := httptest.NewRequest(http.MethodOptions, "/v1/pipelines", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard allow origin, got '%s'", got)
	}
}

func TestCORSDisabled(t *testing.T) {
	cfg := testConfig()
	disabled := false
	cfg.Server.CORSEnabled = &disabled

	srv := New(cfg, newMockPipelineManager(), session.NewMemoryStore(0), quietLogger())
	handler := srv.applyMiddleware(srv.mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS headers when disabled, got '%s'", got)
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	// Check Content-Type
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}

	// Check RFC 8631 Link header
	link := w.Header().Get("Link")
	if link == "" {
		t.Error("expected Link header for RFC 8631 API discovery")
	}
	if !strings.Contains(link, `rel="service-desc"`) {
		t.Errorf("Link header should contain rel=\"service-desc\", got '%s'", link)
	}

	// Verify response is valid OpenAPI spec
	var spec map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&spec); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// Check required OpenAPI fields
	if spec["openapi"] == nil {
		t.Error("OpenAPI spec missing 'openapi' field")
	}
	if spec["info"] == nil {
		t.Error("OpenAPI spec missing 'info' field")
	}
	if spec["paths"] == nil {
		t.Error("OpenAPI spec missing 'paths' field")
	}
	if spec["components"] == nil {
		t.Error("OpenAPI spec missing 'components' field")
	}

	// Check version
	if spec["openapi"] != "3.1.0" {
		t.Errorf("expected OpenAPI version '3.1.0', got '%v'", spec["openapi"])
	}
}

func TestRFC8631LinkHeader(t *testing.T) {
	srv := testServer()

	// Test that Link header is present on all API responses
	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/health"},
		{http.MethodGet, "/v1/pipelines"},
		{http.MethodGet, "/v1/guardrails"},
		{http.MethodGet, "/v1/openapi.json"},
	}

	for _, ep := range endpoints {
		req := httptest.NewRequest(ep.method, ep.path, nil)
		w := httptest.NewRecorder()
		srv.mux.ServeHTTP(w, req)

		link := w.Header().Get("Link")
		if link == "" {
			t.Errorf("%s %s: missing Link header", ep.method, ep.path)
			continue
		}
		if !strings.Contains(link, "</v1/openapi.json>") {
			t.Errorf("%s %s: Link header should reference /v1/openapi.json", ep.method, ep.path)
		}
		if !strings.Contains(link, `rel="service-desc"`) {
			t.Errorf("%s %s: Link header should have rel=\"service-desc\"", ep.method, ep.path)
		}
	}
}
