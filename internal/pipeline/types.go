//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline provides the staged chat pipeline and its
// lifecycle management.
package pipeline

// Info contains basic pipeline information for listing.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Store       string `json:"store"`
	Completion  string `json:"completion_model"`
	Rerank      string `json:"rerank_model"`
}

// Message represents a message in the conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest represents a chat request against a pipeline.
type ChatRequest struct {
	Query          string `json:"query"`
	SessionID      string `json:"session_id,omitempty"`
	IncludeSources *bool  `json:"include_sources,omitempty"` // default: true
}

// ChatResponse represents a completed chat turn.
type ChatResponse struct {
	Answer     string           `json:"answer"`
	Sources    []string         `json:"sources,omitempty"`
	Confidence float64          `json:"confidence"`
	SessionID  string           `json:"session_id,omitempty"`
	Intent     string           `json:"intent"`
	Status     string           `json:"status"`
	Timings    map[string]int64 `json:"timings,omitempty"`
	TokensUsed int              `json:"tokens_used,omitempty"`
}

// IngestRequest represents a document ingestion request.
type IngestRequest struct {
	Documents []IngestDocument `json:"documents"`
}

// IngestDocument is one document submitted for ingestion.
type IngestDocument struct {
	ID      string `json:"id,omitempty"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content"`
}

// IngestResponse reports how much of an ingestion request was stored.
type IngestResponse struct {
	DocumentsReceived int `json:"documents_received"`
	ChunksStored      int `json:"chunks_stored"`
}
