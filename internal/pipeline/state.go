//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
)

// Sentinel errors returned by Ask for malformed input. Every other
// failure is contained inside the stage that caused it.
var (
	ErrEmptyQuery     = errors.New("query is empty")
	ErrInvalidHistory = errors.New("history message has empty role or content")
)

// Terminal pipeline statuses recorded in Result.Metadata["status"].
const (
	StatusDone      = "done"
	StatusRefused   = "refused"
	StatusSanitized = "sanitized"
)

// Document is a unit of retrievable content flowing through the pipeline.
type Document struct {
	ID      string  `json:"id,omitempty"`
	Source  string  `json:"source,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Retriever finds the k most relevant documents for a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// AskRequest carries one user turn into the pipeline. PriorDocuments
// are the documents used for the previous answer in this conversation;
// follow-up questions reuse them instead of retrieving again.
type AskRequest struct {
	Query          string
	History        []Message
	PriorDocuments []Document
}

// Result is the outcome of a pipeline run. History includes the new
// user/assistant turn unless the run was refused or sanitized.
// Documents holds the reranked set so callers can offer it back as
// PriorDocuments on the next turn.
type Result struct {
	Answer     string         `json:"answer"`
	Sources    []string       `json:"sources,omitempty"`
	Confidence float64        `json:"confidence"`
	History    []Message      `json:"-"`
	Documents  []Document     `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Intent returns the classified intent recorded in Metadata, or
// IntentUnknown if the run ended before classification.
func (r *Result) Intent() Intent {
	if s, ok := r.Metadata["intent"].(string); ok {
		return Intent(s)
	}
	return IntentUnknown
}

// Status returns the terminal status recorded in Metadata.
func (r *Result) Status() string {
	if s, ok := r.Metadata["status"].(string); ok {
		return s
	}
	return ""
}

// state carries one invocation through the stages. It is created per
// Ask call and never shared, which keeps the orchestrator safe for
// concurrent use.
type state struct {
	query      string
	intent     Intent
	history    []Message
	prior      []Document
	retrieved  []Document
	reranked   []Document
	answer     string
	sources    []string
	confidence float64
	metadata   map[string]any
}
