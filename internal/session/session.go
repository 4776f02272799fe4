//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package session stores per-conversation state between chat turns.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-chat-server/internal/pipeline"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session survives before eviction.
const DefaultTTL = time.Hour

// Session holds one conversation: its message history and the
// documents behind the most recent answer, which follow-up questions
// reuse without another retrieval round trip.
type Session struct {
	ID            string              `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Messages      []pipeline.Message  `json:"messages"`
	LastDocuments []pipeline.Document `json:"last_documents,omitempty"`
}

// New creates an empty session with a fresh ID.
func New() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// clone returns a deep enough copy that callers and the store never
// share message or document slices.
func (s *Session) clone() *Session {
	c := *s
	c.Messages = append([]pipeline.Message(nil), s.Messages...)
	c.LastDocuments = append([]pipeline.Document(nil), s.LastDocuments...)
	return &c
}

// Store persists sessions between chat turns.
type Store interface {
	// Get returns the session with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Put saves a session, stamping UpdatedAt.
	Put(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an
	// error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all live sessions.
	List(ctx context.Context) ([]string, error)
}
