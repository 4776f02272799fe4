//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package vectorstore provides document storage with embedding-based
// similarity search, in memory or on PostgreSQL with pgvector.
package vectorstore

import (
	"context"
)

// Document is one unit of retrievable content.
type Document struct {
	// ID uniquely identifies the document within a store. Empty IDs are
	// assigned on Add.
	ID string

	// Source names where the content came from (file, URL, title).
	Source string

	// Content is the document text.
	Content string
}

// Match pairs a document with its similarity score in [0,1].
type Match struct {
	Document
	Score float64
}

// Store persists documents and serves similarity search.
type Store interface {
	// Add embeds and stores documents. Existing IDs are overwritten.
	Add(ctx context.Context, docs []Document) error

	// Search returns up to k documents most similar to query, scores
	// descending.
	Search(ctx context.Context, query string, k int) ([]Match, error)

	// Count reports the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases the store's resources.
	Close()
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
