//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-chat-server/internal/vectorstore"
)

// Ingestor chunks documents and adds them to a vector store.
type Ingestor struct {
	store    vectorstore.Store
	splitter *Splitter
	logger   *slog.Logger
}

// NewIngestor creates an ingestor. A nil splitter uses the default
// chunking parameters.
func NewIngestor(store vectorstore.Store, splitter *Splitter, logger *slog.Logger) *Ingestor {
	if splitter == nil {
		splitter = NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:    store,
		splitter: splitter,
		logger:   logger,
	}
}

// Ingest splits the documents into chunks and stores them. It returns
// the number of chunks stored. Documents with blank content are
// skipped. A document that fits in one chunk keeps its caller-supplied
// ID; chunks of a split document get fresh IDs, with the source field
// carrying provenance.
func (ing *Ingestor) Ingest(ctx context.Context, docs []vectorstore.Document) (int, error) {
	chunks := make([]vectorstore.Document, 0, len(docs))

	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}

		parts := ing.splitter.Split(d.Content)
		if len(parts) == 1 {
			id := d.ID
			if id == "" {
				id = uuid.NewString()
			}
			chunks = append(chunks, vectorstore.Document{
				ID:      id,
				Source:  d.Source,
				Content: parts[0],
			})
			continue
		}

		for _, p := range parts {
			chunks = append(chunks, vectorstore.Document{
				ID:      uuid.NewString(),
				Source:  d.Source,
				Content: p,
			})
		}
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	if err := ing.store.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	ing.logger.Info("documents ingested",
		"documents", len(docs),
		"chunks", len(chunks),
	)
	return len(chunks), nil
}
