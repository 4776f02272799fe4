//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/pgEdge/pgedge-chat-server/internal/config"
	"github.com/pgEdge/pgedge-chat-server/internal/llm"
)

// Postgres stores documents in a PostgreSQL table with a pgvector
// column. Table and column names come from configuration and are
// sanitized before interpolation; values are always bound parameters.
type Postgres struct {
	pool     *pgxpool.Pool
	cfg      config.StoreConfig
	embedder llm.EmbeddingProvider
	logger   *slog.Logger
}

// NewPostgres connects to the configured database and verifies the
// connection.
func NewPostgres(
	ctx context.Context,
	cfg config.StoreConfig,
	embedder llm.EmbeddingProvider,
	logger *slog.Logger,
) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connStr := buildConnectionString(cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to document store",
		"host", cfg.Database.Host,
		"database", cfg.Database.Name,
		"table", cfg.Table,
	)

	return &Postgres{
		pool:     pool,
		cfg:      cfg,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// buildConnectionString constructs a PostgreSQL connection string.
func buildConnectionString(cfg config.DatabaseConfig) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("host=%s", cfg.Host))
	parts = append(parts, fmt.Sprintf("port=%d", cfg.Port))
	parts = append(parts, fmt.Sprintf("dbname=%s", cfg.Name))

	// Username: config > PGUSER > USER
	username := cfg.Username
	if username == "" {
		username = os.Getenv("PGUSER")
	}
	if username == "" {
		username = os.Getenv("USER")
	}
	if username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", username))
	}

	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}

	if cfg.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
	}

	return strings.Join(parts, " ")
}

// parseTableIdentifier splits a table name into schema and table parts.
// Supports formats: "table", "schema.table"
func parseTableIdentifier(table string) pgx.Identifier {
	parts := strings.Split(table, ".")
	return pgx.Identifier(parts)
}

// Add embeds docs in one batch and upserts them by ID.
func (s *Postgres) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding count mismatch: got %d for %d documents", len(embeddings), len(docs))
	}

	query := buildUpsertQuery(s.cfg)

	batch := &pgx.Batch{}
	for i, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		batch.Queue(query, d.ID, d.Source, d.Content, pgvector.NewVector(embeddings[i]))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}
	}
	return nil
}

// Search embeds the query and runs a cosine similarity search.
func (s *Postgres) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := s.pool.Query(ctx, buildSearchQuery(s.cfg), pgvector.NewVector(queryEmbedding), k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Source, &m.Content, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		m.Score = clamp01(m.Score)
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return matches, nil
}

// buildSearchQuery renders the similarity search SQL with sanitized
// identifiers. The <=> operator is cosine distance, so similarity is
// 1 - distance.
func buildSearchQuery(cfg config.StoreConfig) string {
	return fmt.Sprintf(`
		SELECT
			%s::text AS id,
			COALESCE(%s, '') AS source,
			%s AS content,
			1 - (%s <=> $1) AS score
		FROM %s
		ORDER BY %s <=> $1
		LIMIT $2`,
		pgx.Identifier{cfg.IDColumn}.Sanitize(),
		pgx.Identifier{cfg.SourceColumn}.Sanitize(),
		pgx.Identifier{cfg.ContentColumn}.Sanitize(),
		pgx.Identifier{cfg.VectorColumn}.Sanitize(),
		parseTableIdentifier(cfg.Table).Sanitize(),
		pgx.Identifier{cfg.VectorColumn}.Sanitize(),
	)
}

// buildUpsertQuery renders the document upsert SQL with sanitized
// identifiers.
func buildUpsertQuery(cfg config.StoreConfig) string {
	return fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s`,
		parseTableIdentifier(cfg.Table).Sanitize(),
		pgx.Identifier{cfg.IDColumn}.Sanitize(),
		pgx.Identifier{cfg.SourceColumn}.Sanitize(),
		pgx.Identifier{cfg.ContentColumn}.Sanitize(),
		pgx.Identifier{cfg.VectorColumn}.Sanitize(),
		pgx.Identifier{cfg.IDColumn}.Sanitize(),
		pgx.Identifier{cfg.SourceColumn}.Sanitize(),
		pgx.Identifier{cfg.SourceColumn}.Sanitize(),
		pgx.Identifier{cfg.ContentColumn}.Sanitize(),
		pgx.Identifier{cfg.ContentColumn}.Sanitize(),
		pgx.Identifier{cfg.VectorColumn}.Sanitize(),
		pgx.Identifier{cfg.VectorColumn}.Sanitize(),
	)
}

// Count reports the number of stored documents.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT count(*) FROM %s", parseTableIdentifier(s.cfg.Table).Sanitize())

	var count int
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ensure Postgres implements the interface.
var _ Store = (*Postgres)(nil)
