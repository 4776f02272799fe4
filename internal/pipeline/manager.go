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
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pgEdge/pgedge-chat-server/internal/config"
	"github.com/pgEdge/pgedge-chat-server/internal/guardrail"
	"github.com/pgEdge/pgedge-chat-server/internal/ingest"
	"github.com/pgEdge/pgedge-chat-server/internal/llm"
	"github.com/pgEdge/pgedge-chat-server/internal/llm/factory"
	"github.com/pgEdge/pgedge-chat-server/internal/vectorstore"
)

// ErrPipelineNotFound is returned when a requested pipeline does not exist.
var ErrPipelineNotFound = errors.New("pipeline not found")

// Manager manages the lifecycle of chat pipelines. All pipelines share
// one guardrail evaluator; everything else is per pipeline.
type Manager struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
	config    *config.Config
	guard     *guardrail.Evaluator
	logger    *slog.Logger
}

// Pipeline represents a configured chat pipeline with all providers
// initialized.
type Pipeline struct {
	name         string
	description  string
	config       config.PipelineConfig
	store        vectorstore.Store
	reranker     llm.RerankProvider
	completion   llm.CompletionProvider
	orchestrator *Orchestrator
	ingestor     *ingest.Ingestor
	logger       *slog.Logger
}

// ManagerConfig contains configuration for creating a Manager.
type ManagerConfig struct {
	Config *config.Config

	// Guardrail is the shared evaluator. When nil, one is built from
	// Config.Guardrail with audit events going to the log.
	Guardrail *guardrail.Evaluator

	Logger *slog.Logger
}

// NewManager creates a new pipeline manager from configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	return NewManagerWithOptions(ManagerConfig{
		Config: cfg,
		Logger: slog.Default(),
	})
}

// NewManagerWithOptions creates a new pipeline manager with a custom
// guardrail evaluator and logger.
func NewManagerWithOptions(cfg ManagerConfig) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	guard := cfg.Guardrail
	if guard == nil {
		guard = NewGuardrailEvaluator(cfg.Config.Guardrail, nil, logger)
	}

	m := &Manager{
		pipelines: make(map[string]*Pipeline),
		config:    cfg.Config,
		guard:     guard,
		logger:    logger,
	}

	// Load API keys from config file paths, environment variables, or defaults
	keyLoader := config.NewAPIKeyLoader(cfg.Config.APIKeys)
	apiKeys, err := keyLoader.LoadRequiredKeys(cfg.Config.Pipelines)
	if err != nil {
		return nil, fmt.Errorf("failed to load API keys: %w", err)
	}

	// Create pipelines from configuration
	ctx := context.Background()
	for _, pCfg := range cfg.Config.Pipelines {
		p, err := m.createPipeline(ctx, pCfg, apiKeys)
		if err != nil {
			// Clean up any already created pipelines
			for _, existing := range m.pipelines {
				existing.Close()
			}
			return nil, fmt.Errorf("failed to create pipeline %s: %w", pCfg.Name, err)
		}
		m.pipelines[pCfg.Name] = p
		logger.Info("pipeline created",
			"name", pCfg.Name,
			"store", pCfg.Store.Type,
			"embedding_provider", pCfg.Embedding.Provider,
			"completion_provider", pCfg.Completion.Provider,
			"rerank_provider", pCfg.Rerank.Provider,
		)
	}

	return m, nil
}

// NewGuardrailEvaluator builds a guardrail evaluator from configuration.
// A nil sink sends audit events to the logger.
func NewGuardrailEvaluator(
	gcfg config.GuardrailConfig,
	sink guardrail.Sink,
	logger *slog.Logger,
) *guardrail.Evaluator {
	extraTerms := make(map[guardrail.Category][]string, len(gcfg.ExtraTerms))
	for cat, terms := range gcfg.ExtraTerms {
		extraTerms[guardrail.Category(cat)] = terms
	}

	disabled := make([]guardrail.Category, 0, len(gcfg.DisabledCategories))
	for _, cat := range gcfg.DisabledCategories {
		disabled = append(disabled, guardrail.Category(cat))
	}

	return guardrail.New(guardrail.Config{
		ExtraTerms:         extraTerms,
		ExtraQualifiers:    gcfg.ExtraQualifiers,
		DisabledCategories: disabled,
		QualifierWindow:    gcfg.QualifierWindow,
		Sink:               sink,
		Logger:             logger,
	})
}

// createPipeline creates a single pipeline with all providers initialized.
func (m *Manager) createPipeline(
	ctx context.Context,
	pCfg config.PipelineConfig,
	apiKeys *config.LoadedKeys,
) (*Pipeline, error) {
	pipelineLogger := m.logger.With("pipeline", pCfg.Name)

	// Create embedding provider, cached when enabled
	embedder, err := factory.NewEmbeddingProvider(pCfg.Embedding, apiKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	if pCfg.Cache.IsEnabled() {
		embedder = llm.NewCachedEmbeddingProvider(embedder, pCfg.Cache.TTL())
	}

	// Create document store
	store, err := m.createStore(ctx, pCfg.Store, embedder, pipelineLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create document store: %w", err)
	}

	// Create completion provider, wrapped with retry
	completer, err := factory.NewCompletionProvider(pCfg.Completion, apiKeys)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create completion provider: %w", err)
	}
	completion := llm.NewRetryCompletionProvider(completer, llm.RetryConfig{
		MaxAttempts:     pCfg.Retry.MaxAttempts,
		InitialInterval: time.Duration(pCfg.Retry.InitialIntervalMS) * time.Millisecond,
		MaxInterval:     time.Duration(pCfg.Retry.MaxIntervalMS) * time.Millisecond,
	}, pipelineLogger)

	// Create rerank provider
	reranker, err := factory.NewRerankProvider(pCfg.Rerank, apiKeys)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create rerank provider: %w", err)
	}

	// Create orchestrator
	orchestrator, err := NewOrchestrator(OrchestratorConfig{
		Guardrail:       m.guard,
		Retriever:       storeRetriever{store: store},
		Reranker:        reranker,
		Completion:      completion,
		TopK:            pCfg.TopK,
		TopN:            pCfg.Rerank.TopN,
		RerankThreshold: pCfg.Rerank.Threshold,
		TokenBudget:     pCfg.TokenBudget,
		HistoryLimit:    pCfg.HistoryLimit,
		HistoryWindow:   m.config.Defaults.HistoryWindow,
		MaxTokens:       pCfg.Completion.MaxTokens,
		Temperature:     pCfg.Completion.Temperature,
		SystemPrompt:    pCfg.SystemPrompt,

		RetrievalTimeout:  time.Duration(m.config.Defaults.RetrievalTimeoutSeconds) * time.Second,
		RerankTimeout:     time.Duration(m.config.Defaults.RerankTimeoutSeconds) * time.Second,
		GenerationTimeout: time.Duration(m.config.Defaults.GenerationTimeoutSeconds) * time.Second,

		Logger: pipelineLogger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	return &Pipeline{
		name:         pCfg.Name,
		description:  pCfg.Description,
		config:       pCfg,
		store:        store,
		reranker:     reranker,
		completion:   completion,
		orchestrator: orchestrator,
		ingestor:     ingest.NewIngestor(store, nil, pipelineLogger),
		logger:       pipelineLogger,
	}, nil
}

// createStore builds the document store for a pipeline.
func (m *Manager) createStore(
	ctx context.Context,
	sCfg config.StoreConfig,
	embedder llm.EmbeddingProvider,
	logger *slog.Logger,
) (vectorstore.Store, error) {
	switch sCfg.Type {
	case "", "memory":
		return vectorstore.NewMemory(embedder), nil
	case "postgres":
		return vectorstore.NewPostgres(ctx, sCfg, embedder, logger)
	default:
		return nil, fmt.Errorf("unknown store type: %s", sCfg.Type)
	}
}

// storeRetriever adapts a vectorstore.Store to the Retriever interface.
type storeRetriever struct {
	store vectorstore.Store
}

func (r storeRetriever) Search(ctx context.Context, query string, k int) ([]Document, error) {
	matches, err := r.store.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(matches))
	for i, match := range matches {
		docs[i] = Document{
			ID:      match.ID,
			Source:  match.Source,
			Content: match.Content,
			Score:   match.Score,
		}
	}
	return docs, nil
}

// List returns information about all available pipelines, sorted by name.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

// Get retrieves a pipeline by name.
func (m *Manager) Get(name string) (*Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pipelines[name]
	if !ok {
		return nil, ErrPipelineNotFound
	}

	return p, nil
}

// Guardrail returns the shared guardrail evaluator.
func (m *Manager) Guardrail() *guardrail.Evaluator {
	return m.guard
}

// Close shuts down the manager and releases resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pipelines {
		p.Close()
	}
	m.pipelines = nil

	return nil
}

// Ask runs one chat turn on the pipeline.
func (p *Pipeline) Ask(ctx context.Context, req AskRequest) (*Result, error) {
	return p.orchestrator.Ask(ctx, req)
}

// Ingest splits and stores documents, returning the number of chunks
// written.
func (p *Pipeline) Ingest(ctx context.Context, docs []IngestDocument) (int, error) {
	converted := make([]vectorstore.Document, len(docs))
	for i, d := range docs {
		converted[i] = vectorstore.Document{
			ID:      d.ID,
			Source:  d.Source,
			Content: d.Content,
		}
	}
	return p.ingestor.Ingest(ctx, converted)
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Description returns the pipeline description.
func (p *Pipeline) Description() string {
	return p.description
}

// Info returns the pipeline's public description.
func (p *Pipeline) Info() Info {
	storeType := p.config.Store.Type
	if storeType == "" {
		storeType = "memory"
	}
	return Info{
		Name:        p.name,
		Description: p.description,
		Store:       storeType,
		Completion:  p.completion.ModelName(),
		Rerank:      p.reranker.ModelName(),
	}
}

// Close releases resources associated with the pipeline.
func (p *Pipeline) Close() {
	if p.store != nil {
		p.store.Close()
	}
}
