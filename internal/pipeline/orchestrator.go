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
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-chat-server/internal/guardrail"
	"github.com/pgEdge/pgedge-chat-server/internal/llm"
)

// Default values for orchestrator tuning.
const (
	DefaultTopK            = 10
	DefaultTopN            = 5
	DefaultRerankThreshold = 0.5
	DefaultTokenBudget     = 4000
	DefaultHistoryLimit    = 50
	DefaultHistoryWindow   = 6

	DefaultRetrievalTimeout  = 10 * time.Second
	DefaultRerankTimeout     = 10 * time.Second
	DefaultGenerationTimeout = 60 * time.Second
)

// Orchestrator runs the staged chat pipeline: guard the query, classify
// intent, retrieve, rerank, generate, guard the response, update
// memory. Collaborator failures degrade the answer instead of failing
// the run; only the two guard stages can end a run early.
type Orchestrator struct {
	guard      *guardrail.Evaluator
	retriever  Retriever
	reranker   llm.RerankProvider
	completion llm.CompletionProvider

	topK            int
	topN            int
	rerankThreshold float64
	tokenBudget     int
	historyLimit    int
	historyWindow   int
	maxTokens       int
	temperature     float64
	systemPrompt    string

	retrievalTimeout  time.Duration
	rerankTimeout     time.Duration
	generationTimeout time.Duration

	logger *slog.Logger
}

// OrchestratorConfig contains the collaborators and tuning for an
// orchestrator. Guardrail, Retriever, Reranker, and Completion are
// required; zero-valued tuning fields fall back to the defaults.
type OrchestratorConfig struct {
	Guardrail  *guardrail.Evaluator
	Retriever  Retriever
	Reranker   llm.RerankProvider
	Completion llm.CompletionProvider

	TopK            int
	TopN            int
	RerankThreshold *float64 // Minimum score to keep a document (default: 0.5)
	TokenBudget     int
	HistoryLimit    int
	HistoryWindow   int
	MaxTokens       int
	Temperature     *float64 // Sampling temperature (default: 0.7)
	SystemPrompt    string

	RetrievalTimeout  time.Duration
	RerankTimeout     time.Duration
	GenerationTimeout time.Duration

	Logger *slog.Logger
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Guardrail == nil {
		return nil, fmt.Errorf("guardrail evaluator is required")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if cfg.Reranker == nil {
		return nil, fmt.Errorf("reranker is required")
	}
	if cfg.Completion == nil {
		return nil, fmt.Errorf("completion provider is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		guard:             cfg.Guardrail,
		retriever:         cfg.Retriever,
		reranker:          cfg.Reranker,
		completion:        cfg.Completion,
		topK:              cfg.TopK,
		topN:              cfg.TopN,
		rerankThreshold:   DefaultRerankThreshold,
		tokenBudget:       cfg.TokenBudget,
		historyLimit:      cfg.HistoryLimit,
		historyWindow:     cfg.HistoryWindow,
		maxTokens:         cfg.MaxTokens,
		temperature:       0.7,
		systemPrompt:      cfg.SystemPrompt,
		retrievalTimeout:  cfg.RetrievalTimeout,
		rerankTimeout:     cfg.RerankTimeout,
		generationTimeout: cfg.GenerationTimeout,
		logger:            logger,
	}

	if cfg.RerankThreshold != nil {
		o.rerankThreshold = *cfg.RerankThreshold
	}
	if cfg.Temperature != nil {
		o.temperature = *cfg.Temperature
	}
	if o.topK <= 0 {
		o.topK = DefaultTopK
	}
	if o.topN <= 0 {
		o.topN = DefaultTopN
	}
	if o.tokenBudget <= 0 {
		o.tokenBudget = DefaultTokenBudget
	}
	if o.historyLimit <= 0 {
		o.historyLimit = DefaultHistoryLimit
	}
	if o.historyWindow <= 0 {
		o.historyWindow = DefaultHistoryWindow
	}
	if o.retrievalTimeout <= 0 {
		o.retrievalTimeout = DefaultRetrievalTimeout
	}
	if o.rerankTimeout <= 0 {
		o.rerankTimeout = DefaultRerankTimeout
	}
	if o.generationTimeout <= 0 {
		o.generationTimeout = DefaultGenerationTimeout
	}

	return o, nil
}

// stageStatus tells the runner whether to keep going after a stage.
type stageStatus int

const (
	stageContinue stageStatus = iota
	stageHalt
)

// stage is one named step of the pipeline. The returned error is for
// logging only; the stage has already applied its fallback by the time
// it returns.
type stage struct {
	name string
	run  func(ctx context.Context, st *state) (stageStatus, error)
}

// Ask runs the full pipeline for one user turn. It returns an error
// only for malformed input; collaborator failures are absorbed by the
// stages and reported through Result.Metadata.
func (o *Orchestrator) Ask(ctx context.Context, req AskRequest) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	for _, m := range req.History {
		if m.Role == "" || m.Content == "" {
			return nil, ErrInvalidHistory
		}
	}

	st := &state{
		query:    query,
		intent:   IntentUnknown,
		history:  append([]Message(nil), req.History...),
		prior:    req.PriorDocuments,
		metadata: make(map[string]any),
	}

	stages := []stage{
		{"guard_query", o.guardQuery},
		{"classify_intent", o.classifyIntent},
		{"retrieve", o.retrieve},
		{"rerank", o.rerank},
		{"generate", o.generate},
		{"guard_response", o.guardResponse},
		{"update_memory", o.updateMemory},
	}

	start := time.Now()
	timings := make(map[string]int64, len(stages))
	for _, sg := range stages {
		stageStart := time.Now()
		status := o.runStage(ctx, sg, st)
		timings[sg.name] = time.Since(stageStart).Milliseconds()
		if status == stageHalt {
			break
		}
	}
	st.metadata["timings"] = timings

	// A run that made it past the guards always carries an answer,
	// even when every collaborator failed.
	if st.answer == "" {
		st.answer = generationFallback
		st.confidence = 0
	}
	if _, ok := st.metadata["status"]; !ok {
		st.metadata["status"] = StatusDone
	}

	o.logger.Info("pipeline complete",
		"status", st.metadata["status"],
		"intent", st.intent,
		"confidence", st.confidence,
		"sources", len(st.sources),
		"elapsed", time.Since(start),
	)

	return &Result{
		Answer:     st.answer,
		Sources:    st.sources,
		Confidence: st.confidence,
		History:    st.history,
		Documents:  st.reranked,
		Metadata:   st.metadata,
	}, nil
}

// runStage executes one stage with timing, logging, and panic
// containment. A panicking stage is treated as a failed stage: the
// pipeline keeps going and downstream fallbacks apply.
func (o *Orchestrator) runStage(ctx context.Context, sg stage, st *state) (status stageStatus) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			st.metadata[sg.name+"_failed"] = true
			o.logger.Error("stage panicked",
				"stage", sg.name,
				"elapsed", time.Since(start),
				"panic", r,
			)
			status = stageContinue
		}
	}()

	status, err := sg.run(ctx, st)
	if err != nil {
		o.logger.Warn("stage degraded",
			"stage", sg.name,
			"elapsed", time.Since(start),
			"ok", false,
			"error", err,
		)
		return status
	}

	o.logger.Debug("stage complete",
		"stage", sg.name,
		"elapsed", time.Since(start),
		"ok", true,
	)
	return status
}

// guardQuery refuses unsafe queries before any collaborator runs.
func (o *Orchestrator) guardQuery(_ context.Context, st *state) (stageStatus, error) {
	verdict := o.guard.Evaluate(st.query, guardrail.DirectionQuery)
	if verdict.Safe {
		return stageContinue, nil
	}

	st.answer = refusalMessage(verdict.Reason)
	st.sources = nil
	st.confidence = 0
	st.metadata["status"] = StatusRefused
	st.metadata["blocked_category"] = string(verdict.Category)
	return stageHalt, nil
}

// classifyIntent never fails; an unclassifiable query is unknown.
func (o *Orchestrator) classifyIntent(_ context.Context, st *state) (stageStatus, error) {
	st.intent = ClassifyIntent(st.query, st.history)
	st.metadata["intent"] = string(st.intent)
	return stageContinue, nil
}

// retrieve fetches candidate documents. Follow-ups reuse the previous
// turn's documents when the caller supplied them. Retrieval failure
// leaves the pipeline running with no candidates.
func (o *Orchestrator) retrieve(ctx context.Context, st *state) (stageStatus, error) {
	if st.intent == IntentFollowUp && len(st.prior) > 0 {
		st.retrieved = st.prior
		st.metadata["retrieval_skipped"] = true
		return stageContinue, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.retrievalTimeout)
	defer cancel()

	docs, err := o.retriever.Search(ctx, st.query, o.topK)
	if err != nil {
		st.retrieved = nil
		st.metadata["retrieval_failed"] = true
		return stageContinue, fmt.Errorf("retrieval failed: %w", err)
	}

	st.retrieved = docs
	return stageContinue, nil
}

// rerank orders the retrieved documents by relevance and keeps the top
// N. On failure the retrieval order stands, still truncated to N, and
// no threshold is applied because there are no scores to compare.
func (o *Orchestrator) rerank(ctx context.Context, st *state) (stageStatus, error) {
	if len(st.retrieved) == 0 {
		st.reranked = nil
		return stageContinue, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.rerankTimeout)
	defer cancel()

	docs := make([]llm.RerankDocument, len(st.retrieved))
	for i, d := range st.retrieved {
		docs[i] = llm.RerankDocument{Content: d.Content, Score: d.Score}
	}

	scores, err := o.reranker.Rerank(ctx, st.query, docs)
	if err == nil && len(scores) != len(st.retrieved) {
		err = fmt.Errorf("reranker returned %d scores for %d documents",
			len(scores), len(st.retrieved))
	}
	if err != nil {
		fallback := append([]Document(nil), st.retrieved...)
		if len(fallback) > o.topN {
			fallback = fallback[:o.topN]
		}
		st.reranked = fallback
		st.metadata["rerank_failed"] = true
		return stageContinue, fmt.Errorf("rerank failed: %w", err)
	}

	scored := make([]Document, len(st.retrieved))
	for i, d := range st.retrieved {
		d.Score = scores[i]
		scored[i] = d
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	kept := make([]Document, 0, o.topN)
	for _, d := range scored {
		if d.Score < o.rerankThreshold {
			continue
		}
		kept = append(kept, d)
		if len(kept) >= o.topN {
			break
		}
	}

	st.reranked = kept
	return stageContinue, nil
}

// generate produces the answer from the reranked context. Confidence
// and sources are derived from the reranked set regardless of whether
// the model call succeeds; a failed call yields the fallback answer
// with zero confidence.
func (o *Orchestrator) generate(ctx context.Context, st *state) (stageStatus, error) {
	st.confidence = confidenceFrom(st.reranked)
	st.sources = collectSources(st.reranked)

	messages := historyWindow(st.history, o.historyWindow)
	messages = append(messages, llm.Message{Role: "user", Content: st.query})

	completionReq := llm.CompletionRequest{
		SystemPrompt: systemPromptFor(st.intent, o.systemPrompt, len(st.reranked) > 0),
		Context:      buildContext(st.reranked, o.tokenBudget),
		Messages:     messages,
		MaxTokens:    o.maxTokens,
		Temperature:  o.temperature,
	}

	ctx, cancel := context.WithTimeout(ctx, o.generationTimeout)
	defer cancel()

	resp, err := o.completion.Complete(ctx, completionReq)
	if err != nil {
		st.answer = generationFallback
		st.confidence = 0
		st.metadata["generation_failed"] = true
		return stageContinue, fmt.Errorf("generation failed: %w", err)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		st.answer = generationFallback
		st.confidence = 0
		st.metadata["generation_failed"] = true
		return stageContinue, fmt.Errorf("generation returned empty content")
	}

	st.answer = answer
	if resp.Usage.TotalTokens > 0 {
		st.metadata["tokens_used"] = resp.Usage.TotalTokens
	}
	return stageContinue, nil
}

// guardResponse withholds unsafe answers. The user sees the sanitize
// message and the conversation memory keeps no trace of the withheld
// text.
func (o *Orchestrator) guardResponse(_ context.Context, st *state) (stageStatus, error) {
	verdict := o.guard.Evaluate(st.answer, guardrail.DirectionResponse)
	if verdict.Safe {
		return stageContinue, nil
	}

	st.answer = sanitizedMessage(verdict.Reason)
	st.sources = nil
	st.confidence = 0
	st.metadata["status"] = StatusSanitized
	st.metadata["blocked_category"] = string(verdict.Category)
	return stageHalt, nil
}

// updateMemory appends the new turn and evicts the oldest messages
// beyond the history limit.
func (o *Orchestrator) updateMemory(_ context.Context, st *state) (stageStatus, error) {
	st.history = append(st.history,
		Message{Role: "user", Content: st.query},
		Message{Role: "assistant", Content: st.answer},
	)
	if len(st.history) > o.historyLimit {
		trimmed := make([]Message, o.historyLimit)
		copy(trimmed, st.history[len(st.history)-o.historyLimit:])
		st.history = trimmed
	}

	st.metadata["status"] = StatusDone
	return stageContinue, nil
}
