//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package voyage

import (
	"context"

	"github.com/pgEdge/pgedge-chat-server/internal/llm"
)

const defaultRerankModel = "rerank-2-lite"

// RerankProvider implements llm.RerankProvider using the Voyage rerank
// API.
type RerankProvider struct {
	client *Client
	model  string
}

// NewRerankProvider creates a new Voyage rerank provider.
func NewRerankProvider(apiKey string, opts ...RerankOption) *RerankProvider {
	p := &RerankProvider{
		client: NewClient(apiKey),
		model:  defaultRerankModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RerankOption configures the rerank provider.
type RerankOption func(*RerankProvider)

// WithRerankModel sets the rerank model.
func WithRerankModel(model string) RerankOption {
	return func(p *RerankProvider) {
		p.model = model
	}
}

// WithRerankClient sets the underlying API client.
func WithRerankClient(client *Client) RerankOption {
	return func(p *RerankProvider) {
		p.client = client
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	// The documents are already held by the caller, so asking the API
	// to echo them back only wastes bandwidth.
	ReturnDocuments bool `json:"return_documents"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Data  []rerankResult `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Rerank scores each document for relevance to the query. Scores are
// returned in input order regardless of the API's ranking order.
func (p *RerankProvider) Rerank(
	ctx context.Context,
	query string,
	docs []llm.RerankDocument,
) ([]float64, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	documents := make([]string, len(docs))
	for i, d := range docs {
		documents[i] = d.Content
	}

	reqBody := rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     p.model,
	}

	var rrResp rerankResponse
	if err := p.client.postJSON(ctx, "/rerank", reqBody, &rrResp); err != nil {
		return nil, err
	}

	// The API returns results ranked by relevance; the index field maps
	// each score back to its document.
	scores := make([]float64, len(docs))
	for _, d := range rrResp.Data {
		if d.Index >= 0 && d.Index < len(scores) {
			scores[d.Index] = d.RelevanceScore
		}
	}

	return scores, nil
}

// ModelName returns the model name.
func (p *RerankProvider) ModelName() string {
	return p.model
}

var _ llm.RerankProvider = (*RerankProvider)(nil)
