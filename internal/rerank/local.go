//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package rerank provides a local, network-free relevance scorer that
// satisfies the llm.RerankProvider contract.
package rerank

import (
	"context"
	"math"

	"github.com/pgEdge/pgedge-chat-server/internal/llm"
)

// DefaultK1 is the term frequency saturation parameter.
const DefaultK1 = 1.2

// DefaultB is the document length normalization parameter.
const DefaultB = 0.75

// Blend weights for the final score. Lexical relevance dominates but
// the retrieval score keeps semantically-close documents from dropping
// to zero when they share no vocabulary with the query.
const (
	DefaultLexicalWeight   = 0.7
	DefaultRetrievalWeight = 0.3
)

// Local scores candidates with a BM25-style lexical model computed over
// the candidate set itself. Document frequencies and average length are
// derived per call, so no persistent index is needed. The raw lexical
// score is normalized to [0,1] against the best candidate and blended
// with the retrieval score each document arrived with.
//
// Local is stateless and safe for concurrent use.
type Local struct {
	k1              float64
	b               float64
	lexicalWeight   float64
	retrievalWeight float64
	tokenizer       *Tokenizer
}

// LocalOption configures the local scorer.
type LocalOption func(*Local)

// WithParams overrides the K1 and B scoring parameters.
func WithParams(k1, b float64) LocalOption {
	return func(l *Local) {
		l.k1 = k1
		l.b = b
	}
}

// WithWeights overrides the lexical/retrieval blend weights.
func WithWeights(lexical, retrieval float64) LocalOption {
	return func(l *Local) {
		l.lexicalWeight = lexical
		l.retrievalWeight = retrieval
	}
}

// NewLocal creates a local scorer with default parameters.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		k1:              DefaultK1,
		b:               DefaultB,
		lexicalWeight:   DefaultLexicalWeight,
		retrievalWeight: DefaultRetrievalWeight,
		tokenizer:       NewTokenizer(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Rerank returns one blended relevance score per document, in input
// order.
func (l *Local) Rerank(
	ctx context.Context,
	query string,
	docs []llm.RerankDocument,
) ([]float64, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryTerms := l.tokenizer.TermFrequencies(query)

	docFreqs := make([]map[string]int, len(docs))
	docLens := make([]int, len(docs))
	var totalLen int
	for i, d := range docs {
		freqs := l.tokenizer.TermFrequencies(d.Content)
		docFreqs[i] = freqs
		for _, n := range freqs {
			docLens[i] += n
		}
		totalLen += docLens[i]
	}
	avgLen := float64(totalLen) / float64(len(docs))
	if avgLen == 0 {
		avgLen = 1
	}

	// Document frequency of each query term within the candidate set.
	corpusFreq := make(map[string]int, len(queryTerms))
	for term := range queryTerms {
		for _, freqs := range docFreqs {
			if freqs[term] > 0 {
				corpusFreq[term]++
			}
		}
	}

	raw := make([]float64, len(docs))
	var maxRaw float64
	for i := range docs {
		var score float64
		for term := range queryTerms {
			score += l.termScore(docFreqs[i][term], corpusFreq[term], docLens[i], avgLen, len(docs))
		}
		raw[i] = score
		if score > maxRaw {
			maxRaw = score
		}
	}

	scores := make([]float64, len(docs))
	for i, d := range docs {
		lexical := 0.0
		if maxRaw > 0 {
			lexical = raw[i] / maxRaw
		}
		scores[i] = l.lexicalWeight*lexical + l.retrievalWeight*clamp01(d.Score)
	}
	return scores, nil
}

// ModelName identifies the scoring scheme.
func (l *Local) ModelName() string {
	return "lexical-blend"
}

// termScore is the BM25 contribution of one query term, using the
// Lucene IDF variant so scores stay non-negative:
//
//	IDF(t) = log(1 + (N - df(t) + 0.5) / (df(t) + 0.5))
func (l *Local) termScore(tf, df, docLen int, avgLen float64, docCount int) float64 {
	if tf == 0 || df == 0 || docCount == 0 {
		return 0
	}

	n := float64(docCount)
	idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))

	lengthNorm := 1 - l.b + l.b*(float64(docLen)/avgLen)
	tfScore := (float64(tf) * (l.k1 + 1)) / (float64(tf) + l.k1*lengthNorm)

	return idf * tfScore
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

// Ensure Local implements the interface.
var _ llm.RerankProvider = (*Local)(nil)
