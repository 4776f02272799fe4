//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package rerank

import (
	"strings"
	"unicode"
)

// Tokenizer normalizes text into terms for lexical scoring.
type Tokenizer struct {
	stopWords map[string]bool
}

// DefaultStopWords contains common English stop words.
var DefaultStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "he": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true,
	"had": true, "what": true, "when": true, "where": true, "who": true,
	"which": true, "why": true, "how": true, "all": true, "each": true,
	"every": true, "both": true, "few": true, "more": true, "most": true,
	"other": true, "some": true, "such": true, "no": true, "not": true,
	"only": true, "same": true, "so": true, "than": true, "too": true,
	"very": true, "can": true, "just": true, "should": true, "now": true,
	"i": true, "you": true, "we": true, "me": true, "my": true,
	"your": true, "our": true, "their": true, "him": true, "her": true,
}

// NewTokenizer creates a tokenizer with the default stop words.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopWords: DefaultStopWords}
}

// Tokenize splits text into lowercased terms, dropping stop words and
// single-character fragments.
func (t *Tokenizer) Tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := current.String()
		current.Reset()
		if len(token) < 2 || t.stopWords[token] {
			return
		}
		tokens = append(tokens, token)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// TermFrequencies returns term counts for text.
func (t *Tokenizer) TermFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, token := range t.Tokenize(text) {
		freqs[token]++
	}
	return freqs
}
