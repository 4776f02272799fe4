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
	"strings"

	"github.com/pgEdge/pgedge-chat-server/internal/llm"
)

// User-facing messages for the pipeline's terminal fallbacks.
const (
	refusalPrefix      = "I cannot assist with this request."
	sanitizedPrefix    = "I generated a response but withheld it."
	generationFallback = "Failed to generate response. Please try again."
)

func refusalMessage(reason string) string {
	if reason == "" {
		return refusalPrefix
	}
	return refusalPrefix + " " + reason
}

func sanitizedMessage(reason string) string {
	if reason == "" {
		return sanitizedPrefix
	}
	return sanitizedPrefix + " " + reason
}

const basePrompt = `You are a helpful assistant that answers questions based on the provided context.
Answer the question using only the information from the context.
If the context doesn't contain enough information to answer, say so.
Be concise and accurate in your responses.`

const searchPrompt = basePrompt + `
Summarize the most relevant findings first and mention where each came from.`

const codingPrompt = basePrompt + `
Include working code examples where the context supports them.
Explain the key decisions in the code and call out trade-offs.`

const explanationPrompt = basePrompt + `
Explain the concept step by step, starting from the fundamentals.
Use short examples to illustrate each point.`

const debugPrompt = basePrompt + `
Analyze the error systematically: identify the likely root cause,
suggest a fix, and explain how to verify it.`

const followUpPrompt = basePrompt + `
This is a follow-up question. Stay consistent with the earlier answers
in the conversation and build on them rather than starting over.`

const insufficientContextNote = `
No relevant documents were found for this question. Say that the
knowledge base has no information on the topic, then give a brief
best-effort answer clearly marked as general knowledge.`

// systemPromptFor selects the prompt template for an intent. The
// switch is exhaustive over the Intent values so a new intent cannot
// silently fall back to the generic prompt.
func systemPromptFor(intent Intent, override string, haveContext bool) string {
	var prompt string
	if override != "" {
		prompt = override
	} else {
		switch intent {
		case IntentSearch:
			prompt = searchPrompt
		case IntentCoding:
			prompt = codingPrompt
		case IntentExplanation:
			prompt = explanationPrompt
		case IntentDebug:
			prompt = debugPrompt
		case IntentFollowUp:
			prompt = followUpPrompt
		case IntentUnknown:
			prompt = basePrompt
		default:
			prompt = basePrompt
		}
	}

	if !haveContext {
		prompt += insufficientContextNote
	}
	return prompt
}

// buildContext converts reranked documents to context documents,
// respecting the token budget (~4 characters per token). A document
// that would blow the budget is truncated at a sentence boundary when
// enough room remains, otherwise dropped.
func buildContext(docs []Document, tokenBudget int) []llm.ContextDocument {
	contextDocs := make([]llm.ContextDocument, 0, len(docs))
	totalTokens := 0

	for _, d := range docs {
		estimatedTokens := len(d.Content) / 4
		if totalTokens+estimatedTokens > tokenBudget {
			remaining := tokenBudget - totalTokens
			if remaining > 100 {
				truncated := d.Content[:min(len(d.Content), remaining*4)]
				if idx := strings.LastIndex(truncated, ". "); idx > 0 {
					truncated = truncated[:idx+1]
				}
				contextDocs = append(contextDocs, llm.ContextDocument{
					Source:  d.Source,
					Content: truncated + "...",
					Score:   d.Score,
				})
			}
			break
		}

		contextDocs = append(contextDocs, llm.ContextDocument{
			Source:  d.Source,
			Content: d.Content,
			Score:   d.Score,
		})
		totalTokens += estimatedTokens
	}

	return contextDocs
}

// historyWindow returns the most recent messages up to windowSize,
// converted for the completion provider. The full history still lives
// in the session; only this window reaches the model.
func historyWindow(history []Message, windowSize int) []llm.Message {
	if windowSize <= 0 || len(history) == 0 {
		return nil
	}
	start := 0
	if len(history) > windowSize {
		start = len(history) - windowSize
	}

	window := make([]llm.Message, 0, len(history)-start)
	for _, m := range history[start:] {
		window = append(window, llm.Message{Role: m.Role, Content: m.Content})
	}
	return window
}

// collectSources returns deduplicated source identifiers in order of
// first appearance. Documents without a source fall back to their ID.
func collectSources(docs []Document) []string {
	seen := make(map[string]bool, len(docs))
	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		s := d.Source
		if s == "" {
			s = d.ID
		}
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		sources = append(sources, s)
	}
	return sources
}

// confidenceFrom derives answer confidence from the top reranked
// score, clamped to [0, 1]. No documents means no grounding, so zero.
func confidenceFrom(docs []Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	score := docs[0].Score
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
