//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import "strings"

// Intent is the classified purpose of a user query. It selects the
// system prompt and, for follow-ups, allows reuse of prior documents.
type Intent string

const (
	IntentSearch      Intent = "search"
	IntentCoding      Intent = "coding"
	IntentExplanation Intent = "explanation"
	IntentDebug       Intent = "debug"
	IntentFollowUp    Intent = "follow_up"
	IntentUnknown     Intent = "unknown"
)

// Keyword sets for intent classification. Matching is substring-based
// on the lowercased query, checked in a fixed precedence order so the
// same query always classifies the same way.
var (
	debugKeywords = []string{
		"debug", "error", "bug", "crash", "exception",
		"stack trace", "traceback", "not working", "broken",
		"fix this", "fix my", "fix the",
	}

	codingKeywords = []string{
		"code", "implement", "write a function", "write a script",
		"refactor", "snippet", "function that", "program that",
		"script that", "regex",
	}

	searchKeywords = []string{
		"search", "find", "look up", "look for", "latest",
		"list all", "list the", "show me", "where is", "where are",
	}

	explanationKeywords = []string{
		"explain", "why", "how does", "how do", "how to", "what is",
		"what are", "what does", "difference between", "compare",
		"understand", "meaning of",
	}

	followUpPrefixes = []string{
		"and ", "also ", "what about", "how about", "what else",
		"why not", "but ",
	}

	followUpPhrases = []string{
		"tell me more", "more detail", "more about", "elaborate",
		"go on", "expand on", "the previous", "you mentioned",
		"that one", "the same",
	}

	followUpPronouns = []string{"it", "that", "this", "those", "these", "them"}
)

// ClassifyIntent assigns an intent to a query. Follow-up detection
// requires conversation history; without it, anaphoric phrasing has
// nothing to refer back to and falls through to the other checks.
func ClassifyIntent(query string, history []Message) Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return IntentUnknown
	}

	if len(history) > 0 && isFollowUp(q) {
		return IntentFollowUp
	}

	switch {
	case containsAny(q, debugKeywords):
		return IntentDebug
	case containsAny(q, codingKeywords):
		return IntentCoding
	case containsAny(q, searchKeywords):
		return IntentSearch
	case containsAny(q, explanationKeywords):
		return IntentExplanation
	}

	return IntentUnknown
}

// isFollowUp reports whether a query leans on the previous turn:
// continuation prefixes, anaphoric phrases, or a short query that is
// mostly a bare pronoun.
func isFollowUp(q string) bool {
	for _, p := range followUpPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	for _, p := range followUpPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}

	words := strings.Fields(q)
	if len(words) <= 4 {
		for _, w := range words {
			w = strings.Trim(w, ".,!?")
			for _, pron := range followUpPronouns {
				if w == pron {
					return true
				}
			}
		}
	}

	return false
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
