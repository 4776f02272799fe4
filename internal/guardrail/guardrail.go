//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package guardrail classifies text against safety rules on both sides of
// a chat exchange: user queries before they reach the pipeline and
// generated answers before they reach the user.
package guardrail

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Direction tells the evaluator which side of the exchange the text
// comes from.
type Direction string

const (
	// DirectionQuery marks text a user submitted.
	DirectionQuery Direction = "query"

	// DirectionResponse marks text a model generated.
	DirectionResponse Direction = "response"
)

// DefaultQualifierWindow is the number of bytes on each side of a
// trigger occurrence searched for a safe-context qualifier.
const DefaultQualifierWindow = 160

// Verdict is the outcome of evaluating one piece of text.
type Verdict struct {
	// Safe is true when no rule matched.
	Safe bool `json:"safe"`

	// Category is the highest-severity matched category, or CategoryNone.
	Category Category `json:"category"`

	// Reason is a short human-readable explanation for unsafe verdicts.
	Reason string `json:"reason,omitempty"`

	// MatchedTerms lists the triggering terms across all matched
	// categories, deduplicated, in severity order.
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// Config controls evaluator construction. The zero value uses the
// built-in rules, the default qualifier window, and a log-backed audit
// sink.
type Config struct {
	// ExtraTerms adds trigger terms to a category's built-in list.
	ExtraTerms map[Category][]string

	// ExtraQualifiers adds safe-context phrases to the built-in list.
	ExtraQualifiers []string

	// DisabledCategories removes categories entirely. Pattern rules for
	// a disabled category are removed as well.
	DisabledCategories []Category

	// QualifierWindow overrides DefaultQualifierWindow when positive.
	QualifierWindow int

	// Sink receives audit events for unsafe verdicts. Defaults to a
	// LogSink on Logger.
	Sink Sink

	// Logger is used by the default sink. Defaults to slog.Default().
	Logger *slog.Logger
}

type compiledRule struct {
	category Category
	terms    []string
}

// Evaluator classifies text. It is immutable after construction and safe
// for concurrent use.
type Evaluator struct {
	rules            []compiledRule
	qualifiers       []string
	queryPatterns    []patternRule
	responsePatterns []patternRule
	window           int
	sink             Sink
}

// New builds an evaluator from cfg.
func New(cfg Config) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink := cfg.Sink
	if sink == nil {
		sink = NewLogSink(logger)
	}

	window := cfg.QualifierWindow
	if window <= 0 {
		window = DefaultQualifierWindow
	}

	disabled := make(map[Category]bool, len(cfg.DisabledCategories))
	for _, c := range cfg.DisabledCategories {
		disabled[c] = true
	}

	var rules []compiledRule
	for _, r := range defaultRules() {
		if disabled[r.Category] {
			continue
		}
		terms := lowerAll(r.Terms)
		for _, extra := range cfg.ExtraTerms[r.Category] {
			t := strings.ToLower(strings.TrimSpace(extra))
			if t != "" && !slices.Contains(terms, t) {
				terms = append(terms, t)
			}
		}
		rules = append(rules, compiledRule{category: r.Category, terms: terms})
	}
	// Extra terms may target a category with no built-in rule, such as
	// CategoryOther.
	for cat, extras := range cfg.ExtraTerms {
		if disabled[cat] || cat == CategoryNone || hasRule(rules, cat) {
			continue
		}
		terms := lowerAll(extras)
		if len(terms) > 0 {
			rules = append(rules, compiledRule{category: cat, terms: terms})
		}
	}

	qualifiers := lowerAll(defaultQualifiers())
	for _, q := range cfg.ExtraQualifiers {
		t := strings.ToLower(strings.TrimSpace(q))
		if t != "" && !slices.Contains(qualifiers, t) {
			qualifiers = append(qualifiers, t)
		}
	}

	return &Evaluator{
		rules:            rules,
		qualifiers:       qualifiers,
		queryPatterns:    keepPatterns(queryPatterns, disabled),
		responsePatterns: keepPatterns(responsePatterns, disabled),
		window:           window,
		sink:             sink,
	}
}

// Evaluate classifies text for the given direction. Unsafe verdicts are
// reported to the audit sink; recording never blocks the caller.
func (e *Evaluator) Evaluate(text string, dir Direction) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Safe: true, Category: CategoryNone}
	}

	lower := strings.ToLower(text)
	qualifierSpans := e.findQualifiers(lower)

	matched := make(map[Category][]string)
	for _, rule := range e.rules {
		for _, term := range rule.terms {
			for _, occ := range findTerm(lower, term) {
				if e.qualified(occ, qualifierSpans) {
					continue
				}
				matched[rule.category] = appendUnique(matched[rule.category], term)
				break
			}
		}
	}

	// Evasion and leak patterns are never downgraded by qualifiers.
	for _, p := range e.patternsFor(dir) {
		if m := p.re.FindString(lower); m != "" {
			matched[p.category] = appendUnique(matched[p.category], snippet(m))
		}
	}

	if len(matched) == 0 {
		return Verdict{Safe: true, Category: CategoryNone}
	}

	var top Category
	var terms []string
	for _, cat := range SeverityOrder {
		ts := matched[cat]
		if len(ts) == 0 {
			continue
		}
		if top == "" {
			top = cat
		}
		terms = append(terms, ts...)
	}

	v := Verdict{
		Safe:         false,
		Category:     top,
		Reason:       reasonFor(dir, top),
		MatchedTerms: terms,
	}

	e.sink.Record(Event{
		Time:         time.Now().UTC(),
		Direction:    dir,
		Category:     v.Category,
		Reason:       v.Reason,
		MatchedTerms: v.MatchedTerms,
		TextLength:   len(text),
	})

	return v
}

// QualifierWindow reports the configured window size in bytes.
func (e *Evaluator) QualifierWindow() int {
	return e.window
}

func (e *Evaluator) patternsFor(dir Direction) []patternRule {
	if dir == DirectionResponse {
		return e.responsePatterns
	}
	return e.queryPatterns
}

func (e *Evaluator) findQualifiers(lower string) []span {
	var spans []span
	for _, q := range e.qualifiers {
		spans = append(spans, findTerm(lower, q)...)
	}
	return spans
}

// qualified reports whether a qualifier occurs within the window around
// the trigger occurrence.
func (e *Evaluator) qualified(occ span, qualifiers []span) bool {
	for _, q := range qualifiers {
		if q.end >= occ.start-e.window && q.start <= occ.end+e.window {
			return true
		}
	}
	return false
}

func reasonFor(dir Direction, cat Category) string {
	subject := "query"
	if dir == DirectionResponse {
		subject = "response"
	}
	return fmt.Sprintf("The %s contains potentially harmful content related to %s.", subject, categoryLabel(cat))
}

func categoryLabel(cat Category) string {
	switch cat {
	case CategoryViolence:
		return "violence"
	case CategoryIllegal:
		return "illegal activity"
	case CategoryExplicit:
		return "explicit material"
	case CategoryHate:
		return "hate speech"
	case CategoryPrivacy:
		return "privacy violations"
	case CategoryControlledSubstance:
		return "controlled substances"
	default:
		return "unsafe intent"
	}
}

// span is a byte range within the lowercased input text.
type span struct {
	start int
	end   int
}

// findTerm returns boundary-delimited occurrences of term in text. Both
// strings must already be lowercased.
func findTerm(text, term string) []span {
	if term == "" {
		return nil
	}
	var spans []span
	for from := 0; from <= len(text)-len(term); {
		i := strings.Index(text[from:], term)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(term)
		from = start + 1
		if !boundaryBefore(text, start) || !boundaryAfter(text, end) {
			continue
		}
		spans = append(spans, span{start: start, end: end})
	}
	return spans
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func hasRule(rules []compiledRule, cat Category) bool {
	for _, r := range rules {
		if r.category == cat {
			return true
		}
	}
	return false
}

func keepPatterns(patterns []patternRule, disabled map[Category]bool) []patternRule {
	var kept []patternRule
	for _, p := range patterns {
		if !disabled[p.category] {
			kept = append(kept, p)
		}
	}
	return kept
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func appendUnique(terms []string, term string) []string {
	if slices.Contains(terms, term) {
		return terms
	}
	return append(terms, term)
}

// snippet trims a pattern match for reporting, cutting at a rune
// boundary.
func snippet(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
