//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package guardrail

// CategoryGuideline summarizes the active rule material for one
// category.
type CategoryGuideline struct {
	Category     Category `json:"category"`
	Severity     int      `json:"severity"`
	TermCount    int      `json:"term_count"`
	ExampleTerms []string `json:"example_terms"`
}

// Guidelines is a serializable snapshot of the evaluator's active
// configuration, suitable for the guardrails API endpoint.
type Guidelines struct {
	SeverityOrder        []Category          `json:"severity_order"`
	Categories           []CategoryGuideline `json:"categories"`
	Qualifiers           []string            `json:"qualifiers"`
	QualifierWindowBytes int                 `json:"qualifier_window_bytes"`
	QueryPatternCount    int                 `json:"query_pattern_count"`
	ResponsePatternCount int                 `json:"response_pattern_count"`
}

// Guidelines reports the active rules. Term lists are summarized rather
// than dumped in full.
func (e *Evaluator) Guidelines() Guidelines {
	const maxExamples = 5

	severity := make(map[Category]int, len(SeverityOrder))
	for i, cat := range SeverityOrder {
		severity[cat] = i + 1
	}

	categories := make([]CategoryGuideline, 0, len(e.rules))
	for _, r := range e.rules {
		examples := r.terms
		if len(examples) > maxExamples {
			examples = examples[:maxExamples]
		}
		categories = append(categories, CategoryGuideline{
			Category:     r.category,
			Severity:     severity[r.category],
			TermCount:    len(r.terms),
			ExampleTerms: append([]string(nil), examples...),
		})
	}

	return Guidelines{
		SeverityOrder:        append([]Category(nil), SeverityOrder...),
		Categories:           categories,
		Qualifiers:           append([]string(nil), e.qualifiers...),
		QualifierWindowBytes: e.window,
		QueryPatternCount:    len(e.queryPatterns),
		ResponsePatternCount: len(e.responsePatterns),
	}
}
