//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package guardrail

import (
	"regexp"
)

// Category identifies the class of unsafe content a verdict reports.
type Category string

const (
	// CategoryNone marks a safe verdict.
	CategoryNone Category = "none"

	// CategoryViolence covers harm to people, weapons, and self-harm.
	CategoryViolence Category = "violence"

	// CategoryIllegal covers intrusion, fraud, and other unlawful activity.
	CategoryIllegal Category = "illegal"

	// CategoryExplicit covers sexual content, including material involving
	// minors. It ranks above every other category.
	CategoryExplicit Category = "explicit"

	// CategoryHate covers slurs and attacks on protected groups.
	CategoryHate Category = "hate"

	// CategoryPrivacy covers stalking, doxxing, and identity abuse.
	CategoryPrivacy Category = "privacy"

	// CategoryControlledSubstance covers drug synthesis and procurement.
	CategoryControlledSubstance Category = "controlled_substance"

	// CategoryOther covers evasion framing and anything uncategorized.
	CategoryOther Category = "other"
)

// SeverityOrder lists unsafe categories from most to least severe. When
// triggers from multiple categories match the same text, the verdict
// reports the earliest category in this order.
var SeverityOrder = []Category{
	CategoryExplicit,
	CategoryViolence,
	CategoryIllegal,
	CategoryHate,
	CategoryPrivacy,
	CategoryControlledSubstance,
	CategoryOther,
}

// Rule holds one category's trigger terms. Terms are matched
// case-insensitively at word boundaries; multi-word terms match as
// boundary-delimited phrases.
type Rule struct {
	Category Category
	Terms    []string
}

// defaultRules returns the built-in trigger rules in severity order.
// Inflected forms are listed explicitly so that matching stays at word
// boundaries ("skill" must never trigger "kill").
func defaultRules() []Rule {
	return []Rule{
		{
			Category: CategoryExplicit,
			Terms: []string{
				"child porn", "child pornography", "csam",
				"porn", "pornography", "nude", "nudes",
				"erotic", "erotica", "fetish",
			},
		},
		{
			Category: CategoryViolence,
			Terms: []string{
				"kill", "killing", "murder", "murdering",
				"attack", "attacks", "assault",
				"bomb", "bombs", "bombing", "explosive", "explosives",
				"weapon", "weapons", "gun", "guns", "firearm", "firearms",
				"shoot", "shooting", "stab", "stabbing",
				"terrorism", "terrorist",
				"suicide", "self-harm", "overdose",
			},
		},
		{
			Category: CategoryIllegal,
			Terms: []string{
				"hack", "hacking", "exploit", "exploits",
				"breach", "phishing", "malware", "ransomware",
				"trojan", "keylogger", "botnet",
				"forgery", "counterfeit", "smuggle", "smuggling",
				"traffick", "trafficking", "launder", "laundering",
			},
		},
		{
			Category: CategoryHate,
			Terms: []string{
				"racist", "racism", "sexist", "sexism",
				"homophobic", "transphobic", "bigot", "bigotry",
				"slur", "slurs",
			},
		},
		{
			Category: CategoryPrivacy,
			Terms: []string{
				"doxx", "doxxing", "dox", "stalk", "stalking",
				"spy on", "identity theft", "social security number",
			},
		},
		{
			Category: CategoryControlledSubstance,
			Terms: []string{
				"meth", "methamphetamine", "heroin", "cocaine",
				"fentanyl", "synthesize drugs", "manufacture drugs",
			},
		},
	}
}

// defaultQualifiers returns the built-in safe-context phrases. A trigger
// occurrence is downgraded when one of these occurs within the qualifier
// window around it.
func defaultQualifiers() []string {
	return []string{
		"historical", "history",
		"educational", "education",
		"academic", "research",
		"fiction", "fictional", "novel", "literature",
		"medical study", "psychological research",
		"legal analysis", "news reporting", "journalism",
		"security course", "security training",
		"defend against", "defending against", "defense against",
		"sandboxed environment", "penetration test", "penetration testing",
		"capture the flag",
	}
}

// patternRule pairs a compiled pattern with the category it reports.
// Patterns run against lowercased text and are never downgraded by
// qualifiers.
type patternRule struct {
	category Category
	re       *regexp.Regexp
}

// queryPatterns catch evasion and jailbreak framing in user queries.
var queryPatterns = []patternRule{
	{CategoryOther, regexp.MustCompile(`without (?:getting|being) (?:caught|detected|traced)`)},
	{CategoryOther, regexp.MustCompile(`(?:bypass|evade|circumvent)\w* (?:the )?(?:safety |content |security )?(?:filters?|restrictions?|guardrails?|measures?)`)},
	{CategoryOther, regexp.MustCompile(`ignore (?:all |your )?(?:previous |prior )?(?:instructions|rules|guidelines)`)},
	{CategoryOther, regexp.MustCompile(`pretend (?:you are|you're|to be) (?:unrestricted|uncensored|evil|above the rules)`)},
	{CategoryOther, regexp.MustCompile(`(?:act|role[- ]?play) as (?:a |an )?(?:criminal|hitman|drug dealer|black hat)`)},
}

// responsePatterns catch harmful-instruction shapes leaking into
// generated answers.
var responsePatterns = []patternRule{
	{CategoryViolence, regexp.MustCompile(`here(?:'|’)?s how to (?:kill|murder|poison|hurt)`)},
	{CategoryViolence, regexp.MustCompile(`steps? (?:to|for) (?:mak|build|creat)\w* (?:a |an )?(?:bomb|weapon|explosive)`)},
	{CategoryIllegal, regexp.MustCompile(`here(?:'|’)?s how to (?:hack|steal|break into)`)},
	{CategoryIllegal, regexp.MustCompile(`steps? (?:to|for) (?:writ|creat|deploy)\w* (?:malware|ransomware|a virus)`)},
	{CategoryControlledSubstance, regexp.MustCompile(`steps? (?:to|for) (?:synthesiz|manufactur|cook)\w* (?:meth|heroin|cocaine|fentanyl|drugs)`)},
}
