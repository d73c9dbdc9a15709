package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// Canned reasons for the rule categories. External log parsers key off
// these exact phrases; reword them only together with the report reader.
const (
	ReasonHateSpeech = "Hate speech detected. Please refrain from using offensive language."
	ReasonPII        = "Personal identifiable information detected. Please do not share sensitive data."
	ReasonJailbreak  = "Jailbreak attempt detected. Please ask legitimate questions."
)

// RuleSet holds the static pattern lists for the deterministic checks.
// Keyword and phrase entries match as case-insensitive substrings; PII
// entries are regular expressions.
type RuleSet struct {
	HateSpeechKeywords []string
	PIIPatterns        []string
	JailbreakPhrases   []string
}

// RuleEngine runs the deterministic checks in fixed priority order:
// hate speech, then PII, then jailbreak. The first category that matches
// wins; there is no scoring or combination across categories.
type RuleEngine struct {
	hateSpeech []string
	pii        []*regexp.Regexp
	jailbreak  []string
}

// NewRuleEngine compiles a rule set. The engine is immutable afterwards
// and safe for concurrent use.
func NewRuleEngine(rules RuleSet) (*RuleEngine, error) {
	e := &RuleEngine{
		hateSpeech: make([]string, 0, len(rules.HateSpeechKeywords)),
		pii:        make([]*regexp.Regexp, 0, len(rules.PIIPatterns)),
		jailbreak:  make([]string, 0, len(rules.JailbreakPhrases)),
	}
	for _, kw := range rules.HateSpeechKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			e.hateSpeech = append(e.hateSpeech, kw)
		}
	}
	for _, pattern := range rules.PIIPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("moderation: invalid PII pattern %q: %w", pattern, err)
		}
		e.pii = append(e.pii, re)
	}
	for _, phrase := range rules.JailbreakPhrases {
		if phrase = strings.ToLower(strings.TrimSpace(phrase)); phrase != "" {
			e.jailbreak = append(e.jailbreak, phrase)
		}
	}
	return e, nil
}

// Check runs the rule checks against text. It is a pure function: no
// state, no side effects, identical decisions for identical input.
// Empty or whitespace-only input is allowed.
func (e *RuleEngine) Check(text string) Decision {
	if strings.TrimSpace(text) == "" {
		return Allow()
	}
	lower := strings.ToLower(text)
	for _, kw := range e.hateSpeech {
		if strings.Contains(lower, kw) {
			return Block(CategoryHateSpeech, ReasonHateSpeech)
		}
	}
	for _, re := range e.pii {
		if re.MatchString(text) {
			return Block(CategoryPII, ReasonPII)
		}
	}
	for _, phrase := range e.jailbreak {
		if strings.Contains(lower, phrase) {
			return Block(CategoryJailbreak, ReasonJailbreak)
		}
	}
	return Allow()
}
