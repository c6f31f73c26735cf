package domain

import (
	"fmt"
	"strings"
)

type MatchMode string

const (
	MatchContains MatchMode = "contains"
	MatchExact    MatchMode = "exact"
	MatchPrefix   MatchMode = "prefix"
)

func (m MatchMode) Valid() bool {
	switch m {
	case "", MatchContains, MatchExact, MatchPrefix:
		return true
	default:
		return false
	}
}

// TierRule marks model names that only top-tier accounts can serve.
// An empty Match means MatchContains.
type TierRule struct {
	Pattern string
	Match   MatchMode
}

func (r TierRule) matches(model string) bool {
	switch r.Match {
	case MatchExact:
		return model == r.Pattern
	case MatchPrefix:
		return strings.HasPrefix(model, r.Pattern)
	default:
		return strings.Contains(model, r.Pattern)
	}
}

// DefaultTierRules is used when no rules are configured. The bare "opus"
// marker is a wildcard and also matches any future model containing it.
var DefaultTierRules = []TierRule{
	{Pattern: "claude-opus-4-6", Match: MatchContains},
	{Pattern: "claude-opus-4-5", Match: MatchContains},
	{Pattern: "opus", Match: MatchContains},
}

var defaultClassifier = mustClassifier(DefaultTierRules)

type ModelClassifier struct {
	rules []TierRule
}

// NewModelClassifier lowercases and trims every pattern and match mode and
// drops empty patterns.
func NewModelClassifier(rules []TierRule) (*ModelClassifier, error) {
	normalized := make([]TierRule, 0, len(rules))
	seen := make(map[TierRule]struct{}, len(rules))
	for _, rule := range rules {
		match := MatchMode(strings.ToLower(strings.TrimSpace(string(rule.Match))))
		if !match.Valid() {
			return nil, fmt.Errorf("unsupported match mode %q for pattern %q", rule.Match, rule.Pattern)
		}

		pattern := strings.ToLower(strings.TrimSpace(rule.Pattern))
		if pattern == "" {
			continue
		}
		if match == "" {
			match = MatchContains
		}

		entry := TierRule{Pattern: pattern, Match: match}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		normalized = append(normalized, entry)
	}

	return &ModelClassifier{rules: normalized}, nil
}

func DefaultModelClassifier() *ModelClassifier {
	return defaultClassifier
}

// RequiresTopTier never fails: empty or unrecognised input is not tier-sensitive.
func (c *ModelClassifier) RequiresTopTier(model string) bool {
	if c == nil {
		c = defaultClassifier
	}

	lower := strings.ToLower(strings.TrimSpace(model))
	if lower == "" {
		return false
	}

	for _, rule := range c.rules {
		if rule.matches(lower) {
			return true
		}
	}
	return false
}

func (c *ModelClassifier) Rules() []TierRule {
	if c == nil {
		c = defaultClassifier
	}
	return append([]TierRule(nil), c.rules...)
}

func RequiresTopTier(model string) bool {
	return defaultClassifier.RequiresTopTier(model)
}

// RulesFromPatterns builds contains-mode rules, the shape of the plain
// top_tier_models config list.
func RulesFromPatterns(patterns []string) []TierRule {
	rules := make([]TierRule, 0, len(patterns))
	for _, pattern := range patterns {
		rules = append(rules, TierRule{Pattern: pattern, Match: MatchContains})
	}
	return rules
}

func mustClassifier(rules []TierRule) *ModelClassifier {
	classifier, err := NewModelClassifier(rules)
	if err != nil {
		panic(err)
	}
	return classifier
}
