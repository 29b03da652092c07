// Package ahocorasick implements synapse.Classifier with a single-pass
// Aho-Corasick matcher over every rule pattern.
package ahocorasick

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/fwojciec/synapse"
)

// Ensure Classifier implements synapse.Classifier at compile time.
var _ synapse.Classifier = (*Classifier)(nil)

// Classifier assigns the type of the first rule with a pattern contained in
// the URL. URLs are compared lower-cased. Safe for concurrent use.
type Classifier struct {
	rules []synapse.ClassificationRule

	// patternRule maps a matcher dictionary index to its rule index.
	patternRule []int

	mu      sync.Mutex // Matcher.Match mutates internal state
	matcher *ahocorasick.Matcher
}

// NewClassifier creates a Classifier for rules, evaluated in order.
func NewClassifier(rules []synapse.ClassificationRule) *Classifier {
	c := &Classifier{rules: rules}

	seen := make(map[string]bool)
	var patterns []string
	for i, rule := range rules {
		for _, p := range rule.Patterns {
			p = strings.ToLower(p)
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			patterns = append(patterns, p)
			c.patternRule = append(c.patternRule, i)
		}
	}

	if len(patterns) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(patterns)
	}
	return c
}

// NewDefaultClassifier creates a Classifier for synapse.DefaultClassificationRules.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(synapse.DefaultClassificationRules())
}

// Classify returns the type of the earliest matching rule, or
// synapse.ItemTypeArticle when no rule matches.
func (c *Classifier) Classify(url string) synapse.ItemType {
	if c.matcher == nil {
		return synapse.ItemTypeArticle
	}

	c.mu.Lock()
	hits := c.matcher.Match([]byte(strings.ToLower(url)))
	c.mu.Unlock()

	best := -1
	for _, hit := range hits {
		if hit >= len(c.patternRule) {
			continue
		}
		if r := c.patternRule[hit]; best < 0 || r < best {
			best = r
		}
	}
	if best < 0 {
		return synapse.ItemTypeArticle
	}
	return c.rules[best].Type
}
