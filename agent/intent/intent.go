// Package intent decides which auxiliary context a caller turn needs before
// generation. The substring heuristic keeps routing deterministic and
// latency-bounded; a Classifier can be swapped for a model-driven one as long
// as both detectors stay independent.
package intent

import "strings"

// Classifier reports whether an utterance triggers one class of context
// injection.
type Classifier interface {
	Match(text string) bool
}

// KeywordClassifier matches case-insensitively on substring membership in a
// fixed keyword set.
type KeywordClassifier struct {
	keywords []string
}

var _ Classifier = (*KeywordClassifier)(nil)

func NewKeywordClassifier(keywords ...string) *KeywordClassifier {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &KeywordClassifier{keywords: lowered}
}

func (c *KeywordClassifier) Match(text string) bool {
	lowered := strings.ToLower(text)
	for _, k := range c.keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// NewPolicyClassifier covers policy, accessibility, and cancellation topics
// that warrant a knowledge-base lookup.
func NewPolicyClassifier() *KeywordClassifier {
	return NewKeywordClassifier(
		"wheelchair", "access", "disability", "cancel", "refund", "policy", "fee", "grandmother",
	)
}

// NewTemporalClassifier covers date-availability questions that warrant the
// availability tool.
func NewTemporalClassifier() *KeywordClassifier {
	return NewKeywordClassifier("tomorrow", "date")
}
