package category

import (
	"context"
	"sort"
	"strings"
)

// Classifier resolves the category label for a request from its question
// text. Classification is a replaceable strategy: the deployed configuration
// pins a single label, but the pipeline never assumes that.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// StaticClassifier always returns a fixed label. This matches the current
// product surface, where every office-hours ticket is treated as a homework
// question.
type StaticClassifier struct {
	Label string
}

// Classify returns the configured label regardless of input.
func (s StaticClassifier) Classify(_ context.Context, _ string) (string, error) {
	return s.Label, nil
}

// KeywordClassifier scores the question text against per-label keyword
// lists and returns the best-scoring label, falling back to a default when
// nothing matches.
type KeywordClassifier struct {
	Keywords map[string][]string
	Fallback string
}

// Classify returns the label whose keywords match the text most often.
// Ties break alphabetically so classification stays deterministic.
func (k KeywordClassifier) Classify(_ context.Context, text string) (string, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return k.Fallback, nil
	}

	labels := make([]string, 0, len(k.Keywords))
	for label := range k.Keywords {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := k.Fallback
	bestScore := 0
	for _, label := range labels {
		score := 0
		for _, keyword := range k.Keywords[label] {
			if strings.Contains(text, strings.ToLower(keyword)) {
				score++
			}
		}
		if score > bestScore {
			best = label
			bestScore = score
		}
	}

	return best, nil
}
