// Package llm wraps the external categorization capability behind a small
// interface so services stay testable without network or model availability.
package llm

import "context"

// Categorizer is the single capability the core needs from a language model:
// given free text, return a category label. Every returned label is untrusted
// and must pass normalization before use.
type Categorizer interface {
	// Categorize labels one description. One synchronous attempt; callers own
	// the fallback on error.
	Categorize(ctx context.Context, description string) (string, error)

	// CategorizeBatch labels each description independently and returns one
	// label per input, in order. An empty slot means the model did not produce
	// a usable label for that item.
	CategorizeBatch(ctx context.Context, descriptions []string) ([]string, error)
}
