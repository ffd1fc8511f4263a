package category

import (
	"context"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/llm"
)

// Resolver decides the category a transaction is persisted with.
//
// Policy: an explicit caller-supplied category always wins verbatim. Otherwise
// the external model gets one synchronous attempt; on any failure the keyword
// rules answer instead. Model output is normalized against the canonical set
// before acceptance. Resolution never fails; the fallback label is the
// terminal answer, so categorization can never block a write.
type Resolver struct {
	rules *Rules
	model llm.Categorizer // nil disables the external path
}

// NewResolver builds a Resolver. model may be nil, in which case only the
// rule-based path runs.
func NewResolver(rules *Rules, model llm.Categorizer) *Resolver {
	return &Resolver{rules: rules, model: model}
}

// Rules exposes the underlying keyword categorizer.
func (r *Resolver) Rules() *Rules { return r.rules }

// Resolve returns the category for one transaction-to-be.
func (r *Resolver) Resolve(ctx context.Context, description string, isFixed bool, txType core.TransactionType, explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if isFixed || r.model == nil {
		return r.rules.Categorize(description, isFixed, txType)
	}

	label, err := r.model.Categorize(ctx, description)
	if err != nil {
		slog.WarnContext(ctx, "Model categorization failed, using rules",
			"description", description, "error", err)
		return r.rules.Categorize(description, isFixed, txType)
	}
	if canonical, ok := r.Normalize(label); ok {
		return canonical
	}
	slog.WarnContext(ctx, "Model returned unrecognized label",
		"label", label, "description", description)
	return Fallback
}

// ResolveBatch categorizes descriptions for an import flow. Each item is
// independent: a failure of the batch call as a whole yields Fallback for
// every item, a missing or unmatchable label inside a successful call yields
// Fallback for that item only.
func (r *Resolver) ResolveBatch(ctx context.Context, descriptions []string) []string {
	out := make([]string, len(descriptions))
	if len(descriptions) == 0 {
		return out
	}

	if r.model == nil {
		for i, d := range descriptions {
			out[i] = r.rules.Categorize(d, false, core.Expense)
		}
		return out
	}

	labels, err := r.model.CategorizeBatch(ctx, descriptions)
	if err != nil {
		slog.WarnContext(ctx, "Batch categorization failed",
			"items", len(descriptions), "error", err)
		for i := range out {
			out[i] = Fallback
		}
		return out
	}
	for i := range out {
		if i < len(labels) {
			if canonical, ok := r.Normalize(labels[i]); ok {
				out[i] = canonical
				continue
			}
		}
		out[i] = Fallback
	}
	return out
}

// Normalize matches an untrusted label against the canonical category set,
// case-insensitively and via substring containment in either direction.
// Reports whether a canonical category was found.
func (r *Resolver) Normalize(label string) (string, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return "", false
	}
	for _, name := range r.rules.Canonical() {
		lower := strings.ToLower(name)
		if label == lower || strings.Contains(label, lower) || strings.Contains(lower, label) {
			return name, true
		}
	}
	return "", false
}
