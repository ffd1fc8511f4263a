// Package category assigns spending categories to free-text transaction
// descriptions. Rule-based keyword matching is the always-available path;
// an external model can be layered on top via Resolver.
package category

import (
	"regexp"
	"strings"

	"fintrack/internal/core"
)

// Fallback is the terminal category for anything nothing else claims.
const Fallback = "Other"

const (
	FixedIncome   = "Fixed Income"
	FixedExpenses = "Fixed Expenses"
)

// keywordSet declares one category and the whole words that select it.
// Declaration order matters: the first matching category wins, so more
// specific sets come before broader ones.
type keywordSet struct {
	name     string
	keywords []string
}

var keywordSets = []keywordSet{
	{FixedIncome, []string{
		"salary", "wage", "pension", "rental income", "fixed interest",
		"lease", "monthly pay", "paycheck", "stipend",
	}},
	{FixedExpenses, []string{
		"rent", "mortgage", "insurance", "subscription", "loan payment",
		"car payment", "netflix", "spotify", "gym membership",
	}},
	{"Housing", []string{
		"property tax", "maintenance", "repairs", "utilities", "hoa",
		"renovation", "cleaning", "furniture", "appliances", "home",
	}},
	{"Transportation", []string{
		"gas", "fuel", "car", "bus", "train", "parking", "uber", "lyft",
		"taxi", "metro", "subway", "bicycle", "maintenance", "repair",
	}},
	{"Food & Dining", []string{
		"grocery", "restaurant", "cafe", "food delivery", "takeout",
		"coffee", "snacks", "supermarket", "meal", "dining", "migros", "coop",
	}},
	{"Utilities", []string{
		"electricity", "water", "gas", "internet", "phone", "heating",
		"garbage", "sewage", "cable", "telecommunication",
	}},
	{"Healthcare", []string{
		"doctor", "medicine", "insurance", "dental", "vision",
		"pharmacy", "hospital", "clinic", "medical", "healthcare",
	}},
	{"Entertainment", []string{
		"movies", "games", "streaming", "sports", "events",
		"concert", "theater", "netflix", "spotify", "hobby",
	}},
	{"Shopping", []string{
		"clothes", "electronics", "home goods", "amazon", "retail",
		"shoes", "accessories", "department store", "online shopping",
	}},
	{"Personal Care", []string{
		"haircut", "gym", "cosmetics", "spa", "beauty",
		"salon", "skincare", "grooming", "wellness",
	}},
	{"Education", []string{
		"tuition", "books", "courses", "training", "school",
		"university", "college", "education", "workshop", "seminar",
	}},
	{"Investments", []string{
		"stocks", "bonds", "crypto", "savings", "investment",
		"mutual fund", "etf", "trading", "dividend", "securities",
	}},
	{"Variable Income", []string{
		"bonus", "freelance", "dividend", "interest", "commission",
		"overtime", "tip", "gift", "refund", "side hustle",
	}},
}

// Rules is the keyword-based categorizer. Patterns are compiled once at
// construction; Categorize is pure and safe for concurrent use.
type Rules struct {
	ordered []compiledSet
}

type compiledSet struct {
	name    string
	pattern *regexp.Regexp
}

// NewRules compiles the built-in keyword table.
func NewRules() *Rules {
	r := &Rules{ordered: make([]compiledSet, 0, len(keywordSets))}
	for _, set := range keywordSets {
		quoted := make([]string, len(set.keywords))
		for i, kw := range set.keywords {
			quoted[i] = regexp.QuoteMeta(kw)
		}
		// Word-boundary match so "insure" never claims "insurance".
		expr := `(?i)\b(` + strings.Join(quoted, "|") + `)\b`
		r.ordered = append(r.ordered, compiledSet{
			name:    set.name,
			pattern: regexp.MustCompile(expr),
		})
	}
	return r
}

// Categorize maps a description to a category label.
//
// Fixed transactions short-circuit every keyword rule: they are labelled by
// direction only. Otherwise categories are tried in declaration order and the
// first whose keyword set matches a whole word of the description wins.
// A non-match is not an error; it is the Fallback result.
func (r *Rules) Categorize(description string, isFixed bool, txType core.TransactionType) string {
	if isFixed {
		if txType == core.Income {
			return FixedIncome
		}
		return FixedExpenses
	}
	for _, set := range r.ordered {
		if set.pattern.MatchString(description) {
			return set.name
		}
	}
	return Fallback
}

// Canonical returns the canonical category set, in declaration order, with the
// fallback label last.
func (r *Rules) Canonical() []string {
	out := make([]string, 0, len(r.ordered)+1)
	for _, set := range r.ordered {
		out = append(out, set.name)
	}
	return append(out, Fallback)
}
