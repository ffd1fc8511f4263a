// Package recurrence materializes concrete transactions from fixed
// transaction templates on a monthly, quarterly, or yearly schedule.
package recurrence

import (
	"time"

	"fintrack/internal/core"
)

// due reports whether a frequency fires for the target date's month.
// Quarterly fires in the first month of each quarter (January, April, July,
// October); yearly fires in January only.
var due = map[core.Frequency]func(time.Time) bool{
	core.Monthly:   func(time.Time) bool { return true },
	core.Quarterly: func(t time.Time) bool { return int(t.Month())%3 == 1 },
	core.Yearly:    func(t time.Time) bool { return t.Month() == time.January },
}

// Engine decides which fixed-transaction templates spawn an instance for a
// given period. It is pure: returned transactions are unsaved, and persistence
// (including the all-or-nothing batch write) belongs to the caller.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Materialize returns one new transaction per template that is due on
// targetDate. Each instance copies the template's description, amount,
// category, type, fixed flag and frequency, and is dated targetDate.
//
// Templates with a missing or unsupported frequency never materialize; that is
// not an error. No deduplication against previously materialized transactions
// happens here; callers must invoke at most once per calendar period or
// accept duplicates.
func (e *Engine) Materialize(templates []core.Transaction, targetDate time.Time) []core.Transaction {
	var out []core.Transaction
	for _, tmpl := range templates {
		if !tmpl.IsFixed {
			continue
		}
		check, ok := due[tmpl.Frequency]
		if !ok || !check(targetDate) {
			continue
		}
		out = append(out, core.Transaction{
			Date:        targetDate,
			Description: tmpl.Description,
			Amount:      tmpl.Amount,
			Category:    tmpl.Category,
			Type:        tmpl.Type,
			IsFixed:     true,
			Frequency:   tmpl.Frequency,
		})
	}
	return out
}
