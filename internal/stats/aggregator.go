// Package stats computes time-windowed summaries over transaction
// collections. All arithmetic is exact integer cents; floats appear only in
// the derived saving rate.
package stats

import (
	"time"

	"fintrack/internal/core"
)

// Filter restricts the transaction set a summary is computed over. Zero
// values mean "no restriction".
type Filter struct {
	Start    time.Time
	End      time.Time
	Category string
	Type     core.TransactionType
}

func (f Filter) matches(t core.Transaction) bool {
	if !f.Start.IsZero() && t.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && t.Date.After(f.End) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}

// CategoryStat is the per-category aggregate within one type partition.
type CategoryStat struct {
	Total core.Money
	Count int
}

// Summary holds the headline figures for a filtered transaction set.
type Summary struct {
	TotalIncome   core.Money
	TotalExpenses core.Money
	NetSavings    core.Money
	// SavingRate is net savings over income, exactly 0 when income is 0 so
	// downstream display never sees NaN.
	SavingRate float64
	// Breakdown by category, partitioned by transaction type.
	ExpensesByCategory map[string]CategoryStat
	IncomeByCategory   map[string]CategoryStat
}

// MonthNet is one month of a trend window.
type MonthNet struct {
	Year      int
	Month     time.Month
	Income    core.Money
	Expenses  core.Money
	Available core.Money // income - expenses for the month
	Rollover  core.Money // cumulative surplus/deficit carried into/through this month
}

// Aggregator is a pure reducer over transaction values; it holds no state.
type Aggregator struct{}

func NewAggregator() *Aggregator { return &Aggregator{} }

// Summarize computes totals, saving rate and the per-category breakdown for
// the transactions selected by f.
func (a *Aggregator) Summarize(transactions []core.Transaction, f Filter) Summary {
	s := Summary{
		ExpensesByCategory: make(map[string]CategoryStat),
		IncomeByCategory:   make(map[string]CategoryStat),
	}
	for _, t := range transactions {
		if !f.matches(t) {
			continue
		}
		switch t.Type {
		case core.Income:
			s.TotalIncome.Cents += t.Amount.Cents
			cs := s.IncomeByCategory[t.Category]
			cs.Total.Cents += t.Amount.Cents
			cs.Count++
			s.IncomeByCategory[t.Category] = cs
		case core.Expense:
			s.TotalExpenses.Cents += t.Amount.Cents
			cs := s.ExpensesByCategory[t.Category]
			cs.Total.Cents += t.Amount.Cents
			cs.Count++
			s.ExpensesByCategory[t.Category] = cs
		}
	}
	s.NetSavings.Cents = s.TotalIncome.Cents - s.TotalExpenses.Cents
	if s.TotalIncome.Cents > 0 {
		s.SavingRate = float64(s.NetSavings.Cents) / float64(s.TotalIncome.Cents)
	}
	return s
}

// Trend computes a window of months consecutive calendar months ending at the
// reference month, each with its income, expenses and net, plus a running
// rollover. The rollover is seeded with the net of every transaction strictly
// before the window start, then carries each month's surplus or deficit
// forward.
func (a *Aggregator) Trend(transactions []core.Transaction, refYear int, refMonth time.Month, months int) []MonthNet {
	if months <= 0 {
		return nil
	}
	windowStart := core.NewDate(refYear, int(refMonth), 1).AddDate(0, -(months - 1), 0)

	var rollover int64
	type ym struct {
		year  int
		month time.Month
	}
	income := make(map[ym]int64)
	expenses := make(map[ym]int64)

	for _, t := range transactions {
		if t.Date.Before(windowStart) {
			switch t.Type {
			case core.Income:
				rollover += t.Amount.Cents
			case core.Expense:
				rollover -= t.Amount.Cents
			}
			continue
		}
		key := ym{t.Date.Year(), t.Date.Month()}
		switch t.Type {
		case core.Income:
			income[key] += t.Amount.Cents
		case core.Expense:
			expenses[key] += t.Amount.Cents
		}
	}

	out := make([]MonthNet, 0, months)
	cursor := windowStart
	for i := 0; i < months; i++ {
		key := ym{cursor.Year(), cursor.Month()}
		in, ex := income[key], expenses[key]
		rollover += in - ex
		out = append(out, MonthNet{
			Year:      cursor.Year(),
			Month:     cursor.Month(),
			Income:    core.Money{Cents: in},
			Expenses:  core.Money{Cents: ex},
			Available: core.Money{Cents: in - ex},
			Rollover:  core.Money{Cents: rollover},
		})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}

// RolloverBefore returns the net of all transactions dated strictly before
// the given day.
func (a *Aggregator) RolloverBefore(transactions []core.Transaction, before time.Time) core.Money {
	var cents int64
	for _, t := range transactions {
		if !t.Date.Before(before) {
			continue
		}
		switch t.Type {
		case core.Income:
			cents += t.Amount.Cents
		case core.Expense:
			cents -= t.Amount.Cents
		}
	}
	return core.Money{Cents: cents}
}
