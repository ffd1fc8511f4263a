package stats

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func tx(year, month, day int, amount int64, txType core.TransactionType, category string) core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(year, month, day),
		Description: "t",
		Amount:      core.Money{Cents: amount},
		Category:    category,
		Type:        txType,
	}
}

func TestSummarizeTotals(t *testing.T) {
	agg := NewAggregator()
	transactions := []core.Transaction{
		tx(2024, 3, 1, 100000, core.Income, "Fixed Income"),
		tx(2024, 3, 5, 30000, core.Expense, "Food & Dining"),
		tx(2024, 3, 9, 20000, core.Expense, "Transportation"),
	}

	s := agg.Summarize(transactions, Filter{})
	if s.TotalIncome.Cents != 100000 {
		t.Errorf("total income = %d, want 100000", s.TotalIncome.Cents)
	}
	if s.TotalExpenses.Cents != 50000 {
		t.Errorf("total expenses = %d, want 50000", s.TotalExpenses.Cents)
	}
	if s.NetSavings.Cents != 50000 {
		t.Errorf("net savings = %d, want 50000", s.NetSavings.Cents)
	}
	if s.SavingRate != 0.5 {
		t.Errorf("saving rate = %v, want 0.5", s.SavingRate)
	}
}

func TestSummarizeZeroIncome(t *testing.T) {
	agg := NewAggregator()
	s := agg.Summarize([]core.Transaction{
		tx(2024, 1, 1, 5000, core.Expense, "Shopping"),
	}, Filter{})

	if s.SavingRate != 0 {
		t.Fatalf("saving rate with zero income = %v, want exactly 0", s.SavingRate)
	}
	if s.NetSavings.Cents != -5000 {
		t.Fatalf("net savings = %d, want -5000", s.NetSavings.Cents)
	}
}

func TestSummarizeBreakdownSumsToTotals(t *testing.T) {
	agg := NewAggregator()
	transactions := []core.Transaction{
		tx(2024, 2, 1, 120000, core.Income, "Fixed Income"),
		tx(2024, 2, 2, 4000, core.Income, "Variable Income"),
		tx(2024, 2, 3, 31000, core.Expense, "Food & Dining"),
		tx(2024, 2, 4, 2599, core.Expense, "Food & Dining"),
		tx(2024, 2, 5, 7800, core.Expense, "Entertainment"),
	}

	s := agg.Summarize(transactions, Filter{})

	var expenseSum, expenseCount int64
	for _, cs := range s.ExpensesByCategory {
		expenseSum += cs.Total.Cents
		expenseCount += int64(cs.Count)
	}
	if expenseSum != s.TotalExpenses.Cents {
		t.Errorf("expense breakdown sum %d != total %d", expenseSum, s.TotalExpenses.Cents)
	}
	if expenseCount != 3 {
		t.Errorf("expense count = %d, want 3", expenseCount)
	}

	var incomeSum int64
	for _, cs := range s.IncomeByCategory {
		incomeSum += cs.Total.Cents
	}
	if incomeSum != s.TotalIncome.Cents {
		t.Errorf("income breakdown sum %d != total %d", incomeSum, s.TotalIncome.Cents)
	}

	food := s.ExpensesByCategory["Food & Dining"]
	if food.Total.Cents != 33599 || food.Count != 2 {
		t.Errorf("Food & Dining = %+v", food)
	}
}

func TestSummarizeFilters(t *testing.T) {
	agg := NewAggregator()
	transactions := []core.Transaction{
		tx(2024, 1, 15, 1000, core.Expense, "Shopping"),
		tx(2024, 2, 15, 2000, core.Expense, "Shopping"),
		tx(2024, 2, 20, 3000, core.Expense, "Food & Dining"),
		tx(2024, 2, 20, 9000, core.Income, "Variable Income"),
		tx(2024, 3, 1, 4000, core.Expense, "Shopping"),
	}

	tests := []struct {
		name         string
		filter       Filter
		wantExpenses int64
		wantIncome   int64
	}{
		{"unfiltered", Filter{}, 10000, 9000},
		{"date range", Filter{Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 2, 28)}, 5000, 9000},
		{"category", Filter{Category: "Shopping"}, 7000, 0},
		{"type", Filter{Type: core.Income}, 0, 9000},
		{"combined", Filter{Start: core.NewDate(2024, 2, 1), Category: "Shopping"}, 6000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := agg.Summarize(transactions, tt.filter)
			if s.TotalExpenses.Cents != tt.wantExpenses {
				t.Errorf("expenses = %d, want %d", s.TotalExpenses.Cents, tt.wantExpenses)
			}
			if s.TotalIncome.Cents != tt.wantIncome {
				t.Errorf("income = %d, want %d", s.TotalIncome.Cents, tt.wantIncome)
			}
		})
	}
}

func TestTrendRollover(t *testing.T) {
	agg := NewAggregator()
	transactions := []core.Transaction{
		// Before the window: net +100.00 carried in as the seed.
		tx(2023, 10, 5, 25000, core.Income, "Fixed Income"),
		tx(2023, 11, 5, 15000, core.Expense, "Shopping"),
		// Window months.
		tx(2024, 1, 10, 50000, core.Income, "Fixed Income"),
		tx(2024, 1, 12, 20000, core.Expense, "Housing"),
		tx(2024, 2, 10, 50000, core.Income, "Fixed Income"),
		tx(2024, 2, 12, 70000, core.Expense, "Housing"),
		tx(2024, 3, 10, 10000, core.Income, "Variable Income"),
	}

	trend := agg.Trend(transactions, 2024, time.March, 3)
	if len(trend) != 3 {
		t.Fatalf("trend length = %d, want 3", len(trend))
	}

	jan, feb, mar := trend[0], trend[1], trend[2]
	if jan.Month != time.January || mar.Month != time.March {
		t.Fatalf("window months wrong: %v..%v", jan.Month, mar.Month)
	}
	if jan.Available.Cents != 30000 || jan.Rollover.Cents != 40000 {
		t.Errorf("jan = %+v", jan)
	}
	if feb.Available.Cents != -20000 || feb.Rollover.Cents != 20000 {
		t.Errorf("feb = %+v", feb)
	}
	if mar.Available.Cents != 10000 || mar.Rollover.Cents != 30000 {
		t.Errorf("mar = %+v", mar)
	}
}

func TestTrendWindowCrossesYear(t *testing.T) {
	agg := NewAggregator()
	transactions := []core.Transaction{
		tx(2023, 12, 1, 1000, core.Income, "Variable Income"),
		tx(2024, 1, 1, 2000, core.Income, "Variable Income"),
	}
	trend := agg.Trend(transactions, 2024, time.January, 2)
	if len(trend) != 2 {
		t.Fatalf("trend length = %d", len(trend))
	}
	if trend[0].Year != 2023 || trend[0].Month != time.December {
		t.Errorf("first month = %d-%v", trend[0].Year, trend[0].Month)
	}
	if trend[1].Rollover.Cents != 3000 {
		t.Errorf("rollover = %d, want 3000", trend[1].Rollover.Cents)
	}
}

func TestRolloverBefore(t *testing.T) {
	agg := NewAggregator()
	transactions := []core.Transaction{
		tx(2024, 1, 1, 5000, core.Income, "Fixed Income"),
		tx(2024, 1, 20, 2000, core.Expense, "Shopping"),
		tx(2024, 2, 1, 9999, core.Expense, "Shopping"), // on the boundary, excluded
	}
	got := agg.RolloverBefore(transactions, core.NewDate(2024, 2, 1))
	if got.Cents != 3000 {
		t.Fatalf("rollover = %d, want 3000", got.Cents)
	}
}
