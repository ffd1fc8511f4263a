package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

type categoryStatJSON struct {
	Total string `json:"total"`
	Count int    `json:"count"`
}

type summaryJSON struct {
	TotalIncome        string                      `json:"total_income"`
	TotalExpenses      string                      `json:"total_expenses"`
	NetSavings         string                      `json:"net_savings"`
	SavingRate         float64                     `json:"saving_rate"`
	ExpensesByCategory map[string]categoryStatJSON `json:"expenses_by_category"`
	IncomeByCategory   map[string]categoryStatJSON `json:"income_by_category"`
}

func toSummaryJSON(s stats.Summary) summaryJSON {
	out := summaryJSON{
		TotalIncome:        s.TotalIncome.String(),
		TotalExpenses:      s.TotalExpenses.String(),
		NetSavings:         s.NetSavings.String(),
		SavingRate:         s.SavingRate,
		ExpensesByCategory: make(map[string]categoryStatJSON, len(s.ExpensesByCategory)),
		IncomeByCategory:   make(map[string]categoryStatJSON, len(s.IncomeByCategory)),
	}
	for cat, cs := range s.ExpensesByCategory {
		out.ExpensesByCategory[cat] = categoryStatJSON{Total: cs.Total.String(), Count: cs.Count}
	}
	for cat, cs := range s.IncomeByCategory {
		out.IncomeByCategory[cat] = categoryStatJSON{Total: cs.Total.String(), Count: cs.Count}
	}
	return out
}

// handleMonthlyStats returns the summary for one calendar month.
func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	year, month := parseYearMonth(r)
	cacheKey := fmt.Sprintf("monthly:%04d-%02d", year, month)

	cached, hit := s.statsCache.Get(cacheKey)
	if !hit {
		start := core.NewDate(year, month, 1)
		end := start.AddDate(0, 1, -1)

		transactions, err := s.transactions.List(r.Context(), storage.TransactionFilter{Start: start, End: end})
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to load transactions for monthly stats", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to compute statistics")
			return
		}

		cached = toSummaryJSON(s.aggregator.Summarize(transactions, stats.Filter{}))
		s.statsCache.Set(cacheKey, cached)
	}

	respondJSON(w, http.StatusOK, struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		summaryJSON
	}{year, month, cached})
}

// handleCategoryStats returns the per-category summary for an arbitrary date
// range, optionally narrowed by type.
func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Pagination has no meaning for aggregates.
	filter.Limit = 0
	filter.Offset = 0

	transactions, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions for category stats", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}

	summary := s.aggregator.Summarize(transactions, stats.Filter{})
	respondJSON(w, http.StatusOK, toSummaryJSON(summary))
}

type monthNetJSON struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Income    string `json:"income"`
	Expenses  string `json:"expenses"`
	Available string `json:"available"`
	Rollover  string `json:"rollover"`
}

type budgetJSON struct {
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	Available string         `json:"available"`
	Rollover  string         `json:"rollover"`
	Trend     []monthNetJSON `json:"trend"`
}

// handleBudget returns the budget view for a month: the month's available
// amount, the rollover carried in from all prior history, and a trailing
// trend window.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	year, month := parseYearMonth(r)
	months := 6
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 36 {
			respondError(w, http.StatusBadRequest, "invalid months, want 1-36")
			return
		}
		months = m
	}

	cacheKey := fmt.Sprintf("budget:%04d-%02d:%d", year, month, months)
	if cached, hit := s.budgetCache.Get(cacheKey); hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	transactions, err := s.transactions.List(r.Context(), storage.TransactionFilter{})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions for budget", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to compute budget")
		return
	}

	trend := s.aggregator.Trend(transactions, year, time.Month(month), months)

	out := budgetJSON{
		Year:  year,
		Month: month,
		Trend: make([]monthNetJSON, 0, len(trend)),
	}
	for _, m := range trend {
		out.Trend = append(out.Trend, monthNetJSON{
			Year:      m.Year,
			Month:     int(m.Month),
			Income:    m.Income.String(),
			Expenses:  m.Expenses.String(),
			Available: m.Available.String(),
			Rollover:  m.Rollover.String(),
		})
	}
	if len(trend) > 0 {
		last := trend[len(trend)-1]
		out.Available = last.Available.String()
		out.Rollover = last.Rollover.String()
	} else {
		out.Available = core.Money{}.String()
		out.Rollover = core.Money{}.String()
	}

	s.budgetCache.Set(cacheKey, out)
	respondJSON(w, http.StatusOK, out)
}
