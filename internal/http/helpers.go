package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, time.UTC)
}

// parseYearMonth extracts year and month from query parameters, defaulting to
// the current year and month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	return year, month
}

// pathID extracts the numeric ID after the given prefix, e.g. /transactions/42.
func pathID(path, prefix string) (int64, error) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, fmt.Errorf("invalid path %q", path)
	}
	return strconv.ParseInt(rest, 10, 64)
}

// transactionFilterFromQuery builds a storage filter from list query
// parameters: start, end, category, type, limit, offset.
func transactionFilterFromQuery(r *http.Request) (storage.TransactionFilter, error) {
	var f storage.TransactionFilter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("start")); v != "" {
		start, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid start date %q", v)
		}
		f.Start = start
	}
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		end, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid end date %q", v)
		}
		f.End = end
	}
	f.Category = strings.TrimSpace(q.Get("category"))
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		txType, err := parseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = txType
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = limit
	}
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return f, fmt.Errorf("invalid offset %q", v)
		}
		f.Offset = offset
	}

	return f, nil
}

func parseTransactionType(s string) (core.TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(core.Expense):
		return core.Expense, nil
	case string(core.Income):
		return core.Income, nil
	}
	return "", fmt.Errorf("invalid type %q", s)
}

func parseFrequency(s string) (core.Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case string(core.Monthly):
		return core.Monthly, nil
	case string(core.Quarterly):
		return core.Quarterly, nil
	case string(core.Yearly):
		return core.Yearly, nil
	}
	return "", fmt.Errorf("invalid frequency %q", s)
}

// transactionJSON is the wire shape of a transaction. Amounts travel as
// decimal strings so clients never see raw cents.
type transactionJSON struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	IsFixed     bool   `json:"is_fixed"`
	Frequency   string `json:"frequency,omitempty"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date.Format("2006-01-02"),
		Description: t.Description,
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Type:        string(t.Type),
		IsFixed:     t.IsFixed,
		Frequency:   string(t.Frequency),
	}
}

func toTransactionListJSON(ts []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type billJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	Category    string `json:"category"`
	IsRecurring bool   `json:"is_recurring"`
	Frequency   string `json:"frequency,omitempty"`
}

func toBillJSON(b core.Bill) billJSON {
	return billJSON{
		ID:          b.ID,
		Name:        b.Name,
		Amount:      b.Amount.String(),
		DueDate:     b.DueDate.Format("2006-01-02"),
		Category:    b.Category,
		IsRecurring: b.IsRecurring,
		Frequency:   string(b.Frequency),
	}
}
