package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type createBillRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	Category    string `json:"category"`
	IsRecurring bool   `json:"is_recurring"`
	Frequency   string `json:"frequency"`
}

func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateBill(w, r)
	case http.MethodGet:
		s.handleListBills(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid due_date, want YYYY-MM-DD")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	frequency, err := parseFrequency(req.Frequency)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	bill, err := s.bills.Create(r.Context(), services.CreateBillRequest{
		Name:        sanitizeInput(req.Name),
		Amount:      core.Money{Cents: cents},
		DueDate:     dueDate,
		Category:    sanitizeInput(req.Category),
		IsRecurring: req.IsRecurring,
		Frequency:   frequency,
	})
	if err != nil {
		if isValidationError(err) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create bill", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save bill")
		return
	}

	respondJSON(w, http.StatusCreated, toBillJSON(bill))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	var filter storage.BillFilter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("start")); v != "" {
		start, err := parseDate(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		filter.Start = start
	}
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		end, err := parseDate(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		filter.End = end
	}
	filter.Category = strings.TrimSpace(q.Get("category"))
	if v := strings.TrimSpace(q.Get("recurring")); v != "" {
		recurring := v == "true"
		filter.Recurring = &recurring
	}

	bills, err := s.bills.List(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list bills", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list bills")
		return
	}

	out := make([]billJSON, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillJSON(b))
	}
	respondJSON(w, http.StatusOK, out)
}

type updateBillRequest struct {
	Name        *string `json:"name"`
	Amount      *string `json:"amount"`
	DueDate     *string `json:"due_date"`
	Category    *string `json:"category"`
	IsRecurring *bool   `json:"is_recurring"`
	Frequency   *string `json:"frequency"`
}

func (s *Server) handleBillByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/bills/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid bill id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		bill, err := s.bills.Get(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "bill not found")
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to get bill", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to get bill")
			return
		}
		respondJSON(w, http.StatusOK, toBillJSON(bill))
	case http.MethodPatch:
		s.handleUpdateBill(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch)
	}
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var patch storage.BillPatch

	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		if name == "" {
			respondError(w, http.StatusUnprocessableEntity, "name cannot be empty")
			return
		}
		patch.Name = &name
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
		patch.Amount = &core.Money{Cents: cents}
	}
	if req.DueDate != nil {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "invalid due_date, want YYYY-MM-DD")
			return
		}
		patch.DueDate = &dueDate
	}
	if req.Category != nil {
		cat := sanitizeInput(*req.Category)
		patch.Category = &cat
	}
	if req.IsRecurring != nil {
		patch.IsRecurring = req.IsRecurring
	}
	if req.Frequency != nil {
		frequency, err := parseFrequency(*req.Frequency)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		patch.Frequency = &frequency
	}

	bill, err := s.bills.Update(r.Context(), id, patch)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "bill not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to update bill", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update bill")
		return
	}

	respondJSON(w, http.StatusOK, toBillJSON(bill))
}
