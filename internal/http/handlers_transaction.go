package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type createTransactionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	IsFixed     bool   `json:"is_fixed"`
	Frequency   string `json:"frequency"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	case http.MethodGet:
		s.handleListTransactions(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	txType, err := parseTransactionType(req.Type)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	frequency, err := parseFrequency(req.Frequency)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tx, err := s.transactions.Create(r.Context(), services.CreateTransactionRequest{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(req.Category),
		Type:        txType,
		IsFixed:     req.IsFixed,
		Frequency:   frequency,
	})
	if err != nil {
		if isValidationError(err) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}

	s.invalidateStats()
	respondJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	respondJSON(w, http.StatusOK, toTransactionListJSON(transactions))
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/transactions/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetTransaction(w, r, id)
	case http.MethodPatch:
		s.handleUpdateTransaction(w, r, id)
	case http.MethodDelete:
		s.handleDeleteTransaction(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	tx, err := s.transactions.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to get transaction", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	respondJSON(w, http.StatusOK, toTransactionJSON(tx))
}

type updateTransactionRequest struct {
	Date        *string `json:"date"`
	Description *string `json:"description"`
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
	Type        *string `json:"type"`
	IsFixed     *bool   `json:"is_fixed"`
	Frequency   *string `json:"frequency"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var patch storage.TransactionPatch

	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
			return
		}
		patch.Date = &date
	}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		if desc == "" {
			respondError(w, http.StatusUnprocessableEntity, "description cannot be empty")
			return
		}
		patch.Description = &desc
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
		patch.Amount = &core.Money{Cents: cents}
	}
	if req.Category != nil {
		cat := sanitizeInput(*req.Category)
		if cat == "" {
			respondError(w, http.StatusUnprocessableEntity, "category cannot be empty")
			return
		}
		patch.Category = &cat
	}
	if req.Type != nil {
		txType, err := parseTransactionType(*req.Type)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		patch.Type = &txType
	}
	if req.IsFixed != nil {
		patch.IsFixed = req.IsFixed
	}
	if req.Frequency != nil {
		frequency, err := parseFrequency(*req.Frequency)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		patch.Frequency = &frequency
	}

	tx, err := s.transactions.Update(r.Context(), id, patch)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if isValidationError(err) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to update transaction", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}

	s.invalidateStats()
	respondJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	err := s.transactions.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}
	s.invalidateStats()
	w.WriteHeader(http.StatusNoContent)
}

type categorizeRequest struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	IsFixed     bool   `json:"is_fixed"`
}

type categorizeResponse struct {
	Category string `json:"category"`
}

// handleCategorize resolves a category without saving anything.
func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if sanitizeInput(req.Description) == "" {
		respondError(w, http.StatusUnprocessableEntity, "description cannot be empty")
		return
	}

	txType := core.Expense
	if req.Type != "" {
		parsed, err := parseTransactionType(req.Type)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		txType = parsed
	}

	cat := s.transactions.SuggestCategory(r.Context(), sanitizeInput(req.Description), req.IsFixed, txType)
	respondJSON(w, http.StatusOK, categorizeResponse{Category: cat})
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
		core.ErrEmptyDescription,
		core.ErrEmptyName,
		core.ErrEmptyCategory,
		core.ErrInvalidType,
		core.ErrInvalidFrequency,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
