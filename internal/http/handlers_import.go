package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxImportBody caps the accepted CSV upload size.
const maxImportBody = 10 << 20 // 10 MiB

// handleImport accepts a CSV upload, either as a multipart "file" field or as
// a raw text/csv body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	var csvReader io.Reader
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing file field in multipart form")
			return
		}
		defer file.Close()
		csvReader = file
	} else {
		csvReader = r.Body
	}

	result, err := s.importer.ImportCSV(r.Context(), csvReader)
	if err != nil {
		slog.ErrorContext(r.Context(), "CSV import failed", "error", err)
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("import failed: %v", err))
		return
	}

	s.invalidateStats()
	respondJSON(w, http.StatusOK, result)
}

// handleExport streams the matching transactions as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=transactions-%s.csv", time.Now().Format("2006-01-02")))

	count, err := s.exporter.ExportCSV(r.Context(), w, filter)
	if err != nil {
		// Headers are already out; the truncated body is the only signal left.
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
		return
	}

	slog.InfoContext(r.Context(), "CSV export served", "transactions", count)
}
