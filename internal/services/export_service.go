package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"fintrack/internal/storage"
)

// ExportService writes transactions back out as CSV, mirroring the import
// column set. Categories are written verbatim.
type ExportService struct {
	store Store
}

func NewExportService(store Store) *ExportService {
	return &ExportService{store: store}
}

var exportHeader = []string{"date", "description", "amount", "type", "category", "is_fixed", "frequency"}

// ExportCSV streams transactions matching the filter to w, newest first.
func (s *ExportService) ExportCSV(ctx context.Context, w io.Writer, f storage.TransactionFilter) (int, error) {
	transactions, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("list transactions for export: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("write CSV header: %w", err)
	}

	for _, t := range transactions {
		fixed := "false"
		if t.IsFixed {
			fixed = "true"
		}
		record := []string{
			t.Date.Format("2006-01-02"),
			t.Description,
			t.Amount.String(),
			string(t.Type),
			t.Category,
			fixed,
			string(t.Frequency),
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("flush CSV: %w", err)
	}

	return len(transactions), nil
}
