package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/category"
	"fintrack/internal/core"
)

// categorizeChunkSize bounds how many descriptions go into one model call.
const categorizeChunkSize = 20

// maxConcurrentChunks bounds parallel model calls during an import.
const maxConcurrentChunks = 4

var csvDateLayouts = []string{"2006-01-02", "02/01/2006"}

// FailedRow describes one CSV row that could not be imported. Row numbers are
// 1-based and count the header as row 1.
type FailedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a completed CSV import.
type ImportResult struct {
	BatchID  string      `json:"batch_id"`
	Imported int         `json:"imported"`
	Failed   []FailedRow `json:"failed_rows,omitempty"`
}

// ImportService ingests bank CSV exports. Valid rows are written in one
// all-or-nothing batch; invalid rows are reported back, never silently
// dropped.
type ImportService struct {
	store     Store
	publisher Publisher
	resolver  *category.Resolver
	maxRows   int
}

func NewImportService(store Store, publisher Publisher, resolver *category.Resolver, maxRows int) *ImportService {
	return &ImportService{
		store:     store,
		publisher: publisher,
		resolver:  resolver,
		maxRows:   maxRows,
	}
}

// ImportCSV parses the CSV stream and imports its rows. The header row must
// contain date, description and amount columns (any order, any case); type
// and category columns are optional. Amounts keep their absolute value, so
// bank exports with negative debits import cleanly. A missing type defaults
// to expense.
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read CSV header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return ImportResult{}, err
	}

	var (
		transactions []core.Transaction
		failed       []FailedRow
	)

	rowNum := 1 // header
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			failed = append(failed, FailedRow{Row: rowNum, Reason: fmt.Sprintf("malformed CSV: %v", err)})
			continue
		}
		if rowNum-1 > s.maxRows {
			return ImportResult{}, fmt.Errorf("too many rows: import limit is %d", s.maxRows)
		}

		t, reason := parseRow(record, cols)
		if reason != "" {
			failed = append(failed, FailedRow{Row: rowNum, Reason: reason})
			continue
		}
		transactions = append(transactions, t)
	}

	if err := s.categorize(ctx, transactions); err != nil {
		return ImportResult{}, err
	}

	if len(transactions) > 0 {
		if err := s.store.CreateTransactionsBatch(ctx, transactions); err != nil {
			return ImportResult{}, fmt.Errorf("import batch: %w", err)
		}
	}

	result := ImportResult{
		BatchID:  uuid.NewString(),
		Imported: len(transactions),
		Failed:   failed,
	}

	slog.InfoContext(ctx, "CSV import finished",
		"batch_id", result.BatchID,
		"imported", result.Imported,
		"failed_rows", len(result.Failed))

	if s.publisher != nil {
		if err := s.publisher.PublishBatchImported(ctx, result.BatchID, result.Imported, len(result.Failed)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish batch imported message",
				"batch_id", result.BatchID,
				"error", err)
		}
	}

	return result, nil
}

type columnMap struct {
	date        int
	description int
	amount      int
	txType      int // -1 when absent
	category    int // -1 when absent
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{date: -1, description: -1, amount: -1, txType: -1, category: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			cols.date = i
		case "description":
			cols.description = i
		case "amount":
			cols.amount = i
		case "type":
			cols.txType = i
		case "category":
			cols.category = i
		}
	}

	var missing []string
	if cols.date == -1 {
		missing = append(missing, "date")
	}
	if cols.description == -1 {
		missing = append(missing, "description")
	}
	if cols.amount == -1 {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return columnMap{}, fmt.Errorf("CSV header missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(record []string, cols columnMap) (core.Transaction, string) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	dateStr := field(cols.date)
	var date time.Time
	var err error
	for _, layout := range csvDateLayouts {
		date, err = time.ParseInLocation(layout, dateStr, time.UTC)
		if err == nil {
			break
		}
	}
	if err != nil {
		return core.Transaction{}, fmt.Sprintf("invalid date %q", dateStr)
	}

	description := field(cols.description)
	if description == "" {
		return core.Transaction{}, "empty description"
	}

	amountStr := field(cols.amount)
	cents, err := core.ParseSignedDecimalToCents(amountStr)
	if err != nil {
		return core.Transaction{}, fmt.Sprintf("invalid amount %q", amountStr)
	}

	// Unrecognized type values coerce to expense rather than failing the row.
	txType := core.Expense
	if strings.ToLower(field(cols.txType)) == string(core.Income) {
		txType = core.Income
	}

	return core.Transaction{
		Date:        date,
		Description: description,
		Amount:      core.Money{Cents: cents},
		Category:    field(cols.category),
		Type:        txType,
	}, ""
}

// categorize fills in missing categories, batching descriptions into chunks
// that are resolved concurrently. Each chunk writes only its own slice range.
func (s *ImportService) categorize(ctx context.Context, transactions []core.Transaction) error {
	var pending []int
	for i, t := range transactions {
		if t.Category == "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if s.resolver == nil {
		for _, i := range pending {
			transactions[i].Category = category.Fallback
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunks)

	for start := 0; start < len(pending); start += categorizeChunkSize {
		end := start + categorizeChunkSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		g.Go(func() error {
			descriptions := make([]string, len(chunk))
			for j, i := range chunk {
				descriptions[j] = transactions[i].Description
			}
			categories := s.resolver.ResolveBatch(gctx, descriptions)
			for j, i := range chunk {
				transactions[i].Category = categories[j]
			}
			return nil
		})
	}

	return g.Wait()
}
