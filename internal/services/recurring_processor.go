package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/recurrence"
	"fintrack/internal/storage"
)

// RecurringPublisher announces completed recurring runs.
type RecurringPublisher interface {
	PublishRecurringProcessed(ctx context.Context, period string, created int) error
}

// RecurringProcessor materializes transactions from fixed templates once per
// calendar period. Duplicate protection is by description and type within the
// target month, so re-running in the same period is safe.
type RecurringProcessor struct {
	store     Store
	publisher RecurringPublisher
	engine    *recurrence.Engine
}

func NewRecurringProcessor(store Store, publisher RecurringPublisher) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
		engine:    recurrence.NewEngine(),
	}
}

// ProcessDueTransactions creates the transactions due for now's month and
// returns how many were created. Candidates already present in the month are
// skipped; the remainder is written in one all-or-nothing batch.
func (p *RecurringProcessor) ProcessDueTransactions(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.store.GetFixedTransactions(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("load fixed templates: %w", err)
	}

	targetDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	candidates := p.engine.Materialize(templates, targetDate)

	slog.InfoContext(ctx, "Processing recurring transactions",
		"templates", len(templates),
		"due", len(candidates),
		"processing_date", targetDate.Format("2006-01-02"))

	if len(candidates) == 0 {
		return 0, nil
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	existing, err := p.store.ListTransactions(ctx, storage.TransactionFilter{
		Start: monthStart,
		End:   monthEnd,
	})
	if err != nil {
		return 0, fmt.Errorf("load current month transactions: %w", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[dedupKey(t)] = true
	}

	var toCreate []core.Transaction
	for _, c := range candidates {
		key := dedupKey(c)
		if seen[key] {
			slog.InfoContext(ctx, "Skipping already materialized transaction",
				"description", c.Description,
				"period", targetDate.Format("2006-01"))
			continue
		}
		seen[key] = true
		toCreate = append(toCreate, c)
	}

	if len(toCreate) == 0 {
		return 0, nil
	}

	if err := p.store.CreateTransactionsBatch(ctx, toCreate); err != nil {
		return 0, fmt.Errorf("save recurring batch: %w", err)
	}

	period := targetDate.Format("2006-01")
	if p.publisher != nil {
		if err := p.publisher.PublishRecurringProcessed(ctx, period, len(toCreate)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish recurring processed message",
				"period", period,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Recurring transactions created",
		"period", period,
		"created", len(toCreate))

	return len(toCreate), nil
}

func dedupKey(t core.Transaction) string {
	return string(t.Type) + "|" + t.Description
}
