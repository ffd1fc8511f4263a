// Package services orchestrates transactions across storage, categorization
// and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/category"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Store is the persistence surface the services need.
type Store interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	CreateTransactionsBatch(ctx context.Context, ts []core.Transaction) error
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, p storage.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	GetFixedTransactions(ctx context.Context, frequency core.Frequency) ([]core.Transaction, error)
}

// Publisher is the event surface the services need.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id int64, action string) error
	PublishBatchImported(ctx context.Context, batchID string, imported, failedRows int) error
}

// TransactionService orchestrates transaction operations across SQLite,
// the category resolver and AMQP.
type TransactionService struct {
	store     Store
	publisher Publisher
	resolver  *category.Resolver
}

func NewTransactionService(store Store, publisher Publisher, resolver *category.Resolver) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		resolver:  resolver,
	}
}

// CreateTransactionRequest carries the fields a caller may supply when
// recording a transaction. Category is optional: when empty the resolver
// assigns one from the description.
type CreateTransactionRequest struct {
	Date        time.Time
	Description string
	Amount      core.Money
	Category    string
	Type        core.TransactionType
	IsFixed     bool
	Frequency   core.Frequency
}

// Create resolves the category, validates and saves the transaction, then
// publishes a created event. Publishing failures are logged, never returned:
// the save already succeeded.
func (s *TransactionService) Create(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	cat := s.resolveCategory(ctx, req.Description, req.IsFixed, req.Type, req.Category)

	t := core.Transaction{
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    cat,
		Type:        req.Type,
		IsFixed:     req.IsFixed,
		Frequency:   req.Frequency,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	s.publishSync(ctx, id, amqp.ActionCreated)

	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// Update applies a partial update and publishes an updated event. Setting the
// fixed flag to false clears the frequency in the same write.
func (s *TransactionService) Update(ctx context.Context, id int64, p storage.TransactionPatch) (core.Transaction, error) {
	t, err := s.store.UpdateTransaction(ctx, id, p)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishSync(ctx, id, amqp.ActionUpdated)

	return t, nil
}

// Delete removes a transaction and publishes a deleted event.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.publishSync(ctx, id, amqp.ActionDeleted)

	return nil
}

// SuggestCategory resolves a category for a description without saving
// anything.
func (s *TransactionService) SuggestCategory(ctx context.Context, description string, isFixed bool, txType core.TransactionType) string {
	return s.resolveCategory(ctx, description, isFixed, txType, "")
}

func (s *TransactionService) resolveCategory(ctx context.Context, description string, isFixed bool, txType core.TransactionType, explicit string) string {
	if s.resolver == nil {
		if explicit != "" {
			return explicit
		}
		return category.Fallback
	}
	return s.resolver.Resolve(ctx, description, isFixed, txType, explicit)
}

func (s *TransactionService) publishSync(ctx context.Context, id int64, action string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping sync message", "id", id, "action", action)
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id,
			"action", action,
			"error", err)
	}
}
