package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// AuditReader is the storage view the audit mirror needs.
type AuditReader interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
}

// AuditService mirrors transaction sync events into an append-only log, one
// JSON record per line. It is the consumer-side counterpart of the sync
// events the API publishes.
type AuditService struct {
	store AuditReader

	mu  sync.Mutex
	enc *json.Encoder
}

type auditRecord struct {
	Action      string    `json:"action"`
	ID          int64     `json:"id"`
	OccurredAt  time.Time `json:"occurred_at"`
	RecordedAt  time.Time `json:"recorded_at"`
	Date        string    `json:"date,omitempty"`
	Description string    `json:"description,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Category    string    `json:"category,omitempty"`
	Type        string    `json:"type,omitempty"`
}

func NewAuditService(store AuditReader, w io.Writer) *AuditService {
	return &AuditService{store: store, enc: json.NewEncoder(w)}
}

// HandleSync records one sync event. Deletions are written as tombstones
// straight from the message. Creates and updates are enriched with the
// current row; a row that vanished in the meantime is recorded as a
// tombstone too, so the event is never requeued for it. Any other error is
// returned so the delivery can be retried.
func (s *AuditService) HandleSync(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	rec := auditRecord{
		Action:     msg.Action,
		ID:         msg.ID,
		OccurredAt: msg.Timestamp,
		RecordedAt: time.Now().UTC(),
	}

	if msg.Action != amqp.ActionDeleted {
		tx, err := s.store.GetTransaction(ctx, msg.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			slog.WarnContext(ctx, "Transaction gone before audit, recording tombstone",
				"id", msg.ID, "action", msg.Action)
		case err != nil:
			return fmt.Errorf("load transaction %d for audit: %w", msg.ID, err)
		default:
			rec.Date = tx.Date.Format("2006-01-02")
			rec.Description = tx.Description
			rec.Amount = tx.Amount.String()
			rec.Category = tx.Category
			rec.Type = string(tx.Type)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}
