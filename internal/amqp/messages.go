package amqp

import (
	"encoding/json"
	"time"
)

// Transaction event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TransactionSyncMessage is a lightweight change notification. It carries only
// the transaction ID and action; consumers fetch the full record themselves.
type TransactionSyncMessage struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id int64, action string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RecurringProcessedMessage announces a completed recurring materialization
// run for one calendar period.
type RecurringProcessedMessage struct {
	Period    string    `json:"period"`
	Created   int       `json:"created"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecurringProcessedMessage(period string, created int) *RecurringProcessedMessage {
	return &RecurringProcessedMessage{
		Period:    period,
		Created:   created,
		Timestamp: time.Now(),
	}
}

func (m *RecurringProcessedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BatchImportedMessage announces a completed CSV import batch.
type BatchImportedMessage struct {
	BatchID    string    `json:"batch_id"`
	Imported   int       `json:"imported"`
	FailedRows int       `json:"failed_rows"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewBatchImportedMessage(batchID string, imported, failedRows int) *BatchImportedMessage {
	return &BatchImportedMessage{
		BatchID:    batchID,
		Imported:   imported,
		FailedRows: failedRows,
		Timestamp:  time.Now(),
	}
}

func (m *BatchImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BatchImportedMessageFromJSON(data []byte) (*BatchImportedMessage, error) {
	var msg BatchImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
