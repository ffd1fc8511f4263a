package services

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// fakeStore is an in-memory Store and BillStore for service tests.
type fakeStore struct {
	mu           sync.Mutex
	transactions map[int64]core.Transaction
	bills        map[int64]core.Bill
	nextID       int64

	createErr error
	batchErr  error
	listErr   error

	batchCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[int64]core.Transaction),
		bills:        make(map[int64]core.Bill),
	}
}

func (f *fakeStore) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	f.transactions[t.ID] = t
	return t.ID, nil
}

func (f *fakeStore) CreateTransactionsBatch(ctx context.Context, ts []core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.batchErr != nil {
		return f.batchErr
	}
	for _, t := range ts {
		f.nextID++
		t.ID = f.nextID
		f.transactions[t.ID] = t
	}
	return nil
}

func (f *fakeStore) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, t := range f.transactions {
		if !filter.Start.IsZero() && t.Date.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && t.Date.After(filter.End) {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Fixed != nil && t.IsFixed != *filter.Fixed {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) UpdateTransaction(ctx context.Context, id int64, p storage.TransactionPatch) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.IsFixed != nil {
		t.IsFixed = *p.IsFixed
		if !t.IsFixed {
			t.Frequency = ""
			p.Frequency = nil
		}
	}
	if p.Frequency != nil {
		if *p.Frequency != "" && !t.IsFixed {
			return core.Transaction{}, core.ErrInvalidFrequency
		}
		t.Frequency = *p.Frequency
	}
	f.transactions[id] = t
	return t, nil
}

func (f *fakeStore) DeleteTransaction(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeStore) GetFixedTransactions(ctx context.Context, frequency core.Frequency) ([]core.Transaction, error) {
	fixed := true
	ts, err := f.ListTransactions(ctx, storage.TransactionFilter{Fixed: &fixed})
	if err != nil {
		return nil, err
	}
	if frequency == "" {
		return ts, nil
	}
	var out []core.Transaction
	for _, t := range ts {
		if t.Frequency == frequency {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateBill(ctx context.Context, b core.Bill) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	f.bills[b.ID] = b
	return b.ID, nil
}

func (f *fakeStore) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[id]
	if !ok {
		return core.Bill{}, storage.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) ListBills(ctx context.Context, filter storage.BillFilter) ([]core.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Bill
	for _, b := range f.bills {
		if !filter.Start.IsZero() && b.DueDate.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && b.DueDate.After(filter.End) {
			continue
		}
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if filter.Recurring != nil && b.IsRecurring != *filter.Recurring {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) UpdateBill(ctx context.Context, id int64, p storage.BillPatch) (core.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[id]
	if !ok {
		return core.Bill{}, storage.ErrNotFound
	}
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.DueDate != nil {
		b.DueDate = *p.DueDate
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.IsRecurring != nil {
		b.IsRecurring = *p.IsRecurring
	}
	if p.Frequency != nil {
		b.Frequency = *p.Frequency
	}
	f.bills[id] = b
	return b, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu         sync.Mutex
	syncEvents []string
	batches    []string
	recurring  []string
	publishErr error
}

func (p *fakePublisher) PublishTransactionSync(ctx context.Context, id int64, action string) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncEvents = append(p.syncEvents, fmt.Sprintf("%s:%d", action, id))
	return nil
}

func (p *fakePublisher) PublishBatchImported(ctx context.Context, batchID string, imported, failedRows int) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, fmt.Sprintf("%s:%d:%d", batchID, imported, failedRows))
	return nil
}

func (p *fakePublisher) PublishRecurringProcessed(ctx context.Context, period string, created int) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recurring = append(p.recurring, fmt.Sprintf("%s:%d", period, created))
	return nil
}
