package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/category"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// BillStore is the bill persistence surface.
type BillStore interface {
	CreateBill(ctx context.Context, b core.Bill) (int64, error)
	GetBill(ctx context.Context, id int64) (core.Bill, error)
	ListBills(ctx context.Context, f storage.BillFilter) ([]core.Bill, error)
	UpdateBill(ctx context.Context, id int64, p storage.BillPatch) (core.Bill, error)
}

// BillService manages upcoming bills.
type BillService struct {
	store    BillStore
	resolver *category.Resolver
}

func NewBillService(store BillStore, resolver *category.Resolver) *BillService {
	return &BillService{store: store, resolver: resolver}
}

type CreateBillRequest struct {
	Name        string
	Amount      core.Money
	DueDate     time.Time
	Category    string
	IsRecurring bool
	Frequency   core.Frequency
}

func (s *BillService) Create(ctx context.Context, req CreateBillRequest) (core.Bill, error) {
	cat := req.Category
	if s.resolver != nil {
		// Bills are obligations, so categorize them as expenses.
		cat = s.resolver.Resolve(ctx, req.Name, false, core.Expense, req.Category)
	} else if cat == "" {
		cat = category.Fallback
	}

	b := core.Bill{
		Name:        req.Name,
		Amount:      req.Amount,
		DueDate:     req.DueDate,
		Category:    cat,
		IsRecurring: req.IsRecurring,
		Frequency:   req.Frequency,
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, fmt.Errorf("validate bill: %w", err)
	}

	id, err := s.store.CreateBill(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	b.ID = id

	return b, nil
}

func (s *BillService) Get(ctx context.Context, id int64) (core.Bill, error) {
	return s.store.GetBill(ctx, id)
}

func (s *BillService) List(ctx context.Context, f storage.BillFilter) ([]core.Bill, error) {
	return s.store.ListBills(ctx, f)
}

func (s *BillService) Update(ctx context.Context, id int64, p storage.BillPatch) (core.Bill, error) {
	return s.store.UpdateBill(ctx, id, p)
}

// DueWithin returns bills due between now and now plus the window, soonest
// first.
func (s *BillService) DueWithin(ctx context.Context, now time.Time, window time.Duration) ([]core.Bill, error) {
	return s.store.ListBills(ctx, storage.BillFilter{
		Start: now,
		End:   now.Add(window),
	})
}
