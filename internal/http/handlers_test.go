package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type fakeTransactionAPI struct {
	transactions map[int64]core.Transaction
	nextID       int64
	lastFilter   storage.TransactionFilter
	listErr      error
}

func newFakeTransactionAPI() *fakeTransactionAPI {
	return &fakeTransactionAPI{transactions: make(map[int64]core.Transaction)}
}

func (f *fakeTransactionAPI) Create(ctx context.Context, req services.CreateTransactionRequest) (core.Transaction, error) {
	cat := req.Category
	if cat == "" {
		cat = "Other"
	}
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
		return core.Transaction{}, err
	}
	f.nextID++
	t.ID = f.nextID
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeTransactionAPI) Get(ctx context.Context, id int64) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeTransactionAPI) List(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lastFilter = filter
	var out []core.Transaction
	for _, t := range f.transactions {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTransactionAPI) Update(ctx context.Context, id int64, p storage.TransactionPatch) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.IsFixed != nil {
		t.IsFixed = *p.IsFixed
		if !t.IsFixed {
			t.Frequency = ""
		}
	}
	f.transactions[id] = t
	return t, nil
}

func (f *fakeTransactionAPI) Delete(ctx context.Context, id int64) error {
	if _, ok := f.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeTransactionAPI) SuggestCategory(ctx context.Context, description string, isFixed bool, txType core.TransactionType) string {
	if isFixed {
		return "Fixed Expenses"
	}
	return "Other"
}

type fakeBillAPI struct {
	bills  map[int64]core.Bill
	nextID int64
}

func newFakeBillAPI() *fakeBillAPI {
	return &fakeBillAPI{bills: make(map[int64]core.Bill)}
}

func (f *fakeBillAPI) Create(ctx context.Context, req services.CreateBillRequest) (core.Bill, error) {
	b := core.Bill{
		Name:        req.Name,
		Amount:      req.Amount,
		DueDate:     req.DueDate,
		Category:    req.Category,
		IsRecurring: req.IsRecurring,
		Frequency:   req.Frequency,
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	f.nextID++
	b.ID = f.nextID
	f.bills[b.ID] = b
	return b, nil
}

func (f *fakeBillAPI) Get(ctx context.Context, id int64) (core.Bill, error) {
	b, ok := f.bills[id]
	if !ok {
		return core.Bill{}, storage.ErrNotFound
	}
	return b, nil
}

func (f *fakeBillAPI) List(ctx context.Context, filter storage.BillFilter) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range f.bills {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBillAPI) Update(ctx context.Context, id int64, p storage.BillPatch) (core.Bill, error) {
	b, ok := f.bills[id]
	if !ok {
		return core.Bill{}, storage.ErrNotFound
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	f.bills[id] = b
	return b, nil
}

type fakeImporter struct {
	received string
	result   services.ImportResult
	err      error
}

func (f *fakeImporter) ImportCSV(ctx context.Context, r io.Reader) (services.ImportResult, error) {
	data, _ := io.ReadAll(r)
	f.received = string(data)
	return f.result, f.err
}

type fakeExporter struct {
	payload string
}

func (f *fakeExporter) ExportCSV(ctx context.Context, w io.Writer, filter storage.TransactionFilter) (int, error) {
	_, _ = io.WriteString(w, f.payload)
	return strings.Count(f.payload, "\n"), nil
}

func newTestServer(tapi TransactionAPI, bapi BillAPI, imp ImportAPI, exp ExportAPI) *Server {
	return NewServer(":0", Deps{
		Transactions: tapi,
		Bills:        bapi,
		Importer:     imp,
		Exporter:     exp,
	})
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateTransaction(t *testing.T) {
	api := newFakeTransactionAPI()
	s := newTestServer(api, newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	body := `{"date":"2024-03-15","description":"Groceries","amount":"45.20","type":"expense"}`
	rec := doRequest(s, http.MethodPost, "/transactions", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var got transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if got.ID != 1 || got.Amount != "45.20" || got.Date != "2024-03-15" {
		t.Errorf("response = %+v", got)
	}
	if got.Category != "Other" {
		t.Errorf("Category = %q, want resolver result", got.Category)
	}
}

func TestHandleCreateTransaction_Invalid(t *testing.T) {
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed JSON", `{`, http.StatusBadRequest},
		{"bad date", `{"date":"15-03-2024","description":"x","amount":"1.00","type":"expense"}`, http.StatusUnprocessableEntity},
		{"bad amount", `{"date":"2024-03-15","description":"x","amount":"abc","type":"expense"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"date":"2024-03-15","description":"x","amount":"1.00","type":"transfer"}`, http.StatusUnprocessableEntity},
		{"empty description", `{"date":"2024-03-15","description":"","amount":"1.00","type":"expense"}`, http.StatusUnprocessableEntity},
		{"bad frequency", `{"date":"2024-03-15","description":"x","amount":"1.00","type":"expense","is_fixed":true,"frequency":"weekly"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/transactions", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandleTransactions_MethodNotAllowed(t *testing.T) {
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	rec := doRequest(s, http.MethodPut, "/transactions", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, "POST") {
		t.Errorf("Allow = %q, want POST listed", allow)
	}
}

func TestHandleListTransactions_FilterPassthrough(t *testing.T) {
	api := newFakeTransactionAPI()
	s := newTestServer(api, newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	rec := doRequest(s, http.MethodGet, "/transactions?start=2024-03-01&end=2024-03-31&category=Food+%26+Dining&type=expense&limit=10&offset=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	f := api.lastFilter
	if f.Start.Format("2006-01-02") != "2024-03-01" || f.End.Format("2006-01-02") != "2024-03-31" {
		t.Errorf("date range = %v..%v", f.Start, f.End)
	}
	if f.Category != "Food & Dining" || f.Type != core.Expense || f.Limit != 10 || f.Offset != 5 {
		t.Errorf("filter = %+v", f)
	}
}

func TestHandleListTransactions_BadQuery(t *testing.T) {
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	rec := doRequest(s, http.MethodGet, "/transactions?start=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTransactionByID(t *testing.T) {
	api := newFakeTransactionAPI()
	s := newTestServer(api, newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	created, err := api.Create(context.Background(), services.CreateTransactionRequest{
		Date:        core.NewDate(2024, 3, 15),
		Description: "Rent",
		Amount:      core.Money{Cents: 120000},
		Type:        core.Expense,
		IsFixed:     true,
		Frequency:   core.Monthly,
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("get", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, fmt.Sprintf("/transactions/%d", created.ID), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/transactions/999", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/transactions/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("patch clears frequency with fixed flag", func(t *testing.T) {
		rec := doRequest(s, http.MethodPatch, fmt.Sprintf("/transactions/%d", created.ID), `{"is_fixed":false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}
		var got transactionJSON
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.IsFixed || got.Frequency != "" {
			t.Errorf("response = %+v, want fixed flag and frequency cleared", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := doRequest(s, http.MethodDelete, fmt.Sprintf("/transactions/%d", created.ID), "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		rec = doRequest(s, http.MethodDelete, fmt.Sprintf("/transactions/%d", created.ID), "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d, want 404", rec.Code)
		}
	})
}

func TestHandleCategorize(t *testing.T) {
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	rec := doRequest(s, http.MethodPost, "/categorize", `{"description":"rent payment","is_fixed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var got categorizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Category != "Fixed Expenses" {
		t.Errorf("Category = %q, want Fixed Expenses", got.Category)
	}

	rec = doRequest(s, http.MethodPost, "/categorize", `{"description":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty description status = %d, want 422", rec.Code)
	}
}

func TestHandleBills(t *testing.T) {
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	body := `{"name":"Electricity","amount":"45.00","due_date":"2024-04-10","category":"Utilities"}`
	rec := doRequest(s, http.MethodPost, "/bills", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var created billJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Name != "Electricity" || created.Amount != "45.00" {
		t.Errorf("response = %+v", created)
	}

	rec = doRequest(s, http.MethodGet, fmt.Sprintf("/bills/%d", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}

	rec = doRequest(s, http.MethodPatch, fmt.Sprintf("/bills/%d", created.ID), `{"amount":"52.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, want 200", rec.Code)
	}
	var updated billJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Amount != "52.00" {
		t.Errorf("Amount = %q, want 52.00", updated.Amount)
	}
}

func TestHandleImport(t *testing.T) {
	imp := &fakeImporter{result: services.ImportResult{BatchID: "b-1", Imported: 2}}
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), imp, &fakeExporter{})
	defer s.rateLimiter.stop()

	csvBody := "date,description,amount\n2024-03-01,A,1.00\n2024-03-02,B,2.00\n"
	rec := doRequest(s, http.MethodPost, "/transactions/import", csvBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if imp.received != csvBody {
		t.Errorf("importer received %q", imp.received)
	}

	var got services.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.BatchID != "b-1" || got.Imported != 2 {
		t.Errorf("result = %+v", got)
	}
}

func TestHandleImport_Failure(t *testing.T) {
	imp := &fakeImporter{err: fmt.Errorf("CSV header missing required columns: date")}
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), imp, &fakeExporter{})
	defer s.rateLimiter.stop()

	rec := doRequest(s, http.MethodPost, "/transactions/import", "bogus")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHandleExport(t *testing.T) {
	exp := &fakeExporter{payload: "date,description,amount,type,category,is_fixed,frequency\n"}
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), &fakeImporter{}, exp)
	defer s.rateLimiter.stop()

	rec := doRequest(s, http.MethodGet, "/transactions/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "date,description") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleHealthAndReady(t *testing.T) {
	s := newTestServer(newFakeTransactionAPI(), newFakeBillAPI(), &fakeImporter{}, &fakeExporter{})
	defer s.rateLimiter.stop()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
