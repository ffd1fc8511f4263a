// Package storage persists transactions and bills in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// ErrNotFound is returned when a transaction or bill does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	Start    time.Time
	End      time.Time
	Category string
	Type     core.TransactionType
	Fixed    *bool
	Limit    int
	Offset   int
}

// TransactionPatch carries a partial update: only non-nil fields change.
type TransactionPatch struct {
	Date        *time.Time
	Description *string
	Amount      *core.Money
	Category    *string
	Type        *core.TransactionType
	IsFixed     *bool
	Frequency   *core.Frequency
}

// BillPatch carries a partial bill update.
type BillPatch struct {
	Name        *string
	Amount      *core.Money
	DueDate     *time.Time
	Category    *string
	IsRecurring *bool
	Frequency   *core.Frequency
}

func frequencyValue(f core.Frequency) any {
	if f == "" {
		return nil
	}
	return string(f)
}

// CreateTransaction inserts one transaction and returns its id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (date, description, amount_cents, category, type, is_fixed, frequency)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Date.Format(dateLayout), t.Description, t.Amount.Cents, t.Category,
		string(t.Type), t.IsFixed, frequencyValue(t.Frequency))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"category", t.Category,
		"type", t.Type)

	return id, nil
}

// CreateTransactionsBatch inserts all transactions inside one database
// transaction. On any failure the whole batch is rolled back: no partial
// commit is possible.
func (r *SQLiteRepository) CreateTransactionsBatch(ctx context.Context, ts []core.Transaction) error {
	if len(ts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (date, description, amount_cents, category, type, is_fixed, frequency)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range ts {
		if _, err := stmt.ExecContext(ctx,
			t.Date.Format(dateLayout), t.Description, t.Amount.Cents, t.Category,
			string(t.Type), t.IsFixed, frequencyValue(t.Frequency)); err != nil {
			return fmt.Errorf("insert batch item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch saved", "count", len(ts))
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, date, description, amount_cents, category, type, is_fixed, frequency, created_at, updated_at
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// ListTransactions returns transactions matching the filter, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT id, date, description, amount_cents, category, type, is_fixed, frequency, created_at, updated_at
		 FROM transactions`
	var conds []string
	var args []any

	if !f.Start.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.Start.Format(dateLayout))
	}
	if !f.End.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.End.Format(dateLayout))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Fixed != nil {
		conds = append(conds, "is_fixed = ?")
		args = append(args, *f.Fixed)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetFixedTransactions returns the recurrence templates: fixed transactions,
// optionally restricted to one frequency.
func (r *SQLiteRepository) GetFixedTransactions(ctx context.Context, frequency core.Frequency) ([]core.Transaction, error) {
	f := TransactionFilter{Fixed: boolPtr(true)}
	ts, err := r.ListTransactions(ctx, f)
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

// UpdateTransaction applies a partial update. Clearing the fixed flag also
// clears the frequency so the invariant "frequency implies fixed" holds.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, p TransactionPatch) (core.Transaction, error) {
	var sets []string
	var args []any

	if p.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, p.Date.Format(dateLayout))
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, p.Amount.Cents)
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *p.Category)
	}
	if p.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*p.Type))
	}
	if p.IsFixed != nil {
		sets = append(sets, "is_fixed = ?")
		args = append(args, *p.IsFixed)
		if !*p.IsFixed {
			sets = append(sets, "frequency = NULL")
			p.Frequency = nil
		}
	}
	if p.Frequency != nil {
		// A frequency may only land on a fixed row. The patch must set
		// is_fixed alongside it, or the row must already be fixed.
		if *p.Frequency != "" && p.IsFixed == nil {
			current, err := r.GetTransaction(ctx, id)
			if err != nil {
				return core.Transaction{}, err
			}
			if !current.IsFixed {
				return core.Transaction{}, fmt.Errorf("set frequency on non-fixed transaction %d: %w", id, core.ErrInvalidFrequency)
			}
		}
		sets = append(sets, "frequency = ?")
		args = append(args, frequencyValue(*p.Frequency))
	}
	if len(sets) == 0 {
		return r.GetTransaction(ctx, id)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id)
	return r.GetTransaction(ctx, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// CreateBill inserts a bill and returns its id.
func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (name, amount_cents, due_date, category, is_recurring, frequency)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.Name, b.Amount.Cents, b.DueDate.Format(dateLayout), b.Category,
		b.IsRecurring, frequencyValue(b.Frequency))
	if err != nil {
		return 0, fmt.Errorf("insert bill: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	slog.InfoContext(ctx, "Bill saved", "id", id, "name", b.Name, "amount_cents", b.Amount.Cents)
	return id, nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, amount_cents, due_date, category, is_recurring, frequency, created_at, updated_at
		 FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, ErrNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %d: %w", id, err)
	}
	return b, nil
}

// BillFilter narrows ListBills.
type BillFilter struct {
	Start     time.Time
	End       time.Time
	Category  string
	Recurring *bool
}

func (r *SQLiteRepository) ListBills(ctx context.Context, f BillFilter) ([]core.Bill, error) {
	query := `SELECT id, name, amount_cents, due_date, category, is_recurring, frequency, created_at, updated_at
		 FROM bills`
	var conds []string
	var args []any

	if !f.Start.IsZero() {
		conds = append(conds, "due_date >= ?")
		args = append(args, f.Start.Format(dateLayout))
	}
	if !f.End.IsZero() {
		conds = append(conds, "due_date <= ?")
		args = append(args, f.End.Format(dateLayout))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Recurring != nil {
		conds = append(conds, "is_recurring = ?")
		args = append(args, *f.Recurring)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY due_date ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var out []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBill applies a partial update to a bill.
func (r *SQLiteRepository) UpdateBill(ctx context.Context, id int64, p BillPatch) (core.Bill, error) {
	var sets []string
	var args []any

	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, p.Amount.Cents)
	}
	if p.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, p.DueDate.Format(dateLayout))
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *p.Category)
	}
	if p.IsRecurring != nil {
		sets = append(sets, "is_recurring = ?")
		args = append(args, *p.IsRecurring)
	}
	if p.Frequency != nil {
		sets = append(sets, "frequency = ?")
		args = append(args, frequencyValue(*p.Frequency))
	}
	if len(sets) == 0 {
		return r.GetBill(ctx, id)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE bills SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Bill{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Bill{}, ErrNotFound
	}

	slog.InfoContext(ctx, "Bill updated", "id", id)
	return r.GetBill(ctx, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		dateStr   string
		txType    string
		frequency sql.NullString
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	if err := s.Scan(&t.ID, &dateStr, &t.Description, &t.Amount.Cents, &t.Category,
		&txType, &t.IsFixed, &frequency, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	date, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", dateStr, err)
	}
	t.Date = date
	t.Type = core.TransactionType(txType)
	if frequency.Valid {
		t.Frequency = core.Frequency(frequency.String)
	}
	if createdAt.Valid {
		t.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		t.UpdatedAt = updatedAt.Time
	}
	return t, nil
}

func scanBill(s scanner) (core.Bill, error) {
	var (
		b         core.Bill
		dueStr    string
		frequency sql.NullString
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.Name, &b.Amount.Cents, &dueStr, &b.Category,
		&b.IsRecurring, &frequency, &createdAt, &updatedAt); err != nil {
		return core.Bill{}, err
	}
	due, err := time.ParseInLocation(dateLayout, dueStr, time.UTC)
	if err != nil {
		return core.Bill{}, fmt.Errorf("parse due date %q: %w", dueStr, err)
	}
	b.DueDate = due
	if frequency.Valid {
		b.Frequency = core.Frequency(frequency.String)
	}
	if createdAt.Valid {
		b.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		b.UpdatedAt = updatedAt.Time
	}
	return b, nil
}

func boolPtr(b bool) *bool { return &b }
