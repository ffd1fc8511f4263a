package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

type (
	TransactionType string

	// Frequency is the recurrence period of a fixed transaction or bill.
	// The empty string means "not recurring".
	Frequency string

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          int64
		Date        time.Time
		Description string
		Amount      Money
		Category    string
		Type        TransactionType
		IsFixed     bool
		Frequency   Frequency
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Bill struct {
		ID          int64
		Name        string
		Amount      Money
		DueDate     time.Time
		Category    string
		IsRecurring bool
		Frequency   Frequency
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Quarterly, Yearly:
		return true
	default:
		return false
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	// Frequency is meaningful only on fixed transactions.
	if t.IsFixed {
		if t.Frequency != "" && !t.Frequency.Valid() {
			return ErrInvalidFrequency
		}
	} else if t.Frequency != "" {
		return ErrInvalidFrequency
	}
	return nil
}

func (b Bill) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.DueDate.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	// Frequency on bills is advisory and independent of IsRecurring, but when
	// present it must still be a known value.
	if b.Frequency != "" && !b.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	return nil
}

// NewDate builds a UTC date with the time component zeroed.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
