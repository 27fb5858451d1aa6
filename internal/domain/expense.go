package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ExpenseKind string

const (
	ExpenseKindOrigination  ExpenseKind = "ORIGINATION"
	ExpenseKindLienTransfer ExpenseKind = "LIEN_TRANSFER"
)

func (k ExpenseKind) Valid() bool {
	return k == ExpenseKindOrigination || k == ExpenseKindLienTransfer
}

type ExpenseStatus string

const (
	ExpenseStatusPending   ExpenseStatus = "PENDING"
	ExpenseStatusInvoiced  ExpenseStatus = "INVOICED"
	ExpenseStatusCollected ExpenseStatus = "COLLECTED"
)

func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpenseStatusPending, ExpenseStatusInvoiced, ExpenseStatusCollected:
		return true
	}
	return false
}

// Expense is a one-time fee attached to a loan (gasto), billed on its own.
type Expense struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LoanID      uuid.UUID       `json:"loan_id" db:"loan_id"`
	Kind        ExpenseKind     `json:"kind" db:"kind"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    Currency        `json:"currency" db:"currency"`
	Status      ExpenseStatus   `json:"status" db:"status"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsLocked reports whether the expense can no longer be edited.
func (e *Expense) IsLocked() bool {
	return e.Status == ExpenseStatusCollected
}
