package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/lending-ledger/internal/domain"
)

var (
	// ErrNotFound is returned when no live row matches.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned when a guarded update matched no row because the
	// row changed state or version since it was read.
	ErrConflict = errors.New("repository: conflicting update")
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create inserts a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a live loan
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDIncludingDeleted retrieves a loan even when soft-deleted
	GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// List returns live loans matching the filter, newest first
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)

	// Update writes the mutable loan fields if the stored version still equals
	// expectedVersion, and bumps loan.Version on success
	Update(ctx context.Context, loan *domain.Loan, expectedVersion int) error

	// Touch stores loan.Status and bumps the version without a version guard,
	// reading the new version back into loan
	Touch(ctx context.Context, loan *domain.Loan) error

	// SoftDelete stamps deleted_at on the loan if the stored version still
	// equals expectedVersion. Returns ErrConflict otherwise.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time, expectedVersion int) error
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	// CreateBatch inserts installments in order
	CreateBatch(ctx context.Context, installments []*domain.Installment) error

	// GetByID retrieves a live installment
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error)

	// ListByLoan returns live installments ordered by sequence
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	// ListByLoanIncludingDeleted returns every installment ever attached to the loan
	ListByLoanIncludingDeleted(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	// MarkPaid moves a PENDING installment at expectedVersion to PAID.
	// Returns ErrConflict when the row is no longer PENDING at that version.
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, expectedVersion int) error

	// UpdateSchedule rewrites amount, split and due date of a PENDING installment
	UpdateSchedule(ctx context.Context, installment *domain.Installment) error

	// SoftDelete stamps deleted_at on the given installments
	SoftDelete(ctx context.Context, ids []uuid.UUID, at time.Time) error

	// SoftDeleteByLoan stamps deleted_at on every live installment of the loan
	SoftDeleteByLoan(ctx context.Context, loanID uuid.UUID, at time.Time) error

	// ListOverdue returns pending installments of active loans due before asOf
	ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error)
}

// ExpenseRepository defines the interface for expense data operations
type ExpenseRepository interface {
	Create(ctx context.Context, expense *domain.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error)
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Expense, error)
	ListByLoanIncludingDeleted(ctx context.Context, loanID uuid.UUID) ([]*domain.Expense, error)

	// ExistsActiveKind reports whether the loan has a live expense of the kind
	ExistsActiveKind(ctx context.Context, loanID uuid.UUID, kind domain.ExpenseKind) (bool, error)

	Update(ctx context.Context, expense *domain.Expense) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDeleteByLoan(ctx context.Context, loanID uuid.UUID, at time.Time) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// ListByLoan retrieves all live payments for a loan
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// ListByLoanIncludingDeleted retrieves payments including reversed ones
	ListByLoanIncludingDeleted(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// SoftDeleteByLoan stamps deleted_at on every live payment of the loan
	SoftDeleteByLoan(ctx context.Context, loanID uuid.UUID, at time.Time) error
}

// LedgerGateway appends cash and bank movements. Entries are never updated or deleted.
type LedgerGateway interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
}

// LedgerRepository is the gateway plus the audit read.
type LedgerRepository interface {
	LedgerGateway
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerEntry, error)
}

// ClientRepository reads the external client directory.
type ClientRepository interface {
	GetDisplayName(ctx context.Context, clientID string) (string, error)
}

// Repositories groups the stores bound to one connection or transaction.
type Repositories interface {
	Loans() LoanRepository
	Installments() InstallmentRepository
	Expenses() ExpenseRepository
	Payments() PaymentRepository
	Ledger() LedgerRepository
}

// UnitOfWork runs a group of writes atomically.
type UnitOfWork interface {
	// WithinTx calls fn with transaction-bound repositories. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Repositories) error) error

	// Repositories returns repositories outside any transaction, for reads.
	Repositories() Repositories
}
