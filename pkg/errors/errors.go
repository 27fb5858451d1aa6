package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrValidation             = errors.New("validation failed")
	ErrLoanNotFound           = errors.New("loan not found")
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrExpenseNotFound        = errors.New("expense not found")
	ErrAlreadyPaid            = errors.New("installment already paid")
	ErrDuplicateExpenseKind   = errors.New("expense kind already attached to loan")
	ErrExpenseLocked          = errors.New("expense is collected and can no longer change")
	ErrCurrencyLocked         = errors.New("loan currency cannot change once an installment is paid")
	ErrNothingToRecalculate   = errors.New("loan has no pending installments to recalculate")
	ErrLoanNotActive          = errors.New("loan is not active")
	ErrConfirmationRequired   = errors.New("operation requires explicit confirmation")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrPersistence            = errors.New("persistence failure")
	ErrLedgerAppend           = errors.New("ledger append failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code      string
	Message   string
	Err       error
	Fields    map[string]string
	Retryable bool
}

func (e *BusinessError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+e.Fields[k])
		}
		msg += " [" + strings.Join(parts, " ") + "]"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// With attaches a context field (loan id, installment id, amount) and returns the error.
func (e *BusinessError) With(key, value string) *BusinessError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeLoanNotFound           = "LOAN_NOT_FOUND"
	ErrCodeInstallmentNotFound    = "INSTALLMENT_NOT_FOUND"
	ErrCodeExpenseNotFound        = "EXPENSE_NOT_FOUND"
	ErrCodeAlreadyPaid            = "ALREADY_PAID"
	ErrCodeDuplicateExpenseKind   = "DUPLICATE_EXPENSE_KIND"
	ErrCodeExpenseLocked          = "EXPENSE_LOCKED"
	ErrCodeCurrencyLocked         = "CURRENCY_LOCKED"
	ErrCodeNothingToRecalculate   = "NOTHING_TO_RECALCULATE"
	ErrCodeLoanNotActive          = "LOAN_NOT_ACTIVE"
	ErrCodeConfirmationRequired   = "CONFIRMATION_REQUIRED"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeLedgerAppendFailure    = "LEDGER_APPEND_FAILURE"
)

// Field keys used in BusinessError.Fields
const (
	FieldLoanID        = "loan_id"
	FieldInstallmentID = "installment_id"
	FieldExpenseID     = "expense_id"
	FieldAmount        = "amount"
)

// Wrap common errors with business context

func WrapValidation(format string, args ...any) *BusinessError {
	return NewBusinessError(ErrCodeValidation, fmt.Sprintf(format, args...), ErrValidation)
}

func WrapLoanNotFound(loanID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	).With(FieldLoanID, loanID.String())
}

func WrapInstallmentNotFound(installmentID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment with ID %s not found", installmentID),
		ErrInstallmentNotFound,
	).With(FieldInstallmentID, installmentID.String())
}

func WrapExpenseNotFound(expenseID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeExpenseNotFound,
		fmt.Sprintf("Expense with ID %s not found", expenseID),
		ErrExpenseNotFound,
	).With(FieldExpenseID, expenseID.String())
}

func WrapAlreadyPaid(loanID, installmentID uuid.UUID, sequence int) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyPaid,
		fmt.Sprintf("Installment %d is already paid", sequence),
		ErrAlreadyPaid,
	).With(FieldLoanID, loanID.String()).With(FieldInstallmentID, installmentID.String())
}

func WrapDuplicateExpenseKind(loanID uuid.UUID, kind string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicateExpenseKind,
		fmt.Sprintf("Loan already has an active %s expense", kind),
		ErrDuplicateExpenseKind,
	).With(FieldLoanID, loanID.String())
}

func WrapExpenseLocked(expenseID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeExpenseLocked,
		"Collected expenses cannot be modified",
		ErrExpenseLocked,
	).With(FieldExpenseID, expenseID.String())
}

func WrapCurrencyLocked(loanID uuid.UUID, current, requested string) *BusinessError {
	return NewBusinessError(
		ErrCodeCurrencyLocked,
		fmt.Sprintf("Cannot change currency from %s to %s: loan has paid installments", current, requested),
		ErrCurrencyLocked,
	).With(FieldLoanID, loanID.String())
}

func WrapNothingToRecalculate(loanID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeNothingToRecalculate,
		fmt.Sprintf("Loan with ID %s has no pending installments", loanID),
		ErrNothingToRecalculate,
	).With(FieldLoanID, loanID.String())
}

func WrapLoanNotActive(loanID uuid.UUID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotActive,
		fmt.Sprintf("Loan with ID %s is %s", loanID, status),
		ErrLoanNotActive,
	).With(FieldLoanID, loanID.String())
}

func WrapConfirmationRequired(message string) *BusinessError {
	return NewBusinessError(ErrCodeConfirmationRequired, message, ErrConfirmationRequired)
}

func WrapConcurrentModification(loanID uuid.UUID) *BusinessError {
	e := NewBusinessError(
		ErrCodeConcurrentModification,
		fmt.Sprintf("Loan with ID %s was modified by another operation", loanID),
		ErrConcurrentModification,
	).With(FieldLoanID, loanID.String())
	e.Retryable = true
	return e
}

func WrapDatabaseError(err error) *BusinessError {
	e := NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		fmt.Errorf("%w: %w", ErrPersistence, err),
	)
	e.Retryable = true
	return e
}

func WrapLedgerAppendFailure(loanID uuid.UUID, amount decimal.Decimal, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeLedgerAppendFailure,
		"ledger movement could not be appended; operation rolled back",
		fmt.Errorf("%w: %w", ErrLedgerAppend, err),
	).With(FieldLoanID, loanID.String()).With(FieldAmount, amount.StringFixed(2))
}

// IsRetryable reports whether err is a business error marked retryable.
func IsRetryable(err error) bool {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// CodeOf returns the business error code carried by err, or "" when none.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
