package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusCancelled LoanStatus = "CANCELLED"
	LoanStatusCompleted LoanStatus = "COMPLETED"
)

type Currency string

const (
	CurrencyPesos Currency = "Pesos"
	CurrencyDolar Currency = "Dolar"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return c == CurrencyPesos || c == CurrencyDolar
}

type Frequency string

const (
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencySemiannual Frequency = "SEMIANNUAL"
)

// PeriodsPerYear returns how many installments fall in a year, or 0 for an unknown frequency.
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencySemiannual:
		return 2
	default:
		return 0
	}
}

// MonthsPerPeriod returns the distance between two due dates in months.
func (f Frequency) MonthsPerPeriod() int {
	if ppy := f.PeriodsPerYear(); ppy > 0 {
		return 12 / ppy
	}
	return 0
}

// Loan represents a loan entity
type Loan struct {
	ID              uuid.UUID           `json:"id" db:"id"`
	ClientID        string              `json:"client_id" db:"client_id"`
	Principal       decimal.Decimal     `json:"principal" db:"principal"`
	AnnualRate      decimal.Decimal     `json:"annual_rate" db:"annual_rate"`
	Periods         int                 `json:"periods" db:"periods"`
	Frequency       Frequency           `json:"frequency" db:"frequency"`
	TaxOnInterest   decimal.NullDecimal `json:"tax_on_interest" db:"tax_on_interest"`
	Currency        Currency            `json:"currency" db:"currency"`
	StartDate       time.Time           `json:"start_date" db:"start_date"`
	Status          LoanStatus          `json:"status" db:"status"`
	PeriodicPayment decimal.Decimal     `json:"periodic_payment" db:"periodic_payment"`
	TotalPayable    decimal.Decimal     `json:"total_payable" db:"total_payable"`
	Version         int                 `json:"version" db:"version"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time          `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted reports whether the loan was soft-deleted.
func (l *Loan) IsDeleted() bool {
	return l.DeletedAt != nil
}

// LoanFilter narrows List queries. Zero values match everything.
type LoanFilter struct {
	ClientID string
	Status   LoanStatus
}

// LoanDetail is the read model returned by the lifecycle store.
type LoanDetail struct {
	Loan             *Loan             `json:"loan"`
	Installments     []InstallmentView `json:"installments"`
	Expenses         []*Expense        `json:"expenses"`
	PaidCount        int               `json:"paid_count"`
	PendingCount     int               `json:"pending_count"`
	OverdueCount     int               `json:"overdue_count"`
	PaidTotal        decimal.Decimal   `json:"paid_total"`
	OutstandingTotal decimal.Decimal   `json:"outstanding_total"`
}

// NewLoanDetail projects a loan and its children as seen on the given day.
func NewLoanDetail(loan *Loan, installments []*Installment, expenses []*Expense, today time.Time) *LoanDetail {
	detail := &LoanDetail{
		Loan:             loan,
		Installments:     make([]InstallmentView, 0, len(installments)),
		Expenses:         expenses,
		PaidTotal:        decimal.Zero,
		OutstandingTotal: decimal.Zero,
	}
	if detail.Expenses == nil {
		detail.Expenses = []*Expense{}
	}

	for _, inst := range installments {
		view := NewInstallmentView(inst, today)
		detail.Installments = append(detail.Installments, view)

		switch view.EffectiveStatus {
		case InstallmentStatusPaid:
			detail.PaidCount++
			detail.PaidTotal = detail.PaidTotal.Add(inst.Amount)
		case InstallmentStatusOverdue:
			detail.OverdueCount++
			detail.PendingCount++
			detail.OutstandingTotal = detail.OutstandingTotal.Add(inst.Amount)
		default:
			detail.PendingCount++
			detail.OutstandingTotal = detail.OutstandingTotal.Add(inst.Amount)
		}
	}

	return detail
}

// LoanAudit exposes every row of a loan, soft-deleted ones included.
type LoanAudit struct {
	Loan         *Loan          `json:"loan"`
	Installments []*Installment `json:"installments"`
	Payments     []*Payment     `json:"payments"`
	Expenses     []*Expense     `json:"expenses"`
	Ledger       []*LedgerEntry `json:"ledger"`
}
