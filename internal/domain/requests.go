package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for requests and responses

// TermsRequest carries the amortization inputs shared by simulation and creation.
type TermsRequest struct {
	Principal     decimal.Decimal  `json:"principal" validate:"required,gt=0"`
	AnnualRate    decimal.Decimal  `json:"annual_rate" validate:"gte=0"`
	Periods       int              `json:"periods" validate:"required,gt=0,lte=600"`
	Frequency     Frequency        `json:"frequency" validate:"required,oneof=MONTHLY SEMIANNUAL"`
	TaxOnInterest *decimal.Decimal `json:"tax_on_interest,omitempty" validate:"omitempty,gte=0"`
	StartDate     string           `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

type ExpenseInput struct {
	Kind        ExpenseKind     `json:"kind" validate:"required,oneof=ORIGINATION LIEN_TRANSFER"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=255"`
}

type CreateLoanRequest struct {
	TermsRequest
	ClientID            string         `json:"client_id" validate:"required,max=64"`
	Currency            Currency       `json:"currency" validate:"required,oneof=Pesos Dolar"`
	Expenses            []ExpenseInput `json:"expenses,omitempty" validate:"omitempty,dive"`
	DisbursementChannel LedgerChannel  `json:"disbursement_channel,omitempty" validate:"omitempty,oneof=CASH BANK"`
}

type UpdateLoanRequest struct {
	Currency *Currency `json:"currency,omitempty" validate:"omitempty,oneof=Pesos Dolar"`
	ClientID *string   `json:"client_id,omitempty" validate:"omitempty,min=1,max=64"`
}

type AttachExpenseRequest struct {
	Kind        ExpenseKind     `json:"kind" validate:"required,oneof=ORIGINATION LIEN_TRANSFER"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Currency    Currency        `json:"currency,omitempty" validate:"omitempty,oneof=Pesos Dolar"`
	Description string          `json:"description" validate:"max=255"`
}

type UpdateExpenseRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Status      *ExpenseStatus   `json:"status,omitempty" validate:"omitempty,oneof=PENDING INVOICED COLLECTED"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=255"`
}

type PayRequest struct {
	InstallmentID uuid.UUID     `json:"-"`
	Method        PaymentMethod `json:"method" validate:"required,oneof=CASH TRANSFER CHECK DEPOSIT"`
	Reference     string        `json:"reference" validate:"max=128"`
	Channel       LedgerChannel `json:"channel" validate:"required,oneof=CASH BANK"`
}

type RecalculateRequest struct {
	Principal *decimal.Decimal `json:"principal,omitempty" validate:"omitempty,gt=0"`
	Periods   *int             `json:"periods,omitempty" validate:"omitempty,gt=0,lte=600"`
}

type CommitRecalculationRequest struct {
	RecalculateRequest
	LoanVersion int `json:"loan_version" validate:"required,gt=0"`
}

type PlanAction string

const (
	PlanActionKeep   PlanAction = "KEEP"
	PlanActionUpdate PlanAction = "UPDATE"
	PlanActionCreate PlanAction = "CREATE"
	PlanActionRemove PlanAction = "REMOVE"
)

type PlannedInstallment struct {
	InstallmentID uuid.NullUUID     `json:"installment_id"`
	Sequence      int               `json:"sequence"`
	Status        InstallmentStatus `json:"status"`
	DueDate       time.Time         `json:"due_date"`
	CurrentAmount decimal.Decimal   `json:"current_amount"`
	NewAmount     decimal.Decimal   `json:"new_amount"`
	Action        PlanAction        `json:"action"`
}

// RecalculationPlan is the would-be outcome of a recalculation.
type RecalculationPlan struct {
	LoanID                uuid.UUID            `json:"loan_id"`
	LoanVersion           int                  `json:"loan_version"`
	Principal             decimal.Decimal      `json:"principal"`
	Periods               int                  `json:"periods"`
	AlreadyPaidTotal      decimal.Decimal      `json:"already_paid_total"`
	RemainingToDistribute decimal.Decimal      `json:"remaining_to_distribute"`
	PendingCount          int                  `json:"pending_count"`
	PerInstallmentAmount  decimal.Decimal      `json:"per_installment_amount"`
	Installments          []PlannedInstallment `json:"installments"`
}

// CommitRequest turns a previewed plan into the request that commits it.
func (p *RecalculationPlan) CommitRequest() CommitRecalculationRequest {
	principal := p.Principal
	periods := p.Periods
	return CommitRecalculationRequest{
		RecalculateRequest: RecalculateRequest{Principal: &principal, Periods: &periods},
		LoanVersion:        p.LoanVersion,
	}
}

type SoftDeleteRequest struct {
	Confirmed bool          `json:"confirmed"`
	Channel   LedgerChannel `json:"channel,omitempty" validate:"omitempty,oneof=CASH BANK"`
}

type DeletionPreview struct {
	LoanID                 uuid.UUID       `json:"loan_id"`
	PaidInstallments       int             `json:"paid_installments"`
	TotalPaidBeingReversed decimal.Decimal `json:"total_paid_being_reversed"`
	RequiresConfirmation   bool            `json:"requires_confirmation"`
}

type ReversalSummary struct {
	LoanID                 uuid.UUID       `json:"loan_id"`
	TotalPaidBeingReversed decimal.Decimal `json:"total_paid_being_reversed"`
	LedgerEntryAppended    bool            `json:"ledger_entry_appended"`
	LedgerEntry            *LedgerEntry    `json:"ledger_entry,omitempty"`
	DeletedAt              time.Time       `json:"deleted_at"`
}

// PaymentReceipt is the outcome of paying one installment.
type PaymentReceipt struct {
	Payment     *Payment     `json:"payment"`
	Installment *Installment `json:"installment"`
	LedgerEntry *LedgerEntry `json:"ledger_entry"`
	LoanStatus  LoanStatus   `json:"loan_status"`
}
