package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCheck    PaymentMethod = "CHECK"
	PaymentMethodDeposit  PaymentMethod = "DEPOSIT"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCheck, PaymentMethodDeposit:
		return true
	}
	return false
}

// Payment records the collection of exactly one installment.
type Payment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	InstallmentID uuid.UUID       `json:"installment_id" db:"installment_id"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Method        PaymentMethod   `json:"method" db:"method"`
	Reference     string          `json:"reference" db:"reference"`
	PaidAt        time.Time       `json:"paid_at" db:"paid_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (Payment) TableName() string {
	return "payments"
}
