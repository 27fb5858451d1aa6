package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerDirection string

const (
	LedgerIngreso LedgerDirection = "INGRESO"
	LedgerEgreso  LedgerDirection = "EGRESO"
)

type LedgerChannel string

const (
	LedgerChannelCash LedgerChannel = "CASH"
	LedgerChannelBank LedgerChannel = "BANK"
)

func (c LedgerChannel) Valid() bool {
	return c == LedgerChannelCash || c == LedgerChannelBank
}

// LedgerEntry is an append-only cash or bank movement (movimiento).
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Direction     LedgerDirection `json:"direction" db:"direction"`
	Concept       string          `json:"concept" db:"concept"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      Currency        `json:"currency" db:"currency"`
	Channel       LedgerChannel   `json:"channel" db:"channel"`
	MovementDate  time.Time       `json:"movement_date" db:"movement_date"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	InstallmentID uuid.NullUUID   `json:"installment_id" db:"installment_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
