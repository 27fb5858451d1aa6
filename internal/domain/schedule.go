package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-ledger/pkg/utils"
)

type InstallmentStatus string

// Stored statuses are PENDING and PAID. OVERDUE only exists in InstallmentView.
const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
	InstallmentStatusOverdue InstallmentStatus = "OVERDUE"
)

// Installment represents one scheduled repayment of a loan (cuota).
type Installment struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	LoanID    uuid.UUID         `json:"loan_id" db:"loan_id"`
	Sequence  int               `json:"sequence" db:"sequence"`
	Principal decimal.Decimal   `json:"principal" db:"principal"`
	Interest  decimal.Decimal   `json:"interest" db:"interest"`
	Tax       decimal.Decimal   `json:"tax" db:"tax"`
	Amount    decimal.Decimal   `json:"amount" db:"amount"`
	DueDate   time.Time         `json:"due_date" db:"due_date"`
	PaidDate  *time.Time        `json:"paid_date,omitempty" db:"paid_date"`
	Status    InstallmentStatus `json:"status" db:"status"`
	Version   int               `json:"version" db:"version"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time        `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsPayable reports whether the installment can still receive a payment.
func (i *Installment) IsPayable() bool {
	return i.Status == InstallmentStatusPending && i.DeletedAt == nil
}

// InstallmentView is the read-time projection of an installment.
type InstallmentView struct {
	*Installment
	EffectiveStatus InstallmentStatus `json:"effective_status"`
}

// NewInstallmentView derives the effective status of an installment on a given
// day. It is the only place OVERDUE is computed.
func NewInstallmentView(inst *Installment, today time.Time) InstallmentView {
	status := inst.Status
	if status == InstallmentStatusPending && utils.IsDateOverdue(inst.DueDate, today) {
		status = InstallmentStatusOverdue
	}
	return InstallmentView{Installment: inst, EffectiveStatus: status}
}

// ScheduleExportRow is the stable tuple consumed by reporting tooling.
type ScheduleExportRow struct {
	Sequence int             `json:"sequence"`
	DueDate  string          `json:"due_date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// ExportSchedule converts installments into export tuples, preserving order.
func ExportSchedule(currency Currency, installments []*Installment) []ScheduleExportRow {
	rows := make([]ScheduleExportRow, 0, len(installments))
	for _, inst := range installments {
		rows = append(rows, ScheduleExportRow{
			Sequence: inst.Sequence,
			DueDate:  utils.FormatDate(inst.DueDate),
			Amount:   inst.Amount,
			Currency: currency,
		})
	}
	return rows
}

// OverdueInstallment is one row of the overdue report.
type OverdueInstallment struct {
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	ClientID      string          `json:"client_id" db:"client_id"`
	Currency      Currency        `json:"currency" db:"currency"`
	InstallmentID uuid.UUID       `json:"installment_id" db:"installment_id"`
	Sequence      int             `json:"sequence" db:"sequence"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	DaysOverdue   int             `json:"days_overdue" db:"-"`
}
