package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-ledger/internal/domain"
)

const paymentColumns = `id, installment_id, loan_id, amount, method, reference, paid_at, created_at, deleted_at`

type paymentRepository struct {
	q sqlx.ExtContext
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO ` + payment.TableName() + ` (` + paymentColumns + `)
		VALUES (:id, :installment_id, :loan_id, :amount, :method, :reference, :paid_at, :created_at, :deleted_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.q, query, payment)
	return err
}

func (r *paymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE loan_id = ? AND deleted_at IS NULL ORDER BY paid_at, id`, loanID)
}

func (r *paymentRepository) ListByLoanIncludingDeleted(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE loan_id = ? ORDER BY paid_at, id`, loanID)
}

func (r *paymentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	if err := sqlx.SelectContext(ctx, r.q, &payments, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) SoftDeleteByLoan(ctx context.Context, loanID uuid.UUID, at time.Time) error {
	query := `UPDATE payments SET deleted_at = ? WHERE loan_id = ? AND deleted_at IS NULL`

	_, err := r.q.ExecContext(ctx, r.q.Rebind(query), at, loanID)
	return err
}
