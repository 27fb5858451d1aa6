package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-ledger/internal/domain"
)

const installmentColumns = `id, loan_id, sequence, principal, interest, tax, amount, due_date, paid_date,
	status, version, created_at, updated_at, deleted_at`

type installmentRepository struct {
	q sqlx.ExtContext
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []*domain.Installment) error {
	query := `
		INSERT INTO installments (` + installmentColumns + `)
		VALUES (:id, :loan_id, :sequence, :principal, :interest, :tax, :amount, :due_date, :paid_date,
			:status, :version, :created_at, :updated_at, :deleted_at)
	`

	for _, installment := range installments {
		if _, err := sqlx.NamedExecContext(ctx, r.q, query, installment); err != nil {
			return err
		}
	}

	return nil
}

func (r *installmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = ? AND deleted_at IS NULL`

	var installment domain.Installment
	err := sqlx.GetContext(ctx, r.q, &installment, r.q.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &installment, nil
}

func (r *installmentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	return r.list(ctx, `SELECT `+installmentColumns+` FROM installments
		WHERE loan_id = ? AND deleted_at IS NULL ORDER BY sequence`, loanID)
}

func (r *installmentRepository) ListByLoanIncludingDeleted(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	return r.list(ctx, `SELECT `+installmentColumns+` FROM installments
		WHERE loan_id = ? ORDER BY sequence, created_at`, loanID)
}

func (r *installmentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Installment, error) {
	installments := []*domain.Installment{}
	if err := sqlx.SelectContext(ctx, r.q, &installments, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, expectedVersion int) error {
	query := `
		UPDATE installments
		SET status = ?, paid_date = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND version = ? AND deleted_at IS NULL
	`

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query),
		domain.InstallmentStatusPaid,
		paidAt,
		paidAt,
		id,
		domain.InstallmentStatusPending,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	return checkAffected(res)
}

func (r *installmentRepository) UpdateSchedule(ctx context.Context, installment *domain.Installment) error {
	query := `
		UPDATE installments
		SET principal = ?, interest = ?, tax = ?, amount = ?, due_date = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND version = ? AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, r.q.Rebind(query),
		installment.Principal,
		installment.Interest,
		installment.Tax,
		installment.Amount,
		installment.DueDate,
		now,
		installment.ID,
		domain.InstallmentStatusPending,
		installment.Version,
	)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}

	installment.Version++
	installment.UpdatedAt = now
	return nil
}

func (r *installmentRepository) SoftDelete(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		`UPDATE installments SET deleted_at = ?, updated_at = ? WHERE id IN (?) AND deleted_at IS NULL`,
		at, at, ids,
	)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, r.q.Rebind(query), args...)
	return err
}

func (r *installmentRepository) SoftDeleteByLoan(ctx context.Context, loanID uuid.UUID, at time.Time) error {
	query := `UPDATE installments SET deleted_at = ?, updated_at = ? WHERE loan_id = ? AND deleted_at IS NULL`

	_, err := r.q.ExecContext(ctx, r.q.Rebind(query), at, at, loanID)
	return err
}

func (r *installmentRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error) {
	query := `
		SELECT i.loan_id, l.client_id, l.currency, i.id AS installment_id, i.sequence, i.due_date, i.amount
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.status = ? AND i.deleted_at IS NULL
			AND l.status = ? AND l.deleted_at IS NULL
			AND i.due_date < ?
		ORDER BY i.due_date, i.loan_id, i.sequence
	`

	rows := []*domain.OverdueInstallment{}
	err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query),
		domain.InstallmentStatusPending,
		domain.LoanStatusActive,
		asOf,
	)
	if err != nil {
		return nil, err
	}

	return rows, nil
}
