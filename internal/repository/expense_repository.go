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

const expenseColumns = `id, loan_id, kind, amount, currency, status, description, created_at, updated_at, deleted_at`

type expenseRepository struct {
	q sqlx.ExtContext
}

func (r *expenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES (:id, :loan_id, :kind, :amount, :currency, :status, :description, :created_at, :updated_at, :deleted_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.q, query, expense)
	return err
}

func (r *expenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ? AND deleted_at IS NULL`

	var expense domain.Expense
	err := sqlx.GetContext(ctx, r.q, &expense, r.q.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &expense, nil
}

func (r *expenseRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Expense, error) {
	return r.list(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE loan_id = ? AND deleted_at IS NULL ORDER BY created_at, kind`, loanID)
}

func (r *expenseRepository) ListByLoanIncludingDeleted(ctx context.Context, loanID uuid.UUID) ([]*domain.Expense, error) {
	return r.list(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE loan_id = ? ORDER BY created_at, kind`, loanID)
}

func (r *expenseRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Expense, error) {
	expenses := []*domain.Expense{}
	if err := sqlx.SelectContext(ctx, r.q, &expenses, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}

	return expenses, nil
}

func (r *expenseRepository) ExistsActiveKind(ctx context.Context, loanID uuid.UUID, kind domain.ExpenseKind) (bool, error) {
	query := `SELECT COUNT(*) FROM expenses WHERE loan_id = ? AND kind = ? AND deleted_at IS NULL`

	var count int
	if err := sqlx.GetContext(ctx, r.q, &count, r.q.Rebind(query), loanID, kind); err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *expenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	query := `
		UPDATE expenses
		SET amount = ?, currency = ?, status = ?, description = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, r.q.Rebind(query),
		expense.Amount,
		expense.Currency,
		expense.Status,
		expense.Description,
		now,
		expense.ID,
	)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}

	expense.UpdatedAt = now
	return nil
}

func (r *expenseRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE expenses SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), at, at, id)
	if err != nil {
		return err
	}

	return checkAffected(res)
}

func (r *expenseRepository) SoftDeleteByLoan(ctx context.Context, loanID uuid.UUID, at time.Time) error {
	query := `UPDATE expenses SET deleted_at = ?, updated_at = ? WHERE loan_id = ? AND deleted_at IS NULL`

	_, err := r.q.ExecContext(ctx, r.q.Rebind(query), at, at, loanID)
	return err
}
