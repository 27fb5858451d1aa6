package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-ledger/internal/domain"
)

const loanColumns = `id, client_id, principal, annual_rate, periods, frequency, tax_on_interest, currency,
	start_date, status, periodic_payment, total_payable, version, created_at, updated_at, deleted_at`

type loanRepository struct {
	q sqlx.ExtContext
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :client_id, :principal, :annual_rate, :periods, :frequency, :tax_on_interest, :currency,
			:start_date, :status, :periodic_payment, :total_payable, :version, :created_at, :updated_at, :deleted_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.q, query, loan)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ? AND deleted_at IS NULL`, id)
}

func (r *loanRepository) GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
}

func (r *loanRepository) get(ctx context.Context, query string, args ...any) (*domain.Loan, error) {
	var loan domain.Loan
	err := sqlx.GetContext(ctx, r.q, &loan, r.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if filter.ClientID != "" {
		conditions = append(conditions, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + loanColumns + ` FROM loans WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC, id`

	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, r.q, &loans, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan, expectedVersion int) error {
	query := `
		UPDATE loans
		SET client_id = ?, currency = ?, principal = ?, periods = ?, status = ?,
			periodic_payment = ?, total_payable = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ? AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, r.q.Rebind(query),
		loan.ClientID,
		loan.Currency,
		loan.Principal,
		loan.Periods,
		loan.Status,
		loan.PeriodicPayment,
		loan.TotalPayable,
		expectedVersion+1,
		now,
		loan.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}

	loan.Version = expectedVersion + 1
	loan.UpdatedAt = now
	return nil
}

func (r *loanRepository) Touch(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
		RETURNING version
	`

	now := time.Now().UTC()
	var version int
	err := sqlx.GetContext(ctx, r.q, &version, r.q.Rebind(query), loan.Status, now, loan.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return err
	}

	loan.Version = version
	loan.UpdatedAt = now
	return nil
}

func (r *loanRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time, expectedVersion int) error {
	query := `
		UPDATE loans SET deleted_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND deleted_at IS NULL
	`

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), at, at, id, expectedVersion)
	if err != nil {
		return err
	}

	return checkAffected(res)
}
