package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-ledger/internal/domain"
)

const ledgerColumns = `id, direction, concept, amount, currency, channel, movement_date, loan_id, installment_id, created_at`

// ledgerRepository writes to the external movements table. It only ever inserts.
type ledgerRepository struct {
	q sqlx.ExtContext
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_movements (` + ledgerColumns + `)
		VALUES (:id, :direction, :concept, :amount, :currency, :channel, :movement_date, :loan_id, :installment_id, :created_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.q, query, entry)
	return err
}

func (r *ledgerRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_movements WHERE loan_id = ? ORDER BY created_at, id`

	entries := []*domain.LedgerEntry{}
	if err := sqlx.SelectContext(ctx, r.q, &entries, r.q.Rebind(query), loanID); err != nil {
		return nil, err
	}

	return entries, nil
}
