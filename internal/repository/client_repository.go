package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type clientRepository struct {
	q sqlx.ExtContext
}

func (r *clientRepository) GetDisplayName(ctx context.Context, clientID string) (string, error) {
	query := `SELECT display_name FROM clients WHERE id = ?`

	var name string
	err := sqlx.GetContext(ctx, r.q, &name, r.q.Rebind(query), clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}

	return name, err
}
