package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/segyhp/lending-ledger/migrations"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// SQLStore implements UnitOfWork over a sqlx handle. Queries are written with
// '?' placeholders and rebound to the driver's bind style.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Open connects to the database. SQLite databases get the embedded schema
// applied and are limited to a single connection, which serialises writers.
func Open(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: connect %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(migrations.SQLiteSchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("repository: apply sqlite schema: %w", err)
		}
	}

	return NewSQLStore(db), nil
}

// OpenInMemory returns a private in-memory SQLite store.
func OpenInMemory() (*SQLStore, error) {
	return Open(DriverSQLite, "file::memory:?_foreign_keys=on")
}

// DB exposes the underlying handle for pool tuning and health checks.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Repositories() Repositories {
	return repositories{q: s.db}
}

func (s *SQLStore) Clients() ClientRepository {
	return &clientRepository{q: s.db}
}

// WithinTx executes fn within a database transaction.
// If fn returns an error the transaction is rolled back; otherwise it is committed.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(repositories{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("repository: rollback tx: %w (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit tx: %w", err)
	}

	return nil
}

type repositories struct {
	q sqlx.ExtContext
}

func (r repositories) Loans() LoanRepository               { return &loanRepository{q: r.q} }
func (r repositories) Installments() InstallmentRepository { return &installmentRepository{q: r.q} }
func (r repositories) Expenses() ExpenseRepository         { return &expenseRepository{q: r.q} }
func (r repositories) Payments() PaymentRepository         { return &paymentRepository{q: r.q} }
func (r repositories) Ledger() LedgerRepository            { return &ledgerRepository{q: r.q} }

// checkAffected turns a zero-row update into ErrConflict.
func checkAffected(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
