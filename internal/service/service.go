package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/cache"
	"github.com/segyhp/lending-ledger/internal/directory"
	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/repository"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
	"github.com/segyhp/lending-ledger/pkg/utils"
)

// NameResolver turns a client id into a display name. It never fails.
type NameResolver interface {
	DisplayName(ctx context.Context, clientID string) string
}

// Deps are shared by every service. Cache, Names, Logger and Now are optional.
type Deps struct {
	Store  repository.UnitOfWork
	Names  NameResolver
	Cache  cache.LoanCache
	Logger *zap.Logger
	Now    func() time.Time
}

type base struct {
	store  repository.UnitOfWork
	names  NameResolver
	cache  cache.LoanCache
	logger *zap.Logger
	now    func() time.Time
}

func newBase(d Deps) base {
	b := base{
		store:  d.Store,
		names:  d.Names,
		cache:  d.Cache,
		logger: d.Logger,
		now:    d.Now,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.names == nil {
		b.names = directory.NewResolver(nil, directory.DefaultPlaceholder, b.logger)
	}
	if b.cache == nil {
		b.cache = cache.Nop{}
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

func (b base) timestamp() time.Time {
	return b.now().UTC()
}

func (b base) today() time.Time {
	return utils.DateOnly(b.now())
}

// persistenceError passes business errors through and wraps everything else.
func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	return customError.WrapDatabaseError(err)
}

func loadLoan(ctx context.Context, repos repository.Repositories, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := repos.Loans().GetByID(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func loadActiveLoan(ctx context.Context, repos repository.Repositories, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := loadLoan(ctx, repos, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, customError.WrapLoanNotActive(loanID, string(loan.Status))
	}
	return loan, nil
}

func loadInstallment(ctx context.Context, repos repository.Repositories, id uuid.UUID) (*domain.Installment, error) {
	inst, err := repos.Installments().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapInstallmentNotFound(id)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return inst, nil
}

func loadExpense(ctx context.Context, repos repository.Repositories, id uuid.UUID) (*domain.Expense, error) {
	expense, err := repos.Expenses().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapExpenseNotFound(id)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return expense, nil
}

// bumpLoan records a mutation on the loan row so concurrent previews go stale.
func bumpLoan(ctx context.Context, repos repository.Repositories, loan *domain.Loan) error {
	err := repos.Loans().Touch(ctx, loan)
	if errors.Is(err, repository.ErrConflict) {
		return customError.WrapConcurrentModification(loan.ID)
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// appendLedger writes one movement and reports failures as LedgerAppendFailure.
func appendLedger(ctx context.Context, repos repository.Repositories, entry *domain.LedgerEntry) error {
	if err := repos.Ledger().Append(ctx, entry); err != nil {
		return customError.WrapLedgerAppendFailure(entry.LoanID, entry.Amount, err)
	}
	return nil
}

func newLedgerEntry(
	direction domain.LedgerDirection,
	concept string,
	amount decimal.Decimal,
	loan *domain.Loan,
	channel domain.LedgerChannel,
	movementDate time.Time,
	createdAt time.Time,
) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:           uuid.New(),
		Direction:    direction,
		Concept:      concept,
		Amount:       utils.RoundMoney(amount),
		Currency:     loan.Currency,
		Channel:      channel,
		MovementDate: movementDate,
		LoanID:       loan.ID,
		CreatedAt:    createdAt,
	}
}

// loanRef is the short loan reference used in ledger concepts.
func loanRef(id uuid.UUID) string {
	return fmt.Sprintf("#%s", id.String()[:8])
}
