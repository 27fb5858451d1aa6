package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/repository"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
	"github.com/segyhp/lending-ledger/pkg/utils"
)

// ExpenseService attaches and maintains one-time fees billed apart from the installments.
type ExpenseService struct {
	base
}

func NewExpenseService(deps Deps) *ExpenseService {
	return &ExpenseService{base: newBase(deps)}
}

// Attach adds an expense to an active loan. A loan holds at most one live
// expense of each kind.
func (s *ExpenseService) Attach(ctx context.Context, loanID uuid.UUID, req *domain.AttachExpenseRequest) (*domain.Expense, error) {
	if !req.Kind.Valid() {
		return nil, customError.WrapValidation("unsupported expense kind %q", req.Kind)
	}
	if !utils.RoundMoney(req.Amount).IsPositive() {
		return nil, customError.WrapValidation("expense amount must be greater than 0, got %s", req.Amount)
	}
	if req.Currency != "" && !req.Currency.Valid() {
		return nil, customError.WrapValidation("unsupported currency %q", req.Currency)
	}

	var expense *domain.Expense
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		loan, err := loadActiveLoan(ctx, repos, loanID)
		if err != nil {
			return err
		}

		exists, err := repos.Expenses().ExistsActiveKind(ctx, loanID, req.Kind)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if exists {
			return customError.WrapDuplicateExpenseKind(loanID, string(req.Kind))
		}

		currency := req.Currency
		if currency == "" {
			currency = loan.Currency
		}

		now := s.timestamp()
		expense = &domain.Expense{
			ID:          uuid.New(),
			LoanID:      loanID,
			Kind:        req.Kind,
			Amount:      utils.RoundMoney(req.Amount),
			Currency:    currency,
			Status:      domain.ExpenseStatusPending,
			Description: req.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repos.Expenses().Create(ctx, expense); err != nil {
			return customError.WrapDatabaseError(err)
		}

		return bumpLoan(ctx, repos, loan)
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	s.logger.Info("expense attached",
		zap.String("loan_id", loanID.String()),
		zap.String("kind", string(expense.Kind)),
		zap.String("amount", expense.Amount.StringFixed(2)),
	)
	s.cache.Invalidate(ctx, loanID)
	return expense, nil
}

// Update edits amount, status or description. Collected expenses are locked.
func (s *ExpenseService) Update(ctx context.Context, expenseID uuid.UUID, req *domain.UpdateExpenseRequest) (*domain.Expense, error) {
	if req.Amount != nil && !utils.RoundMoney(*req.Amount).IsPositive() {
		return nil, customError.WrapValidation("expense amount must be greater than 0, got %s", *req.Amount)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, customError.WrapValidation("unsupported expense status %q", *req.Status)
	}

	var expense *domain.Expense
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		expense, err = loadExpense(ctx, repos, expenseID)
		if err != nil {
			return err
		}
		if expense.IsLocked() {
			return customError.WrapExpenseLocked(expenseID)
		}

		if req.Amount != nil {
			expense.Amount = utils.RoundMoney(*req.Amount)
		}
		if req.Status != nil {
			expense.Status = *req.Status
		}
		if req.Description != nil {
			expense.Description = *req.Description
		}

		if err := repos.Expenses().Update(ctx, expense); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return customError.WrapExpenseNotFound(expenseID)
			}
			return customError.WrapDatabaseError(err)
		}

		loan, err := loadLoan(ctx, repos, expense.LoanID)
		if err != nil {
			return err
		}
		return bumpLoan(ctx, repos, loan)
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	s.cache.Invalidate(ctx, expense.LoanID)
	return expense, nil
}

// Remove soft-deletes an expense. Expenses past PENDING are already invoiced or
// collected, so removing them needs acknowledged set.
func (s *ExpenseService) Remove(ctx context.Context, expenseID uuid.UUID, acknowledged bool) error {
	var loanID uuid.UUID
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		expense, err := loadExpense(ctx, repos, expenseID)
		if err != nil {
			return err
		}
		loanID = expense.LoanID

		if expense.Status != domain.ExpenseStatusPending && !acknowledged {
			return customError.WrapConfirmationRequired(
				"expense is " + string(expense.Status) + "; resend with acknowledged=true to remove it",
			).With(customError.FieldExpenseID, expenseID.String())
		}

		if err := repos.Expenses().SoftDelete(ctx, expenseID, s.timestamp()); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return customError.WrapExpenseNotFound(expenseID)
			}
			return customError.WrapDatabaseError(err)
		}

		loan, err := loadLoan(ctx, repos, loanID)
		if err != nil {
			return err
		}
		return bumpLoan(ctx, repos, loan)
	})
	if err != nil {
		return persistenceError(err)
	}

	s.logger.Info("expense removed", zap.String("expense_id", expenseID.String()), zap.String("loan_id", loanID.String()))
	s.cache.Invalidate(ctx, loanID)
	return nil
}
