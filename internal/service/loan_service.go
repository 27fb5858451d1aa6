package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/amortization"
	"github.com/segyhp/lending-ledger/internal/cache"
	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/repository"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
	"github.com/segyhp/lending-ledger/pkg/utils"
)

// LoanService owns loan creation and the loan read model.
type LoanService struct {
	base
}

func NewLoanService(deps Deps) *LoanService {
	return &LoanService{base: newBase(deps)}
}

// Simulate computes a schedule without persisting anything.
func (s *LoanService) Simulate(ctx context.Context, req *domain.TermsRequest) (*amortization.Schedule, error) {
	in, err := s.termsInput(req)
	if err != nil {
		return nil, err
	}
	return amortization.Compute(in)
}

func (s *LoanService) termsInput(req *domain.TermsRequest) (amortization.Input, error) {
	start := s.today()
	if req.StartDate != "" {
		parsed, err := utils.ParseDate(req.StartDate)
		if err != nil {
			return amortization.Input{}, customError.WrapValidation("start_date must be YYYY-MM-DD, got %q", req.StartDate)
		}
		start = parsed
	}

	tax := decimal.NullDecimal{}
	if req.TaxOnInterest != nil {
		tax = decimal.NewNullDecimal(*req.TaxOnInterest)
	}

	return amortization.Input{
		Principal:            req.Principal,
		AnnualRatePercent:    req.AnnualRate,
		Periods:              req.Periods,
		Frequency:            req.Frequency,
		TaxOnInterestPercent: tax,
		StartDate:            start,
	}, nil
}

// Create persists a loan, its installments, its expenses and the optional
// disbursement movement in a single transaction.
func (s *LoanService) Create(ctx context.Context, req *domain.CreateLoanRequest) (*domain.LoanDetail, error) {
	// 1. Validate terms and compute the schedule
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, customError.WrapValidation("client_id is required")
	}
	if !req.Currency.Valid() {
		return nil, customError.WrapValidation("unsupported currency %q", req.Currency)
	}
	if req.DisbursementChannel != "" && !req.DisbursementChannel.Valid() {
		return nil, customError.WrapValidation("unsupported disbursement channel %q", req.DisbursementChannel)
	}

	in, err := s.termsInput(&req.TermsRequest)
	if err != nil {
		return nil, err
	}
	schedule, err := amortization.Compute(in)
	if err != nil {
		return nil, err
	}

	// 2. Build loan and installments in memory
	now := s.timestamp()
	loan := &domain.Loan{
		ID:              uuid.New(),
		ClientID:        strings.TrimSpace(req.ClientID),
		Principal:       utils.RoundMoney(in.Principal),
		AnnualRate:      in.AnnualRatePercent,
		Periods:         in.Periods,
		Frequency:       in.Frequency,
		TaxOnInterest:   in.TaxOnInterestPercent,
		Currency:        req.Currency,
		StartDate:       utils.DateOnly(in.StartDate),
		Status:          domain.LoanStatusActive,
		PeriodicPayment: schedule.PeriodicPayment,
		TotalPayable:    schedule.TotalPayable,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	installments := make([]*domain.Installment, 0, len(schedule.Entries))
	for _, entry := range schedule.Entries {
		installments = append(installments, &domain.Installment{
			ID:        uuid.New(),
			LoanID:    loan.ID,
			Sequence:  entry.Sequence,
			Principal: entry.Principal,
			Interest:  entry.Interest,
			Tax:       entry.Tax,
			Amount:    entry.Total,
			DueDate:   entry.DueDate,
			Status:    domain.InstallmentStatusPending,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	// 3. Attach origination expenses
	expenses, err := buildExpenses(loan, req.Expenses, now)
	if err != nil {
		return nil, err
	}

	// 4. Resolve the client before the transaction starts
	var disbursement *domain.LedgerEntry
	if req.DisbursementChannel != "" {
		name := s.names.DisplayName(ctx, loan.ClientID)
		concept := fmt.Sprintf("Disbursement of loan %s - %s", loanRef(loan.ID), name)
		disbursement = newLedgerEntry(domain.LedgerEgreso, concept, loan.Principal, loan, req.DisbursementChannel, s.today(), now)
	}

	// 5. Persist everything or nothing
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Loans().Create(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := repos.Installments().CreateBatch(ctx, installments); err != nil {
			return customError.WrapDatabaseError(err)
		}
		for _, expense := range expenses {
			if err := repos.Expenses().Create(ctx, expense); err != nil {
				return customError.WrapDatabaseError(err)
			}
		}
		if disbursement != nil {
			return appendLedger(ctx, repos, disbursement)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("loan creation rolled back", zap.String("client_id", loan.ClientID), zap.Error(err))
		return nil, persistenceError(err)
	}

	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("client_id", loan.ClientID),
		zap.Int("periods", loan.Periods),
		zap.String("total_payable", loan.TotalPayable.StringFixed(2)),
	)
	s.cache.Set(ctx, &cache.LoanSnapshot{Loan: loan, Installments: installments, Expenses: expenses})

	return domain.NewLoanDetail(loan, installments, expenses, s.today()), nil
}

func buildExpenses(loan *domain.Loan, inputs []domain.ExpenseInput, now time.Time) ([]*domain.Expense, error) {
	seen := make(map[domain.ExpenseKind]bool, len(inputs))
	expenses := make([]*domain.Expense, 0, len(inputs))

	for _, in := range inputs {
		if !in.Kind.Valid() {
			return nil, customError.WrapValidation("unsupported expense kind %q", in.Kind)
		}
		if !utils.RoundMoney(in.Amount).IsPositive() {
			return nil, customError.WrapValidation("expense amount must be greater than 0, got %s", in.Amount)
		}
		if seen[in.Kind] {
			return nil, customError.WrapDuplicateExpenseKind(loan.ID, string(in.Kind))
		}
		seen[in.Kind] = true

		expenses = append(expenses, &domain.Expense{
			ID:          uuid.New(),
			LoanID:      loan.ID,
			Kind:        in.Kind,
			Amount:      utils.RoundMoney(in.Amount),
			Currency:    loan.Currency,
			Status:      domain.ExpenseStatusPending,
			Description: in.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return expenses, nil
}

// Get returns the loan with its installments projected as of today.
func (s *LoanService) Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetail, error) {
	snapshot, err := s.snapshot(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return domain.NewLoanDetail(snapshot.Loan, snapshot.Installments, snapshot.Expenses, s.today()), nil
}

func (s *LoanService) snapshot(ctx context.Context, loanID uuid.UUID) (*cache.LoanSnapshot, error) {
	if snapshot, ok := s.cache.Get(ctx, loanID); ok {
		return snapshot, nil
	}

	repos := s.store.Repositories()
	loan, err := loadLoan(ctx, repos, loanID)
	if err != nil {
		return nil, err
	}

	installments, err := repos.Installments().ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	expenses, err := repos.Expenses().ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	snapshot := &cache.LoanSnapshot{Loan: loan, Installments: installments, Expenses: expenses}
	s.cache.Set(ctx, snapshot)
	return snapshot, nil
}

func (s *LoanService) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	loans, err := s.store.Repositories().Loans().List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// Update changes the loan's client or currency. The currency is locked once
// any installment has been paid.
func (s *LoanService) Update(ctx context.Context, loanID uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error) {
	if req.Currency != nil && !req.Currency.Valid() {
		return nil, customError.WrapValidation("unsupported currency %q", *req.Currency)
	}
	if req.ClientID != nil && strings.TrimSpace(*req.ClientID) == "" {
		return nil, customError.WrapValidation("client_id must not be blank")
	}

	var updated *domain.Loan
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		loan, err := loadLoan(ctx, repos, loanID)
		if err != nil {
			return err
		}
		expectedVersion := loan.Version
		changed := false

		if req.Currency != nil && *req.Currency != loan.Currency {
			installments, err := repos.Installments().ListByLoan(ctx, loanID)
			if err != nil {
				return customError.WrapDatabaseError(err)
			}
			for _, inst := range installments {
				if inst.Status == domain.InstallmentStatusPaid {
					return customError.WrapCurrencyLocked(loanID, string(loan.Currency), string(*req.Currency))
				}
			}
			loan.Currency = *req.Currency
			changed = true
		}

		if req.ClientID != nil && strings.TrimSpace(*req.ClientID) != loan.ClientID {
			loan.ClientID = strings.TrimSpace(*req.ClientID)
			changed = true
		}

		updated = loan
		if !changed {
			return nil
		}
		return updateLoan(ctx, repos, loan, expectedVersion)
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	s.cache.Invalidate(ctx, loanID)
	return updated, nil
}

// Cancel moves an active loan to CANCELLED. Cancelled loans accept no payments
// and cannot be recalculated.
func (s *LoanService) Cancel(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	var cancelled *domain.Loan
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		loan, err := loadActiveLoan(ctx, repos, loanID)
		if err != nil {
			return err
		}
		loan.Status = domain.LoanStatusCancelled
		cancelled = loan
		return updateLoan(ctx, repos, loan, loan.Version)
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	s.logger.Info("loan cancelled", zap.String("loan_id", loanID.String()))
	s.cache.Invalidate(ctx, loanID)
	return cancelled, nil
}

func updateLoan(ctx context.Context, repos repository.Repositories, loan *domain.Loan, expectedVersion int) error {
	err := repos.Loans().Update(ctx, loan, expectedVersion)
	if errors.Is(err, repository.ErrConflict) {
		return customError.WrapConcurrentModification(loan.ID)
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// ExportSchedule returns the (sequence, due date, amount, currency) tuples of the live schedule.
func (s *LoanService) ExportSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.ScheduleExportRow, error) {
	snapshot, err := s.snapshot(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return domain.ExportSchedule(snapshot.Loan.Currency, snapshot.Installments), nil
}

// Audit returns every row ever attached to the loan, soft-deleted ones included.
func (s *LoanService) Audit(ctx context.Context, loanID uuid.UUID) (*domain.LoanAudit, error) {
	repos := s.store.Repositories()

	loan, err := repos.Loans().GetByIDIncludingDeleted(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	audit := &domain.LoanAudit{Loan: loan}
	if audit.Installments, err = repos.Installments().ListByLoanIncludingDeleted(ctx, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if audit.Payments, err = repos.Payments().ListByLoanIncludingDeleted(ctx, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if audit.Expenses, err = repos.Expenses().ListByLoanIncludingDeleted(ctx, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if audit.Ledger, err = repos.Ledger().ListByLoan(ctx, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return audit, nil
}

// OverdueReport lists pending installments of active loans due before asOf
// (today when zero). Nothing is written: overdue is a projection.
func (s *LoanService) OverdueReport(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	asOf = utils.DateOnly(asOf)

	rows, err := s.store.Repositories().Installments().ListOverdue(ctx, asOf)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	for _, row := range rows {
		row.DaysOverdue = utils.DaysBetween(row.DueDate, asOf)
	}
	return rows, nil
}
