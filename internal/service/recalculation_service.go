package service

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/amortization"
	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/repository"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
	"github.com/segyhp/lending-ledger/pkg/utils"
)

// RecalculationService redistributes what is left to pay over the pending
// installments of a live loan. Paid installments are never touched.
type RecalculationService struct {
	base
}

func NewRecalculationService(deps Deps) *RecalculationService {
	return &RecalculationService{base: newBase(deps)}
}

// Preview computes the plan without side effects. The returned plan carries
// the loan version it was computed from.
func (s *RecalculationService) Preview(ctx context.Context, loanID uuid.UUID, req *domain.RecalculateRequest) (*domain.RecalculationPlan, error) {
	repos := s.store.Repositories()

	loan, err := loadLoan(ctx, repos, loanID)
	if err != nil {
		return nil, err
	}

	installments, err := repos.Installments().ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return buildPlan(loan, installments, req)
}

// Commit applies a previewed recalculation. The plan is recomputed inside the
// transaction and rejected when the loan changed since the preview.
func (s *RecalculationService) Commit(ctx context.Context, loanID uuid.UUID, req *domain.CommitRecalculationRequest) (*domain.RecalculationPlan, error) {
	var applied *domain.RecalculationPlan
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		loan, err := loadLoan(ctx, repos, loanID)
		if err != nil {
			return err
		}
		if loan.Version != req.LoanVersion {
			return customError.WrapConcurrentModification(loanID)
		}

		installments, err := repos.Installments().ListByLoan(ctx, loanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		plan, err := buildPlan(loan, installments, &req.RecalculateRequest)
		if err != nil {
			return err
		}

		if err := s.apply(ctx, repos, loan, installments, plan); err != nil {
			return err
		}

		plan.LoanVersion = loan.Version
		applied = plan
		return nil
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	s.logger.Info("loan recalculated",
		zap.String("loan_id", loanID.String()),
		zap.String("principal", applied.Principal.StringFixed(2)),
		zap.Int("periods", applied.Periods),
		zap.Int("pending", applied.PendingCount),
	)
	s.cache.Invalidate(ctx, loanID)
	return applied, nil
}

func (s *RecalculationService) apply(
	ctx context.Context,
	repos repository.Repositories,
	loan *domain.Loan,
	installments []*domain.Installment,
	plan *domain.RecalculationPlan,
) error {
	byID := make(map[uuid.UUID]*domain.Installment, len(installments))
	for _, inst := range installments {
		byID[inst.ID] = inst
	}

	now := s.timestamp()
	var removed []uuid.UUID
	var created []*domain.Installment

	for _, row := range plan.Installments {
		switch row.Action {
		case domain.PlanActionUpdate:
			inst := byID[row.InstallmentID.UUID]
			inst.Principal = row.NewAmount
			inst.Interest = decimal.Zero
			inst.Tax = decimal.Zero
			inst.Amount = row.NewAmount
			inst.DueDate = row.DueDate

			err := repos.Installments().UpdateSchedule(ctx, inst)
			if errors.Is(err, repository.ErrConflict) {
				return customError.WrapConcurrentModification(loan.ID)
			}
			if err != nil {
				return customError.WrapDatabaseError(err)
			}
		case domain.PlanActionRemove:
			removed = append(removed, row.InstallmentID.UUID)
		case domain.PlanActionCreate:
			created = append(created, &domain.Installment{
				ID:        uuid.New(),
				LoanID:    loan.ID,
				Sequence:  row.Sequence,
				Principal: row.NewAmount,
				Interest:  decimal.Zero,
				Tax:       decimal.Zero,
				Amount:    row.NewAmount,
				DueDate:   row.DueDate,
				Status:    domain.InstallmentStatusPending,
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}

	// Trailing rows go first so their sequences are free again.
	if err := repos.Installments().SoftDelete(ctx, removed, now); err != nil {
		return customError.WrapDatabaseError(err)
	}
	if len(created) > 0 {
		if err := repos.Installments().CreateBatch(ctx, created); err != nil {
			return customError.WrapDatabaseError(err)
		}
	}

	expectedVersion := loan.Version
	loan.Principal = plan.Principal
	loan.Periods = plan.Periods
	loan.PeriodicPayment = plan.PerInstallmentAmount
	loan.TotalPayable = plan.AlreadyPaidTotal.Add(plan.RemainingToDistribute)
	return updateLoan(ctx, repos, loan, expectedVersion)
}

// buildPlan is the pure part of a recalculation: it decides, for each
// installment, whether it is kept, rewritten, appended or dropped.
func buildPlan(loan *domain.Loan, installments []*domain.Installment, req *domain.RecalculateRequest) (*domain.RecalculationPlan, error) {
	if loan.Status != domain.LoanStatusActive {
		return nil, customError.WrapLoanNotActive(loan.ID, string(loan.Status))
	}

	principal := loan.Principal
	if req.Principal != nil {
		if !utils.RoundMoney(*req.Principal).IsPositive() {
			return nil, customError.WrapValidation("principal must be greater than 0, got %s", *req.Principal)
		}
		principal = utils.RoundMoney(*req.Principal)
	}

	periods := loan.Periods
	if req.Periods != nil {
		if *req.Periods <= 0 || *req.Periods > amortization.MaxPeriods {
			return nil, customError.WrapValidation("periods must be between 1 and %d, got %d", amortization.MaxPeriods, *req.Periods)
		}
		periods = *req.Periods
	}

	paidTotal := decimal.Zero
	lastPaid := 0
	lastSequence := 0
	for _, inst := range installments {
		if inst.Status == domain.InstallmentStatusPaid {
			paidTotal = paidTotal.Add(inst.Amount)
			lastPaid = max(lastPaid, inst.Sequence)
		}
		lastSequence = max(lastSequence, inst.Sequence)
	}

	if periods < lastPaid {
		return nil, customError.WrapValidation(
			"periods %d would drop installment %d, which is already paid", periods, lastPaid,
		).With(customError.FieldLoanID, loan.ID.String())
	}

	var rows []domain.PlannedInstallment
	pending := 0
	for _, inst := range installments {
		row := domain.PlannedInstallment{
			InstallmentID: uuid.NullUUID{UUID: inst.ID, Valid: true},
			Sequence:      inst.Sequence,
			Status:        inst.Status,
			DueDate:       inst.DueDate,
			CurrentAmount: inst.Amount,
		}
		switch {
		case inst.Status == domain.InstallmentStatusPaid:
			row.Action = domain.PlanActionKeep
			row.NewAmount = inst.Amount
		case inst.Sequence > periods:
			row.Action = domain.PlanActionRemove
			row.NewAmount = decimal.Zero
		default:
			row.Action = domain.PlanActionUpdate
			row.DueDate = utils.CalculateDueDate(loan.StartDate, loan.Frequency.MonthsPerPeriod(), inst.Sequence)
			pending++
		}
		rows = append(rows, row)
	}

	for seq := lastSequence + 1; seq <= periods; seq++ {
		rows = append(rows, domain.PlannedInstallment{
			Sequence:      seq,
			Status:        domain.InstallmentStatusPending,
			DueDate:       utils.CalculateDueDate(loan.StartDate, loan.Frequency.MonthsPerPeriod(), seq),
			CurrentAmount: decimal.Zero,
			Action:        domain.PlanActionCreate,
		})
		pending++
	}

	if pending == 0 {
		return nil, customError.WrapNothingToRecalculate(loan.ID)
	}

	remaining := principal.Sub(paidTotal)
	if !remaining.IsPositive() {
		return nil, customError.WrapValidation(
			"principal %s does not exceed the %s already paid", principal.StringFixed(2), paidTotal.StringFixed(2),
		).With(customError.FieldLoanID, loan.ID.String()).With(customError.FieldAmount, remaining.StringFixed(2))
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Sequence < rows[j].Sequence })

	amounts := utils.SplitEvenly(remaining, pending)
	next := 0
	for i := range rows {
		if rows[i].Action == domain.PlanActionUpdate || rows[i].Action == domain.PlanActionCreate {
			rows[i].NewAmount = amounts[next]
			next++
		}
	}

	return &domain.RecalculationPlan{
		LoanID:                loan.ID,
		LoanVersion:           loan.Version,
		Principal:             principal,
		Periods:               periods,
		AlreadyPaidTotal:      paidTotal,
		RemainingToDistribute: utils.RoundMoney(remaining),
		PendingCount:          pending,
		PerInstallmentAmount:  amounts[0],
		Installments:          rows,
	}, nil
}
