package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/repository"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
)

// DeletionService soft-deletes a loan with everything hanging off it and
// reverses the money already collected with one EGRESO movement.
type DeletionService struct {
	base
}

func NewDeletionService(deps Deps) *DeletionService {
	return &DeletionService{base: newBase(deps)}
}

// Preview reports what a deletion would reverse.
func (s *DeletionService) Preview(ctx context.Context, loanID uuid.UUID) (*domain.DeletionPreview, error) {
	repos := s.store.Repositories()

	if _, err := loadLoan(ctx, repos, loanID); err != nil {
		return nil, err
	}

	installments, err := repos.Installments().ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	paidCount, paidTotal := paidSummary(installments)
	return &domain.DeletionPreview{
		LoanID:                 loanID,
		PaidInstallments:       paidCount,
		TotalPaidBeingReversed: paidTotal,
		RequiresConfirmation:   paidTotal.IsPositive(),
	}, nil
}

// SoftDelete removes the loan. When money was collected the caller must pass
// Confirmed; otherwise ConfirmationRequired is returned and nothing changes.
func (s *DeletionService) SoftDelete(ctx context.Context, loanID uuid.UUID, req *domain.SoftDeleteRequest) (*domain.ReversalSummary, error) {
	channel := req.Channel
	if channel == "" {
		channel = domain.LedgerChannelCash
	}
	if !channel.Valid() {
		return nil, customError.WrapValidation("unsupported ledger channel %q", req.Channel)
	}

	owner, err := loadLoan(ctx, s.store.Repositories(), loanID)
	if err != nil {
		return nil, err
	}
	clientName := s.names.DisplayName(ctx, owner.ClientID)

	var summary *domain.ReversalSummary
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		// 1. Work out what is being reversed
		loan, err := loadLoan(ctx, repos, loanID)
		if err != nil {
			return err
		}

		installments, err := repos.Installments().ListByLoan(ctx, loanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		paidCount, paidTotal := paidSummary(installments)
		if paidTotal.IsPositive() && !req.Confirmed {
			return customError.WrapConfirmationRequired(fmt.Sprintf(
				"loan has %d paid installments totalling %s %s; resend with confirmed=true to delete and reverse them",
				paidCount, paidTotal.StringFixed(2), loan.Currency,
			)).With(customError.FieldLoanID, loanID.String()).With(customError.FieldAmount, paidTotal.StringFixed(2))
		}

		// 2. Soft-delete the loan first. The version guard fails if a payment
		// committed after the read above, and the row lock holds off new ones.
		at := s.timestamp()
		err = repos.Loans().SoftDelete(ctx, loanID, at, loan.Version)
		if errors.Is(err, repository.ErrConflict) {
			return customError.WrapConcurrentModification(loanID)
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		// 3. Then its children, with the same timestamp
		if err := repos.Payments().SoftDeleteByLoan(ctx, loanID, at); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := repos.Installments().SoftDeleteByLoan(ctx, loanID, at); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := repos.Expenses().SoftDeleteByLoan(ctx, loanID, at); err != nil {
			return customError.WrapDatabaseError(err)
		}

		summary = &domain.ReversalSummary{
			LoanID:                 loanID,
			TotalPaidBeingReversed: paidTotal,
			DeletedAt:              at,
		}

		// 4. One compensating movement, only when money was collected
		if !paidTotal.IsPositive() {
			return nil
		}
		concept := fmt.Sprintf("Reversal of loan %s - %s", loanRef(loanID), clientName)
		entry := newLedgerEntry(domain.LedgerEgreso, concept, paidTotal, loan, channel, s.today(), at)
		if err := appendLedger(ctx, repos, entry); err != nil {
			return err
		}
		summary.LedgerEntryAppended = true
		summary.LedgerEntry = entry
		return nil
	})
	if err != nil {
		if customError.CodeOf(err) != customError.ErrCodeConfirmationRequired {
			s.logger.Error("loan deletion rolled back", zap.String("loan_id", loanID.String()), zap.Error(err))
		}
		return nil, persistenceError(err)
	}

	s.logger.Info("loan deleted",
		zap.String("loan_id", loanID.String()),
		zap.String("reversed", summary.TotalPaidBeingReversed.StringFixed(2)),
		zap.Bool("ledger_entry", summary.LedgerEntryAppended),
	)
	s.cache.Invalidate(ctx, loanID)
	return summary, nil
}

func paidSummary(installments []*domain.Installment) (int, decimal.Decimal) {
	count := 0
	total := decimal.Zero
	for _, inst := range installments {
		if inst.Status == domain.InstallmentStatusPaid {
			count++
			total = total.Add(inst.Amount)
		}
	}
	return count, total
}
