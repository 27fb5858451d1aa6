package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/repository"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
)

// PaymentService collects installments. Each installment is paid in full, once.
type PaymentService struct {
	base
}

func NewPaymentService(deps Deps) *PaymentService {
	return &PaymentService{base: newBase(deps)}
}

// Pay marks one installment PAID, records the payment and appends the matching
// INGRESO movement. The three writes commit together or not at all.
func (s *PaymentService) Pay(ctx context.Context, req *domain.PayRequest) (*domain.PaymentReceipt, error) {
	if !req.Method.Valid() {
		return nil, customError.WrapValidation("unsupported payment method %q", req.Method)
	}
	if !req.Channel.Valid() {
		return nil, customError.WrapValidation("unsupported ledger channel %q", req.Channel)
	}

	// 1. Resolve the client name before opening the transaction
	reads := s.store.Repositories()
	current, err := loadInstallment(ctx, reads, req.InstallmentID)
	if err != nil {
		return nil, err
	}
	owner, err := loadLoan(ctx, reads, current.LoanID)
	if err != nil {
		return nil, err
	}
	clientName := s.names.DisplayName(ctx, owner.ClientID)

	var receipt *domain.PaymentReceipt
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		// 2. Re-read the installment and its loan inside the transaction
		inst, err := loadInstallment(ctx, repos, req.InstallmentID)
		if err != nil {
			return err
		}
		if !inst.IsPayable() {
			return customError.WrapAlreadyPaid(inst.LoanID, inst.ID, inst.Sequence)
		}

		loan, err := loadActiveLoan(ctx, repos, inst.LoanID)
		if err != nil {
			return err
		}

		installments, err := repos.Installments().ListByLoan(ctx, loan.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		// 3. Guarded PENDING -> PAID transition; the loser of a race matches no row
		paidAt := s.timestamp()
		err = repos.Installments().MarkPaid(ctx, inst.ID, paidAt, inst.Version)
		if errors.Is(err, repository.ErrConflict) {
			return customError.WrapAlreadyPaid(inst.LoanID, inst.ID, inst.Sequence)
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		inst.Status = domain.InstallmentStatusPaid
		inst.PaidDate = &paidAt
		inst.Version++

		// 4. Record the payment for the full installment amount
		payment := &domain.Payment{
			ID:            uuid.New(),
			InstallmentID: inst.ID,
			LoanID:        loan.ID,
			Amount:        inst.Amount,
			Method:        req.Method,
			Reference:     req.Reference,
			PaidAt:        paidAt,
			CreatedAt:     paidAt,
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return customError.WrapDatabaseError(err)
		}

		// 5. Append the income movement
		concept := fmt.Sprintf("Installment %d/%d of loan %s - %s", inst.Sequence, len(installments), loanRef(loan.ID), clientName)
		entry := newLedgerEntry(domain.LedgerIngreso, concept, inst.Amount, loan, req.Channel, s.today(), paidAt)
		entry.InstallmentID = uuid.NullUUID{UUID: inst.ID, Valid: true}
		if err := appendLedger(ctx, repos, entry); err != nil {
			return err
		}

		// 6. Complete the loan when nothing is left pending
		if pendingAfter(installments, inst.ID) == 0 {
			loan.Status = domain.LoanStatusCompleted
		}
		if err := bumpLoan(ctx, repos, loan); err != nil {
			return err
		}

		receipt = &domain.PaymentReceipt{
			Payment:     payment,
			Installment: inst,
			LedgerEntry: entry,
			LoanStatus:  loan.Status,
		}
		return nil
	})
	if err != nil {
		if customError.CodeOf(err) != customError.ErrCodeAlreadyPaid {
			s.logger.Error("payment rolled back",
				zap.String("installment_id", req.InstallmentID.String()),
				zap.Error(err),
			)
		}
		return nil, persistenceError(err)
	}

	s.logger.Info("installment paid",
		zap.String("loan_id", receipt.Payment.LoanID.String()),
		zap.Int("sequence", receipt.Installment.Sequence),
		zap.String("amount", receipt.Payment.Amount.StringFixed(2)),
		zap.String("loan_status", string(receipt.LoanStatus)),
	)
	s.cache.Invalidate(ctx, receipt.Payment.LoanID)
	return receipt, nil
}

func pendingAfter(installments []*domain.Installment, paidID uuid.UUID) int {
	pending := 0
	for _, inst := range installments {
		if inst.ID != paidID && inst.Status == domain.InstallmentStatusPending {
			pending++
		}
	}
	return pending
}
