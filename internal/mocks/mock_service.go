package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-ledger/internal/amortization"
	"github.com/segyhp/lending-ledger/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Simulate(ctx context.Context, req *domain.TermsRequest) (*amortization.Schedule, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amortization.Schedule), args.Error(1)
}

func (m *MockLoanService) Create(ctx context.Context, req *domain.CreateLoanRequest) (*domain.LoanDetail, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanDetail), args.Error(1)
}

func (m *MockLoanService) Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetail, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanDetail), args.Error(1)
}

func (m *MockLoanService) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanService) Update(ctx context.Context, loanID uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) Cancel(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) ExportSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.ScheduleExportRow, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScheduleExportRow), args.Error(1)
}

func (m *MockLoanService) Audit(ctx context.Context, loanID uuid.UUID) (*domain.LoanAudit, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanAudit), args.Error(1)
}

func (m *MockLoanService) OverdueReport(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OverdueInstallment), args.Error(1)
}

type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) Attach(ctx context.Context, loanID uuid.UUID, req *domain.AttachExpenseRequest) (*domain.Expense, error) {
	args := m.Called(ctx, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseService) Update(ctx context.Context, expenseID uuid.UUID, req *domain.UpdateExpenseRequest) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseService) Remove(ctx context.Context, expenseID uuid.UUID, acknowledged bool) error {
	args := m.Called(ctx, expenseID, acknowledged)
	return args.Error(0)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Pay(ctx context.Context, req *domain.PayRequest) (*domain.PaymentReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentReceipt), args.Error(1)
}

type MockRecalculationService struct {
	mock.Mock
}

func (m *MockRecalculationService) Preview(ctx context.Context, loanID uuid.UUID, req *domain.RecalculateRequest) (*domain.RecalculationPlan, error) {
	args := m.Called(ctx, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecalculationPlan), args.Error(1)
}

func (m *MockRecalculationService) Commit(ctx context.Context, loanID uuid.UUID, req *domain.CommitRecalculationRequest) (*domain.RecalculationPlan, error) {
	args := m.Called(ctx, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecalculationPlan), args.Error(1)
}

type MockDeletionService struct {
	mock.Mock
}

func (m *MockDeletionService) Preview(ctx context.Context, loanID uuid.UUID) (*domain.DeletionPreview, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeletionPreview), args.Error(1)
}

func (m *MockDeletionService) SoftDelete(ctx context.Context, loanID uuid.UUID, req *domain.SoftDeleteRequest) (*domain.ReversalSummary, error) {
	args := m.Called(ctx, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReversalSummary), args.Error(1)
}
