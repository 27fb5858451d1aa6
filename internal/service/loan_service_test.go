package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-ledger/internal/cache"
	"github.com/segyhp/lending-ledger/internal/directory"
	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/mocks"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
)

func TestLoanService_Create_ExampleScenario(t *testing.T) {
	f := newFixture(t)

	detail := f.createLoan(t, exampleRequest())

	loan := detail.Loan
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.Equal(t, 1, loan.Version)
	assertMoney(t, "13859.06", loan.PeriodicPayment)
	assertMoney(t, "176033.59", loan.TotalPayable)

	require.Len(t, detail.Installments, 12)
	first := detail.Installments[0]
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), first.DueDate)
	assertMoney(t, "15224.06", first.Amount)
	assertMoney(t, "7359.06", first.Principal)

	// 2024-02-01 through 2024-05-01 are behind the fixed clock
	assert.Equal(t, 4, detail.OverdueCount)
	assert.Equal(t, 12, detail.PendingCount)
	assert.Equal(t, 0, detail.PaidCount)
	assertMoney(t, "176033.59", detail.OutstandingTotal)

	stored := f.installments(t, loan.ID)
	require.Len(t, stored, 12)
	for _, inst := range stored {
		assert.Equal(t, domain.InstallmentStatusPending, inst.Status, "overdue must never be persisted")
	}
	assert.Empty(t, f.ledger(t, loan.ID), "no disbursement requested")
}

func TestLoanService_Create_Disbursement(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		wantName string
	}{
		{name: "Success - known client", clientID: "C-1", wantName: "Acme SRL"},
		{name: "Success - unknown client falls back to placeholder", clientID: "C-404", wantName: directory.DefaultPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			req := exampleRequest()
			req.ClientID = tt.clientID
			req.DisbursementChannel = domain.LedgerChannelBank
			detail := f.createLoan(t, req)

			entries := f.ledger(t, detail.Loan.ID)
			require.Len(t, entries, 1)
			entry := entries[0]
			assert.Equal(t, domain.LedgerEgreso, entry.Direction)
			assert.Equal(t, domain.LedgerChannelBank, entry.Channel)
			assertMoney(t, "120000", entry.Amount)
			assert.Equal(t, domain.CurrencyPesos, entry.Currency)
			assert.Equal(t, "Disbursement of loan #"+detail.Loan.ID.String()[:8]+" - "+tt.wantName, entry.Concept)
		})
	}
}

func TestLoanService_Create_WithExpenses(t *testing.T) {
	f := newFixture(t)

	req := exampleRequest()
	req.Expenses = []domain.ExpenseInput{
		{Kind: domain.ExpenseKindOrigination, Amount: decimal.RequireFromString("1500.005")},
		{Kind: domain.ExpenseKindLienTransfer, Amount: decimal.NewFromInt(800), Description: "registry fee"},
	}
	detail := f.createLoan(t, req)

	require.Len(t, detail.Expenses, 2)
	for _, expense := range detail.Expenses {
		assert.Equal(t, domain.ExpenseStatusPending, expense.Status)
		assert.Equal(t, domain.CurrencyPesos, expense.Currency)
	}
	assertMoney(t, "1500.01", detail.Expenses[0].Amount)

	got, err := f.loans.Get(context.Background(), detail.Loan.ID)
	require.NoError(t, err)
	assert.Len(t, got.Expenses, 2)
}

func TestLoanService_Create_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CreateLoanRequest)
		code   string
	}{
		{
			name: "Failure - duplicate expense kind",
			mutate: func(req *domain.CreateLoanRequest) {
				req.Expenses = []domain.ExpenseInput{
					{Kind: domain.ExpenseKindOrigination, Amount: decimal.NewFromInt(100)},
					{Kind: domain.ExpenseKindOrigination, Amount: decimal.NewFromInt(200)},
				}
			},
			code: customError.ErrCodeDuplicateExpenseKind,
		},
		{
			name:   "Failure - zero principal",
			mutate: func(req *domain.CreateLoanRequest) { req.Principal = decimal.Zero },
			code:   customError.ErrCodeValidation,
		},
		{
			name:   "Failure - principal rounds to zero cents",
			mutate: func(req *domain.CreateLoanRequest) { req.Principal = decimal.RequireFromString("0.004") },
			code:   customError.ErrCodeValidation,
		},
		{
			name: "Failure - expense rounds to zero cents",
			mutate: func(req *domain.CreateLoanRequest) {
				req.Expenses = []domain.ExpenseInput{{Kind: domain.ExpenseKindOrigination, Amount: decimal.RequireFromString("0.004")}}
			},
			code: customError.ErrCodeValidation,
		},
		{
			name:   "Failure - zero periods",
			mutate: func(req *domain.CreateLoanRequest) { req.Periods = 0 },
			code:   customError.ErrCodeValidation,
		},
		{
			name:   "Failure - unknown frequency",
			mutate: func(req *domain.CreateLoanRequest) { req.Frequency = "WEEKLY" },
			code:   customError.ErrCodeValidation,
		},
		{
			name:   "Failure - unknown currency",
			mutate: func(req *domain.CreateLoanRequest) { req.Currency = "Euro" },
			code:   customError.ErrCodeValidation,
		},
		{
			name:   "Failure - malformed start date",
			mutate: func(req *domain.CreateLoanRequest) { req.StartDate = "01/01/2024" },
			code:   customError.ErrCodeValidation,
		},
		{
			name:   "Failure - blank client",
			mutate: func(req *domain.CreateLoanRequest) { req.ClientID = "  " },
			code:   customError.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			req := exampleRequest()
			tt.mutate(req)
			detail, err := f.loans.Create(context.Background(), req)

			assert.Nil(t, detail)
			assertCode(t, err, tt.code)

			loans, err := f.loans.List(context.Background(), domain.LoanFilter{})
			require.NoError(t, err)
			assert.Empty(t, loans, "nothing may be persisted")
		})
	}
}

func TestLoanService_Create_LedgerFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	failing := f.withFailingLedger(t)

	req := exampleRequest()
	req.DisbursementChannel = domain.LedgerChannelCash
	detail, err := failing.loans.Create(context.Background(), req)

	assert.Nil(t, detail)
	assertCode(t, err, customError.ErrCodeLedgerAppendFailure)

	loans, err := f.loans.List(context.Background(), domain.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestLoanService_Simulate(t *testing.T) {
	f := newFixture(t)

	req := exampleRequest().TermsRequest
	schedule, err := f.loans.Simulate(context.Background(), &req)
	require.NoError(t, err)

	require.Len(t, schedule.Entries, 12)
	assertMoney(t, "13859.06", schedule.PeriodicPayment)
	assertMoney(t, "176033.59", schedule.TotalPayable)

	loans, err := f.loans.List(context.Background(), domain.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans, "simulation must not persist")

	t.Run("start date defaults to today", func(t *testing.T) {
		req := exampleRequest().TermsRequest
		req.StartDate = ""
		schedule, err := f.loans.Simulate(context.Background(), &req)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), schedule.Entries[0].DueDate)
	})
}

func TestLoanService_GetAndList(t *testing.T) {
	f := newFixture(t)

	first := f.createLoan(t, exampleRequest())
	other := exampleRequest()
	other.ClientID = "C-2"
	f.createLoan(t, other)

	got, err := f.loans.Get(context.Background(), first.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Loan.ID, got.Loan.ID)
	assert.Equal(t, 4, got.OverdueCount)

	all, err := f.loans.List(context.Background(), domain.LoanFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.loans.List(context.Background(), domain.LoanFilter{ClientID: "C-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.Loan.ID, mine[0].ID)

	_, err = f.loans.Get(context.Background(), uuid.New())
	assertCode(t, err, customError.ErrCodeLoanNotFound)
}

func TestLoanService_Update(t *testing.T) {
	t.Run("Success - currency changes while nothing is paid", func(t *testing.T) {
		f := newFixture(t)
		detail := f.createLoan(t, exampleRequest())

		dolar := domain.CurrencyDolar
		loan, err := f.loans.Update(context.Background(), detail.Loan.ID, &domain.UpdateLoanRequest{Currency: &dolar})
		require.NoError(t, err)
		assert.Equal(t, domain.CurrencyDolar, loan.Currency)
		assert.Equal(t, 2, loan.Version)

		rows, err := f.loans.ExportSchedule(context.Background(), detail.Loan.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CurrencyDolar, rows[0].Currency)
	})

	t.Run("Failure - currency is locked after a payment", func(t *testing.T) {
		f := newFixture(t)
		detail := f.createLoan(t, exampleRequest())
		f.payFirst(t, detail, 1)

		dolar := domain.CurrencyDolar
		loan, err := f.loans.Update(context.Background(), detail.Loan.ID, &domain.UpdateLoanRequest{Currency: &dolar})
		assert.Nil(t, loan)
		assertCode(t, err, customError.ErrCodeCurrencyLocked)

		got, err := f.loans.Get(context.Background(), detail.Loan.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CurrencyPesos, got.Loan.Currency)
	})

	t.Run("Success - client changes after a payment", func(t *testing.T) {
		f := newFixture(t)
		detail := f.createLoan(t, exampleRequest())
		f.payFirst(t, detail, 1)

		client := "C-9"
		loan, err := f.loans.Update(context.Background(), detail.Loan.ID, &domain.UpdateLoanRequest{ClientID: &client})
		require.NoError(t, err)
		assert.Equal(t, "C-9", loan.ClientID)
	})
}

func TestLoanService_Cancel(t *testing.T) {
	f := newFixture(t)
	detail := f.createLoan(t, exampleRequest())

	loan, err := f.loans.Cancel(context.Background(), detail.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCancelled, loan.Status)

	_, err = f.payments.Pay(context.Background(), &domain.PayRequest{
		InstallmentID: detail.Installments[0].ID,
		Method:        domain.PaymentMethodCash,
		Channel:       domain.LedgerChannelCash,
	})
	assertCode(t, err, customError.ErrCodeLoanNotActive)

	_, err = f.loans.Cancel(context.Background(), detail.Loan.ID)
	assertCode(t, err, customError.ErrCodeLoanNotActive)

	periods := 6
	_, err = f.recalc.Preview(context.Background(), detail.Loan.ID, &domain.RecalculateRequest{Periods: &periods})
	assertCode(t, err, customError.ErrCodeLoanNotActive)
}

func TestLoanService_ExportSchedule(t *testing.T) {
	f := newFixture(t)
	detail := f.createLoan(t, exampleRequest())

	rows, err := f.loans.ExportSchedule(context.Background(), detail.Loan.ID)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	assert.Equal(t, 1, rows[0].Sequence)
	assert.Equal(t, "2024-02-01", rows[0].DueDate)
	assertMoney(t, "15224.06", rows[0].Amount)
	assert.Equal(t, domain.CurrencyPesos, rows[0].Currency)
	assert.Equal(t, "2025-01-01", rows[11].DueDate)

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	assertMoney(t, "176033.59", total)
}

func TestLoanService_OverdueReport(t *testing.T) {
	f := newFixture(t)
	detail := f.createLoan(t, exampleRequest())
	f.payFirst(t, detail, 1)

	cancelled := f.createLoan(t, exampleRequest())
	_, err := f.loans.Cancel(context.Background(), cancelled.Loan.ID)
	require.NoError(t, err)

	rows, err := f.loans.OverdueReport(context.Background(), time.Time{})
	require.NoError(t, err)

	// Sequences 2..4 of the active loan; cancelled loans are left out.
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, detail.Loan.ID, row.LoanID)
		assert.Equal(t, i+2, row.Sequence)
		assert.Equal(t, "C-1", row.ClientID)
	}
	assert.Equal(t, 75, rows[0].DaysOverdue)
	assert.Equal(t, 14, rows[2].DaysOverdue)

	later, err := f.loans.OverdueReport(context.Background(), time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, later, 4)
}

func TestLoanService_CacheServesSnapshots(t *testing.T) {
	loanCache := &mocks.MockLoanCache{}
	f := newFixtureWithCache(t, loanCache)

	loanCache.On("Set", mock.Anything, mock.Anything).Return()
	detail := f.createLoan(t, exampleRequest())
	loanID := detail.Loan.ID

	// A cached PENDING row still projects as OVERDUE on read.
	snapshot := &cache.LoanSnapshot{
		Loan: detail.Loan,
		Installments: []*domain.Installment{{
			ID:       uuid.New(),
			LoanID:   loanID,
			Sequence: 1,
			Amount:   decimal.NewFromInt(10),
			DueDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Status:   domain.InstallmentStatusPending,
		}},
	}
	loanCache.On("Get", mock.Anything, loanID).Return(snapshot, true).Once()

	got, err := f.loans.Get(context.Background(), loanID)
	require.NoError(t, err)
	require.Len(t, got.Installments, 1)
	assert.Equal(t, domain.InstallmentStatusOverdue, got.Installments[0].EffectiveStatus)
	assert.Equal(t, domain.InstallmentStatusPending, got.Installments[0].Status)

	// Mutations drop the entry once committed.
	loanCache.On("Invalidate", mock.Anything, loanID).Return()
	f.pay(t, detail.Installments[0].ID)
	loanCache.AssertCalled(t, "Invalidate", mock.Anything, loanID)

	// A miss reads through and repopulates.
	loanCache.On("Get", mock.Anything, loanID).Return(nil, false).Once()
	got, err = f.loans.Get(context.Background(), loanID)
	require.NoError(t, err)
	assert.Len(t, got.Installments, 12)
	assert.Equal(t, 1, got.PaidCount)
	loanCache.AssertNumberOfCalls(t, "Set", 2)
}

func TestLoanService_Audit(t *testing.T) {
	f := newFixture(t)
	req := exampleRequest()
	req.DisbursementChannel = domain.LedgerChannelCash
	detail := f.createLoan(t, req)
	f.payFirst(t, detail, 2)

	audit, err := f.loans.Audit(context.Background(), detail.Loan.ID)
	require.NoError(t, err)

	assert.Len(t, audit.Installments, 12)
	assert.Len(t, audit.Payments, 2)
	require.Len(t, audit.Ledger, 3)

	counts := map[domain.LedgerDirection]int{}
	for _, entry := range audit.Ledger {
		counts[entry.Direction]++
	}
	assert.Equal(t, 1, counts[domain.LedgerEgreso])
	assert.Equal(t, 2, counts[domain.LedgerIngreso])

	_, err = f.loans.Audit(context.Background(), uuid.New())
	assertCode(t, err, customError.ErrCodeLoanNotFound)
}
