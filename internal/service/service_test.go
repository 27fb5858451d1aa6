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
	"go.uber.org/zap/zaptest"

	"github.com/segyhp/lending-ledger/internal/cache"
	"github.com/segyhp/lending-ledger/internal/directory"
	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/mocks"
	"github.com/segyhp/lending-ledger/internal/repository"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
)

var fixedNow = time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)

type fixture struct {
	store    *repository.SQLStore
	deps     Deps
	loans    *LoanService
	payments *PaymentService
	expenses *ExpenseService
	recalc   *RecalculationService
	deletion *DeletionService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, nil)
}

func newFixtureWithCache(t *testing.T, loanCache cache.LoanCache) *fixture {
	t.Helper()

	store, err := repository.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	store.DB().MustExec(`INSERT INTO clients (id, display_name) VALUES (?, ?)`, "C-1", "Acme SRL")

	logger := zaptest.NewLogger(t)
	deps := Deps{
		Store:  store,
		Names:  directory.NewResolver(directory.NewSQLDirectory(store.Clients()), directory.DefaultPlaceholder, logger),
		Cache:  loanCache,
		Logger: logger,
		Now:    func() time.Time { return fixedNow },
	}
	return newFixtureFromDeps(store, deps)
}

func newFixtureFromDeps(store *repository.SQLStore, deps Deps) *fixture {
	return &fixture{
		store:    store,
		deps:     deps,
		loans:    NewLoanService(deps),
		payments: NewPaymentService(deps),
		expenses: NewExpenseService(deps),
		recalc:   NewRecalculationService(deps),
		deletion: NewDeletionService(deps),
	}
}

// withFailingLedger rebuilds the services over a unit of work whose ledger
// rejects every append.
func (f *fixture) withFailingLedger(t *testing.T) *fixture {
	t.Helper()

	ledger := &mocks.MockLedgerRepository{}
	ledger.On("Append", mock.Anything, mock.Anything).Return(assert.AnError)

	deps := f.deps
	deps.Store = failingLedgerStore{SQLStore: f.store, ledger: ledger}
	return newFixtureFromDeps(f.store, deps)
}

type failingLedgerStore struct {
	*repository.SQLStore
	ledger repository.LedgerRepository
}

func (s failingLedgerStore) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return s.SQLStore.WithinTx(ctx, func(repos repository.Repositories) error {
		return fn(failingLedgerRepos{Repositories: repos, ledger: s.ledger})
	})
}

type failingLedgerRepos struct {
	repository.Repositories
	ledger repository.LedgerRepository
}

func (r failingLedgerRepos) Ledger() repository.LedgerRepository {
	return r.ledger
}

func exampleRequest() *domain.CreateLoanRequest {
	tax := decimal.NewFromInt(21)
	return &domain.CreateLoanRequest{
		TermsRequest: domain.TermsRequest{
			Principal:     decimal.NewFromInt(120000),
			AnnualRate:    decimal.NewFromInt(65),
			Periods:       12,
			Frequency:     domain.FrequencyMonthly,
			TaxOnInterest: &tax,
			StartDate:     "2024-01-01",
		},
		ClientID: "C-1",
		Currency: domain.CurrencyPesos,
	}
}

// flatRequest is a zero-rate loan of 120000 over 12 months: 12 x 10000.
func flatRequest() *domain.CreateLoanRequest {
	return &domain.CreateLoanRequest{
		TermsRequest: domain.TermsRequest{
			Principal:  decimal.NewFromInt(120000),
			AnnualRate: decimal.Zero,
			Periods:    12,
			Frequency:  domain.FrequencyMonthly,
			StartDate:  "2024-01-01",
		},
		ClientID: "C-1",
		Currency: domain.CurrencyPesos,
	}
}

func (f *fixture) createLoan(t *testing.T, req *domain.CreateLoanRequest) *domain.LoanDetail {
	t.Helper()

	detail, err := f.loans.Create(context.Background(), req)
	require.NoError(t, err)
	return detail
}

func (f *fixture) pay(t *testing.T, installmentID uuid.UUID) *domain.PaymentReceipt {
	t.Helper()

	receipt, err := f.payments.Pay(context.Background(), &domain.PayRequest{
		InstallmentID: installmentID,
		Method:        domain.PaymentMethodCash,
		Channel:       domain.LedgerChannelCash,
	})
	require.NoError(t, err)
	return receipt
}

// payFirst pays the first n installments of the loan in order.
func (f *fixture) payFirst(t *testing.T, detail *domain.LoanDetail, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		f.pay(t, detail.Installments[i].ID)
	}
}

func (f *fixture) ledger(t *testing.T, loanID uuid.UUID) []*domain.LedgerEntry {
	t.Helper()

	entries, err := f.store.Repositories().Ledger().ListByLoan(context.Background(), loanID)
	require.NoError(t, err)
	return entries
}

func (f *fixture) installments(t *testing.T, loanID uuid.UUID) []*domain.Installment {
	t.Helper()

	installments, err := f.store.Repositories().Installments().ListByLoan(context.Background(), loanID)
	require.NoError(t, err)
	return installments
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, code, customError.CodeOf(err), "unexpected error: %v", err)
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()

	assert.True(t, actual.Equal(decimal.RequireFromString(expected)), "expected %s, got %s", expected, actual)
}
