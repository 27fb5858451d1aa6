package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-ledger/internal/cache"
)

type MockLoanCache struct {
	mock.Mock
}

func (m *MockLoanCache) Get(ctx context.Context, loanID uuid.UUID) (*cache.LoanSnapshot, bool) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*cache.LoanSnapshot), args.Bool(1)
}

func (m *MockLoanCache) Set(ctx context.Context, snapshot *cache.LoanSnapshot) {
	m.Called(ctx, snapshot)
}

func (m *MockLoanCache) Invalidate(ctx context.Context, loanID uuid.UUID) {
	m.Called(ctx, loanID)
}

type MockNameCache struct {
	mock.Mock
}

func (m *MockNameCache) GetName(ctx context.Context, clientID string) (string, bool) {
	args := m.Called(ctx, clientID)
	return args.String(0), args.Bool(1)
}

func (m *MockNameCache) SetName(ctx context.Context, clientID, name string) {
	m.Called(ctx, clientID, name)
}
