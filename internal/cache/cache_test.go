package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-ledger/internal/domain"
)

// newTestRedis connects to REDIS_ADDR (default localhost:6379) and skips when unreachable.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var c Nop

	c.Set(ctx, &LoanSnapshot{Loan: &domain.Loan{ID: uuid.New()}})
	_, ok := c.Get(ctx, uuid.New())
	assert.False(t, ok)

	c.SetName(ctx, "C-1", "Acme")
	_, ok = c.GetName(ctx, "C-1")
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c1d3e-8a51-4e43-9d1c-0b7c8f0d2a11")
	assert.Equal(t, "loan:6f1c1d3e-8a51-4e43-9d1c-0b7c8f0d2a11", loanKey(id))
	assert.Equal(t, "client:name:C-9", clientNameKey("C-9"))
}

func TestRedisCache_LoanRoundTrip(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	c := NewRedisCache(client, time.Minute, time.Minute, nil)

	loan := &domain.Loan{
		ID:        uuid.New(),
		ClientID:  "C-1",
		Principal: decimal.RequireFromString("120000.00"),
		Currency:  domain.CurrencyPesos,
		Version:   3,
	}
	installment := &domain.Installment{
		ID:       uuid.New(),
		LoanID:   loan.ID,
		Sequence: 1,
		Amount:   decimal.RequireFromString("13859.06"),
		DueDate:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:   domain.InstallmentStatusPending,
	}

	c.Set(ctx, &LoanSnapshot{Loan: loan, Installments: []*domain.Installment{installment}})
	t.Cleanup(func() { c.Invalidate(ctx, loan.ID) })

	got, ok := c.Get(ctx, loan.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.Loan.Version)
	require.Len(t, got.Installments, 1)
	assert.True(t, got.Installments[0].Amount.Equal(installment.Amount))

	c.Invalidate(ctx, loan.ID)
	_, ok = c.Get(ctx, loan.ID)
	assert.False(t, ok)
}

func TestRedisCache_Names(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	c := NewRedisCache(client, time.Minute, time.Minute, nil)

	clientID := "C-" + uuid.NewString()
	_, ok := c.GetName(ctx, clientID)
	assert.False(t, ok)

	c.SetName(ctx, clientID, "Acme SRL")
	t.Cleanup(func() { client.Del(ctx, clientNameKey(clientID)) })

	name, ok := c.GetName(ctx, clientID)
	require.True(t, ok)
	assert.Equal(t, "Acme SRL", name)
}
