// Package cache keeps read-through copies of loan state and client names in Redis.
// Cache failures never fail the caller: they are logged and treated as misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/domain"
)

// LoanSnapshot is the stored state of a loan. Effective installment statuses
// are not cached; they are projected again on every read.
type LoanSnapshot struct {
	Loan         *domain.Loan          `json:"loan"`
	Installments []*domain.Installment `json:"installments"`
	Expenses     []*domain.Expense     `json:"expenses"`
}

type LoanCache interface {
	Get(ctx context.Context, loanID uuid.UUID) (*LoanSnapshot, bool)
	Set(ctx context.Context, snapshot *LoanSnapshot)
	Invalidate(ctx context.Context, loanID uuid.UUID)
}

type NameCache interface {
	GetName(ctx context.Context, clientID string) (string, bool)
	SetName(ctx context.Context, clientID, name string)
}

func loanKey(loanID uuid.UUID) string {
	return "loan:" + loanID.String()
}

func clientNameKey(clientID string) string {
	return "client:name:" + clientID
}

// RedisCache implements LoanCache and NameCache.
type RedisCache struct {
	client  *redis.Client
	loanTTL time.Duration
	nameTTL time.Duration
	logger  *zap.Logger
}

func NewRedisCache(client *redis.Client, loanTTL, nameTTL time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{
		client:  client,
		loanTTL: loanTTL,
		nameTTL: nameTTL,
		logger:  logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, loanID uuid.UUID) (*LoanSnapshot, bool) {
	raw, err := c.client.Get(ctx, loanKey(loanID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("loan cache read failed", zap.String("loan_id", loanID.String()), zap.Error(err))
		}
		return nil, false
	}

	var snapshot LoanSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil || snapshot.Loan == nil {
		c.logger.Warn("discarding unreadable loan cache entry", zap.String("loan_id", loanID.String()), zap.Error(err))
		c.Invalidate(ctx, loanID)
		return nil, false
	}

	return &snapshot, true
}

func (c *RedisCache) Set(ctx context.Context, snapshot *LoanSnapshot) {
	if snapshot == nil || snapshot.Loan == nil {
		return
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("loan cache encode failed", zap.String("loan_id", snapshot.Loan.ID.String()), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, loanKey(snapshot.Loan.ID), raw, c.loanTTL).Err(); err != nil {
		c.logger.Warn("loan cache write failed", zap.String("loan_id", snapshot.Loan.ID.String()), zap.Error(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, loanID uuid.UUID) {
	if err := c.client.Del(ctx, loanKey(loanID)).Err(); err != nil {
		c.logger.Warn("loan cache invalidation failed", zap.String("loan_id", loanID.String()), zap.Error(err))
	}
}

func (c *RedisCache) GetName(ctx context.Context, clientID string) (string, bool) {
	name, err := c.client.Get(ctx, clientNameKey(clientID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("client name cache read failed", zap.String("client_id", clientID), zap.Error(err))
		}
		return "", false
	}
	return name, name != ""
}

func (c *RedisCache) SetName(ctx context.Context, clientID, name string) {
	if err := c.client.Set(ctx, clientNameKey(clientID), name, c.nameTTL).Err(); err != nil {
		c.logger.Warn("client name cache write failed", zap.String("client_id", clientID), zap.Error(err))
	}
}

// Nop is used when Redis is disabled.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (*LoanSnapshot, bool) { return nil, false }
func (Nop) Set(context.Context, *LoanSnapshot)                  {}
func (Nop) Invalidate(context.Context, uuid.UUID)               {}
func (Nop) GetName(context.Context, string) (string, bool)      { return "", false }
func (Nop) SetName(context.Context, string, string)             {}
