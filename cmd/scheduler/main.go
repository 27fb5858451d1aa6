package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/config"
	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/logger"
	"github.com/segyhp/lending-ledger/internal/repository"
	"github.com/segyhp/lending-ledger/internal/service"
)

// OverdueReporter is the read model the digest runs against.
type OverdueReporter interface {
	OverdueReport(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("starting lending scheduler")

	store, err := repository.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	loc := cfg.SchedulerLocation()
	loans := service.NewLoanService(service.Deps{
		Store:  store,
		Logger: log.Named("service"),
		Now:    func() time.Time { return time.Now().In(loc) },
	})

	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger{log})))

	if _, err := c.AddFunc(cfg.Scheduler.OverdueDigestSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		runOverdueDigest(ctx, loans, time.Time{}, log.Named("overdue"))
	}); err != nil {
		log.Fatal("error scheduling overdue digest", zap.String("spec", cfg.Scheduler.OverdueDigestSpec), zap.Error(err))
	}

	c.Start()
	log.Info("scheduler started", zap.String("overdue_digest", cfg.Scheduler.OverdueDigestSpec), zap.String("timezone", loc.String()))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down scheduler")
	<-c.Stop().Done()
	log.Info("scheduler stopped")
}

type loanDigest struct {
	clientID string
	currency domain.Currency
	count    int
	amount   decimal.Decimal
	oldest   int
}

// runOverdueDigest logs one line per loan with overdue installments. Overdue
// is projected from due dates, nothing is written back.
func runOverdueDigest(ctx context.Context, reporter OverdueReporter, asOf time.Time, log *zap.Logger) map[uuid.UUID]*loanDigest {
	rows, err := reporter.OverdueReport(ctx, asOf)
	if err != nil {
		log.Error("overdue digest failed", zap.Error(err))
		return nil
	}

	digests := make(map[uuid.UUID]*loanDigest)
	order := make([]uuid.UUID, 0)
	for _, row := range rows {
		d, ok := digests[row.LoanID]
		if !ok {
			d = &loanDigest{clientID: row.ClientID, currency: row.Currency, amount: decimal.Zero}
			digests[row.LoanID] = d
			order = append(order, row.LoanID)
		}
		d.count++
		d.amount = d.amount.Add(row.Amount)
		d.oldest = max(d.oldest, row.DaysOverdue)
	}

	for _, loanID := range order {
		d := digests[loanID]
		log.Info("loan has overdue installments",
			zap.String("loan_id", loanID.String()),
			zap.String("client_id", d.clientID),
			zap.Int("installments", d.count),
			zap.String("amount", d.amount.StringFixed(2)),
			zap.String("currency", string(d.currency)),
			zap.Int("max_days_overdue", d.oldest),
		)
	}
	log.Info("overdue digest complete", zap.Int("loans", len(order)), zap.Int("installments", len(rows)))

	return digests
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
