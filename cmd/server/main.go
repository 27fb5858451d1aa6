package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/cache"
	"github.com/segyhp/lending-ledger/internal/config"
	"github.com/segyhp/lending-ledger/internal/directory"
	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/internal/handler"
	"github.com/segyhp/lending-ledger/internal/logger"
	"github.com/segyhp/lending-ledger/internal/metrics"
	"github.com/segyhp/lending-ledger/internal/repository"
	"github.com/segyhp/lending-ledger/internal/service"
)

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
	zap.ReplaceGlobals(log)

	// Initialize database
	store, err := initStore(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Initialize Redis
	var (
		redisClient *redis.Client
		loanCache   cache.LoanCache = cache.Nop{}
		dir         directory.Directory
	)
	dir = directory.NewSQLDirectory(store.Clients())
	if cfg.Redis.Enabled {
		redisClient, err = initRedis(cfg)
		if err != nil {
			log.Fatal("failed to initialize redis", zap.Error(err))
		}
		defer redisClient.Close()

		redisCache := cache.NewRedisCache(redisClient, cfg.Cache.LoanTTL, cfg.Cache.ClientNameTTL, log.Named("cache"))
		loanCache = redisCache
		dir = directory.NewCachedDirectory(dir, redisCache)
	}

	// Initialize services
	deps := service.Deps{
		Store:  store,
		Names:  directory.NewResolver(dir, cfg.Business.UnidentifiedClientLabel, log.Named("directory")),
		Cache:  loanCache,
		Logger: log.Named("service"),
	}
	loanService := service.NewLoanService(deps)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := handler.NewRouter(handler.Handlers{
		Loans: handler.NewLoanHandler(
			loanService,
			service.NewRecalculationService(deps),
			service.NewDeletionService(deps),
			domain.Currency(cfg.Business.DefaultCurrency),
			log,
		),
		Expenses: handler.NewExpenseHandler(service.NewExpenseService(deps), log),
		Payments: handler.NewPaymentHandler(service.NewPaymentService(deps), log),
		Health:   handler.NewHealthHandler(store, redisClient, cfg.Health.Timeout),
		Metrics:  metrics.NewHTTP(registry),
	}, log.Named("http"))

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      corsHandler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func initStore(cfg *config.Config) (*repository.SQLStore, error) {
	if cfg.Database.Driver == config.DriverPostgres && cfg.Database.AutoMigrate {
		if err := repository.MigratePostgres(cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	store, err := repository.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == config.DriverPostgres {
		db := store.DB()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}

	return store, nil
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.URL != "" {
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	return redis.NewClient(opts), nil
}
