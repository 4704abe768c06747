package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/orgledger/docs"
	"github.com/ruralpay/orgledger/internal/audit"
	"github.com/ruralpay/orgledger/internal/config"
	"github.com/ruralpay/orgledger/internal/database"
	"github.com/ruralpay/orgledger/internal/events"
	"github.com/ruralpay/orgledger/internal/events/kafka"
	"github.com/ruralpay/orgledger/internal/handlers"
	"github.com/ruralpay/orgledger/internal/locks"
	mW "github.com/ruralpay/orgledger/internal/middleware"
	"github.com/ruralpay/orgledger/internal/notify"
	"github.com/ruralpay/orgledger/internal/render"
	"github.com/ruralpay/orgledger/internal/services"
	"github.com/ruralpay/orgledger/internal/storage"
	"github.com/ruralpay/orgledger/internal/storage/memory"
	"github.com/ruralpay/orgledger/internal/storage/postgres"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Organization Ledger API
// @version 1.0
// @description Organization balances, payroll and vendor settlement
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := config.Init(".env"); err != nil {
		logger.Info("config file not found, using environment and defaults", zap.Error(err))
	}
	serverCfg := config.LoadServerConfig()
	settlementCfg, err := config.LoadSettlementConfig()
	if err != nil {
		logger.Fatal("invalid settlement configuration", zap.Error(err))
	}
	if serverCfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET_KEY is required")
	}

	docs.SwaggerInfo.Host = serverCfg.SwaggerHost

	ctx := context.Background()

	var store storage.Store
	switch settlementCfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, state is lost on restart")
		store = memory.NewStore()
	default:
		db, err := database.InitDB(ctx, logger)
		if err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err))
		}
		defer db.Close()
		store = postgres.NewStore(db)
	}

	redisClient := database.InitRedis(ctx, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	locker, err := newLocker(settlementCfg, redisClient, logger)
	if err != nil {
		logger.Fatal("failed to initialize locks", zap.Error(err))
	}

	var notifier notify.Notifier = notify.NewLog(logger.Named("notify"))
	if settlementCfg.NotifyDriver == config.NotifyRedis {
		if redisClient == nil {
			logger.Fatal("notify driver redis requires a reachable redis")
		}
		notifier = notify.Multi{notifier, notify.NewRedisQueue(redisClient, settlementCfg.NotificationQueue)}
	}

	var publisher events.Publisher = events.Nop{}
	if len(settlementCfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(settlementCfg.KafkaBrokers, settlementCfg.KafkaTopicPrefix)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Warn("failed to close kafka publisher", zap.Error(err))
			}
		}()
		publisher = kp
	}

	auditLog := audit.NewLogger(logger)
	renderer := render.NewRenderer(settlementCfg.Currency)

	ledgerService := services.NewLedgerService(store, locker, auditLog, logger.Named("ledger"))
	billService := services.NewBillService(store, renderer)
	iso20022Service := services.NewISO20022Service(settlementCfg.Currency, settlementCfg.BankBIC)
	payrollService := services.NewPayrollService(store, ledgerService, notifier, publisher, renderer, auditLog, logger)
	vendorPaymentService := services.NewVendorPaymentService(store, ledgerService, billService, iso20022Service, notifier, publisher, auditLog, logger)
	depositService := services.NewDepositService(store, ledgerService, notifier, publisher, auditLog, logger)

	ledgerHandler := handlers.NewLedgerHandler(ledgerService, depositService, logger)
	payrollHandler := handlers.NewPayrollHandler(payrollService, logger)
	vendorPaymentHandler := handlers.NewVendorPaymentHandler(vendorPaymentService, billService, logger)

	auth := mW.NewAuthenticator(serverCfg.JWTSecret)
	idempotent := mW.Idempotency(redisClient, settlementCfg.IdempotencyTTL, logger.Named("idempotency"))

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   serverCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mW.IdempotencyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		ledgerHandler.Register(r, idempotent)
		payrollHandler.Register(r)
		vendorPaymentHandler.Register(r, idempotent)
	})

	server := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      r,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLocker(cfg *config.SettlementConfig, client *redis.Client, logger *zap.Logger) (locks.Locker, error) {
	if cfg.LockDriver != config.LocksRedis {
		return locks.NewLocal(), nil
	}
	if client == nil {
		return nil, errors.New("locks driver redis requires a reachable redis")
	}
	opts := locks.DefaultRedisOptions()
	opts.Expiry = cfg.LockExpiry
	return locks.NewRedis(client, opts, logger.Named("locks")), nil
}
