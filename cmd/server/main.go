package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/locamoto/rental-billing/internal/config"
	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/handler"
	"github.com/locamoto/rental-billing/internal/obs"
	"github.com/locamoto/rental-billing/internal/repository"
	"github.com/locamoto/rental-billing/internal/service"
	"github.com/locamoto/rental-billing/pkg/pushclient"
	"github.com/locamoto/rental-billing/pkg/response"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := obs.NewLogger(cfg.Logging.Level, cfg.Logging.Pretty, "rental-billing-server")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	contractRepo := repository.NewContractRepository(db)
	rentalRepo := repository.NewRentalRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	dispatchRepo := repository.NewDispatchRepository(db)
	kv := repository.NewRedisKVStore(redisClient)

	// Initialize services
	clock := domain.SystemClock{}
	resolver := service.NewHistoryResolver(contractRepo, rentalRepo, paymentRepo, logger)
	calculator := service.NewDueCalculator(cfg.GetDefaultWeeklyAmount(), cfg.GetDefaultMonthlyAmount())
	dedup := service.NewDedupCoordinator(paymentRepo, notificationRepo, kv, clock, cfg.GetRateGuardWindow(), logger)
	notifier := service.NewNotifier(dispatchRepo, userRepo, clock, logger)
	pushProvider := pushclient.NewClient(cfg.Push.APIURL, cfg.GetPushTimeout())
	acquirer := service.NewTokenAcquirer(service.DefaultStrategies(pushProvider), userRepo, logger)
	sessions := service.NewSessionManager(resolver, calculator, dedup, paymentRepo, notifier, clock, service.SweepConfig{
		PendingInterval:     cfg.GetPendingInterval(),
		ReminderInterval:    cfg.GetReminderInterval(),
		PendingAgeThreshold: cfg.GetPendingAgeThreshold(),
	}, logger)

	billingHandler := handler.NewBillingHandler(resolver, calculator, dedup, acquirer, clock, logger)
	sessionHandler := handler.NewSessionHandler(sessions)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(billingHandler, sessionHandler, healthHandler, logger)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Stop all session schedulers before closing the listener so no sweep
	// dispatches during teardown.
	sessions.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(billingHandler *handler.BillingHandler, sessionHandler *handler.SessionHandler, healthHandler *handler.HealthHandler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/customers/{customerId}/contracts/{contractId}/due-info", billingHandler.GetDueInfo).Methods("GET")
	api.HandleFunc("/customers/{customerId}/push-token", billingHandler.RegisterPushToken).Methods("POST")
	api.HandleFunc("/customers/{customerId}/notifications/clear", billingHandler.ClearNotifications).Methods("POST")

	api.HandleFunc("/customers/{customerId}/session", sessionHandler.Start).Methods("POST")
	api.HandleFunc("/customers/{customerId}/session", sessionHandler.End).Methods("DELETE")
	api.HandleFunc("/customers/{customerId}/session/payments-changed", sessionHandler.PaymentsChanged).Methods("POST")
	api.HandleFunc("/customers/{customerId}/session/due-info-changed", sessionHandler.DueInfoChanged).Methods("POST")

	return router
}
