package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/locamoto/rental-billing/internal/config"
	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/internal/obs"
	"github.com/locamoto/rental-billing/internal/repository"
	"github.com/locamoto/rental-billing/internal/service"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := obs.NewLogger(cfg.Logging.Level, cfg.Logging.Pretty, "rental-billing-scheduler")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	contractRepo := repository.NewContractRepository(db)
	rentalRepo := repository.NewRentalRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	dispatchRepo := repository.NewDispatchRepository(db)
	kv := repository.NewRedisKVStore(redisClient)

	clock := domain.SystemClock{}
	resolver := service.NewHistoryResolver(contractRepo, rentalRepo, paymentRepo, logger)
	calculator := service.NewDueCalculator(cfg.GetDefaultWeeklyAmount(), cfg.GetDefaultMonthlyAmount())
	dedup := service.NewDedupCoordinator(paymentRepo, notificationRepo, kv, clock, cfg.GetRateGuardWindow(), logger)
	notifier := service.NewNotifier(dispatchRepo, userRepo, clock, logger)
	jobs := service.NewFleetJobs(
		contractRepo, notificationRepo,
		resolver, calculator, dedup, paymentRepo, notifier,
		clock, cfg.GetPendingAgeThreshold(), logger,
	)

	// Initialize cron scheduler in the business timezone
	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.GetLocation()))

	setupCronJobs(c, cfg, jobs, logger)

	c.Start()
	logger.Info("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, jobs *service.FleetJobs, logger *zap.Logger) {
	// Pending-payment sweep (every 10 minutes by default)
	_, err := c.AddFunc(cfg.Sweep.PendingCron, func() {
		jobs.SweepPendingPayments(context.Background())
	})
	if err != nil {
		logger.Error("failed to schedule pending payment sweep", zap.Error(err))
	}

	// Due-reminder sweep (every 5 hours by default)
	_, err = c.AddFunc(cfg.Sweep.ReminderCron, func() {
		jobs.SweepDueReminders(context.Background())
	})
	if err != nil {
		logger.Error("failed to schedule due reminder sweep", zap.Error(err))
	}

	// Midnight janitor (daily at 00:00)
	_, err = c.AddFunc(cfg.Sweep.JanitorCron, func() {
		jobs.RunMidnightJanitor(context.Background())
	})
	if err != nil {
		logger.Error("failed to schedule midnight janitor", zap.Error(err))
	}

	logger.Info("cron jobs scheduled",
		zap.String("pending", cfg.Sweep.PendingCron),
		zap.String("reminder", cfg.Sweep.ReminderCron),
		zap.String("janitor", cfg.Sweep.JanitorCron),
	)
}
