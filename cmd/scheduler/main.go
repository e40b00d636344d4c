package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/investment-ledger-core/internal/config"
	"github.com/investment-ledger-core/internal/data/mongo"
	"github.com/investment-ledger-core/internal/data/postgres"
	"github.com/investment-ledger-core/internal/ledger/service"
	"github.com/investment-ledger-core/internal/logger"
	"github.com/investment-ledger-core/internal/platform/messaging/producers"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/investment-ledger-core/internal/scheduler"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("scheduler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the notification sink
	notifier, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka notification producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	txnRepo := postgres.NewTransactionRepository(log, postgresDB)
	invRepo := postgres.NewInvestmentRepository(log, postgresDB)
	payoutRepo := postgres.NewPayoutRepository(log, postgresDB)
	flagRepo := postgres.NewComplianceRepository(log, postgresDB)
	userRepo := postgres.NewUserRepository(log, postgresDB)
	settingsRepo := postgres.NewSettingsRepository(log, postgresDB)
	taskRepo := postgres.NewTaskRepository(log, postgresDB)
	sessionRepo := postgres.NewSessionRepository(log, postgresDB)
	auditor := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize services
	amlService := service.NewAMLService(log, txnRepo, flagRepo, userRepo, settingsRepo, notifier, auditor)
	investmentService, err := service.NewInvestmentService(log, postgresDB, invRepo, payoutRepo, txnRepo, walletRepo, settingsRepo, amlService, notifier, cfg.WorkerPool.Size)
	if err != nil {
		log.Error("Failed to initialize investment service", "error", err)
		os.Exit(1)
	}

	// Initialize and start the scheduler
	sched := scheduler.NewScheduler(log, &cfg.Scheduler, taskRepo, investmentService, amlService, sessionRepo)
	sched.Start(appCtx)

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	sched.Stop()
	cancelAppCtx()
	investmentService.Shutdown()
	postgresDB.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err = notifier.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Scheduler shutdown completed successfully")
}
