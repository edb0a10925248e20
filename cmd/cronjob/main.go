package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"hireflow-backend/internal/app"
	"hireflow-backend/internal/config"
	"hireflow-backend/internal/jobs"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository/postgres"
	"hireflow-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'i9-deadline-reminders', 'all-daily')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Hireflow Cronjob Runner...", "log_level", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(ctx, cfg.Database, cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// The dispatcher delivers reminders; workers outlive the signal context so
	// queued notices drain on shutdown.
	engine, err := app.New(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	engine.Start(workerCtx)
	defer func() {
		stopWorkers()
		engine.Close()
	}()

	var dedupe jobs.Deduper
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		dedupe = jobs.NewRedisDeduper(client, "hireflow:reminders:")
		logger.Info("Reminder dedupe enabled", "redis", cfg.Redis.Addr)
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(engine.Store.Repositories, engine.Dispatcher, dedupe, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			printJobs()
			stopWorkers()
			engine.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once. It reports false for an unknown name.
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "i9-deadline-reminders":
		jobRunner.SendI9DeadlineReminders()
	case "authorization-expiry-reminders":
		jobRunner.SendAuthorizationExpiryReminders()
	case "waiting-period-notices":
		jobRunner.SendWaitingPeriodNotices()
	case "all-daily":
		jobRunner.RunAllDailyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		return false
	}
	return true
}

func printJobs() {
	fmt.Printf("Available jobs:\n")
	fmt.Printf("  - i9-deadline-reminders\n")
	fmt.Printf("  - authorization-expiry-reminders\n")
	fmt.Printf("  - waiting-period-notices\n")
	fmt.Printf("  - all-daily\n")
}
