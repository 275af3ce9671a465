package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/planflow/planflow/internal/config"
	"github.com/planflow/planflow/internal/contract"
	"github.com/planflow/planflow/internal/dispatch"
	"github.com/planflow/planflow/internal/plan"
	"github.com/planflow/planflow/internal/queue"
	"github.com/planflow/planflow/internal/worker"
	"github.com/planflow/planflow/shared/logger"
	"github.com/planflow/planflow/shared/rabbitmq"
	"github.com/planflow/planflow/shared/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	workerID := cfg.Worker.WorkerID
	if workerID == "" {
		workerID = uuid.New().String()
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("worker_id", workerID),
		slog.String("role", cfg.Worker.Role),
		slog.String("runtime", cfg.Worker.Runtime),
	)

	// Initialize the SQLite job store
	dbClient, err := initSQLite(&cfg.Queue, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job store: %w", err)
	}
	defer dbClient.Close()

	jobQueue, err := queue.New(dbClient.GetDB(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job queue: %w", err)
	}

	// Initialize the plan workspace, executor, and follow-up dispatcher
	plans := plan.NewStore(cfg.Workspace.Cwd, appLogger.Logger)
	executor := worker.NewPlanExecutor(plans)

	// Cancel the loop on SIGINT/SIGTERM; in-flight transitions get a
	// bounded window to finish.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the optional wake-hint broker
	var rabbitClient *rabbitmq.Client
	var hints dispatch.HintPublisher
	var wake chan struct{}
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		hints = rabbitClient

		deliveries, err := rabbitClient.ConsumeWakeHints("worker-" + workerID)
		if err != nil {
			return fmt.Errorf("failed to consume wake hints: %w", err)
		}

		wake = make(chan struct{}, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-deliveries:
					if !ok {
						return
					}
					select {
					case wake <- struct{}{}:
					default:
					}
				}
			}
		}()
		appLogger.Info("RabbitMQ connection established")
	}

	dispatcher := dispatch.New(cfg.Workspace.Cwd, jobQueue, plans, hints, appLogger.Logger)

	hostname, _ := os.Hostname()
	opts := worker.Options{
		Role: contract.Role(cfg.Worker.Role),
		Worker: contract.Owner{
			WorkerID: workerID,
			Runtime:  cfg.Worker.Runtime,
			Host:     hostname,
			PID:      os.Getpid(),
		},
		LeaseDuration: cfg.Worker.LeaseDuration,
		PollInterval:  cfg.Worker.PollInterval,
		MaxJobs:       cfg.Worker.MaxJobs,
		Wake:          wake,
	}

	w := worker.New(opts, jobQueue, plans, executor, dispatcher, appLogger.Logger)

	result, err := w.Run(ctx)
	if err != nil {
		return fmt.Errorf("worker loop failed: %w", err)
	}

	appLogger.Info("Worker service stopped",
		slog.String("worker_id", workerID),
		slog.Int("processed", result.Processed),
	)
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initSQLite initializes the SQLite job store client
func initSQLite(cfg *config.QueueConfig, logger *slog.Logger) (*sqlite.Client, error) {
	dbConfig := &sqlite.Config{
		Path:        cfg.Path,
		BusyTimeout: cfg.BusyTimeout,
		InMemory:    cfg.InMemory,
	}

	return sqlite.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the wake-hint broker client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
