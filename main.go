package main

import (
	"os"
	"strings"

	"taskforge/config"
	"taskforge/engine"
	"taskforge/routes"
	"taskforge/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := newLogger()

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	configureLogger(logger)

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Warnf("Failed to initialize Sentry: %v", err)
		}
	}

	// Initialize database and Redis connections
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := config.ConnectRedis(); err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Reconciliation engine behind its run lock
	eng := engine.New(config.DB, logger)
	runner := engine.NewLockedRunner(eng, config.Redis, logger, config.AppConfig.EngineRunLockTTL)

	// Scheduled engine runs
	engineWorker := worker.NewEngineWorker(runner, logger, config.AppConfig.EngineCronSpec, config.AppConfig.EngineBatchLimit)
	if err := engineWorker.Start(); err != nil {
		logger.Fatalf("Failed to start engine worker: %v", err)
	}
	defer engineWorker.Stop()

	// Create Fiber app
	app := fiber.New()

	// Setup routes
	routes.SetupRoutes(app, config.DB, runner, logger)

	// Start server
	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	return logger
}

func configureLogger(logger *logrus.Logger) {
	level, err := logrus.ParseLevel(strings.ToLower(config.AppConfig.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.ToLower(config.AppConfig.Environment) == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
