package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/salaries/internal/salary/auth"
	"github.com/gartstein/salaries/internal/salary/config"
	"github.com/gartstein/salaries/internal/salary/controller"
	gorm "github.com/gartstein/salaries/internal/salary/db"
	"github.com/gartstein/salaries/internal/salary/events"
	"github.com/gartstein/salaries/internal/salary/handlers"
	"github.com/gartstein/salaries/internal/salary/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := gorm.NewRepository(initDatabase(cfg))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	if err := events.EnsureTopic(cfg.KafkaBrokers, cfg.Topic, logger); err != nil {
		logger.Fatal("failed to initialize Kafka topic", zap.Error(err))
	}
	producer := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.AuditGroupID != "" {
		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.AuditGroupID, cfg.Topic, logger)
		consumer.RegisterHandler(events.AuditHandler(logger))
		consumer.Start(ctx)
		defer func() {
			cancel()
			consumer.Close()
		}()
	}

	salarySvc := controller.NewSalaryService(repo, producer, metrics.New(prometheus.DefaultRegisterer), logger)
	salaryHandler := handlers.NewSalaryHandler(salarySvc, logger)

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger,
		grpc.UnaryInterceptor(authInterceptor.Unary()),
		grpc.StreamInterceptor(authInterceptor.Stream()),
	)
	if err := server.RegisterHTTPGateway(salaryHandler, cfg.JWTSecret, repo.Ping); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// loadConfig reads SALARY_CONFIG, or the bundled file when unset.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("SALARY_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}
	return config.Load(path)
}

// initDatabase initializes the database connection settings.
func initDatabase(cfg *config.Config) *gorm.Config {
	return &gorm.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
