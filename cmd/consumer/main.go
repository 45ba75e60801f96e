package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"phone-location-api/internal/config"
	"phone-location-api/internal/provider"
	"phone-location-api/internal/repository"
	"phone-location-api/internal/service"
	"phone-location-api/internal/transport/mq"
	"phone-location-api/internal/usecase"
	"phone-location-api/pkg/database"
	"phone-location-api/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Close()

	// Set global logger
	logger.SetGlobal(appLogger)

	appLogger.Info("Starting lookup request consumer",
		zap.String("name", cfg.App.Name+"-consumer"),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// Initialize dependencies for queued lookups
	deps, err := initializeConsumerDependencies(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize consumer dependencies", zap.Error(err))
	}

	// Start consumer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := deps.Consumer.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start lookup request consumer", zap.Error(err))
	}

	appLogger.Info("Lookup request consumer started successfully")

	// Wait for interrupt signal to gracefully shutdown the consumer
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down consumer...")

	cancel()

	if err := deps.Consumer.Stop(); err != nil {
		appLogger.Error("Failed to stop consumer gracefully", zap.Error(err))
	} else {
		appLogger.Info("Consumer stopped gracefully")
	}

	if err := deps.Producer.Close(); err != nil {
		appLogger.Error("Failed to close producer", zap.Error(err))
	}

	if deps.Database != nil {
		if err := deps.Database.Close(); err != nil {
			appLogger.Error("Failed to close history store", zap.Error(err))
		}
	}

	appLogger.Info("Consumer shutdown complete")
}

// ConsumerDependencies holds all dependencies needed for the consumer
type ConsumerDependencies struct {
	Provider provider.Provider
	Service  service.LookupService
	History  repository.HistoryRepository
	Database *database.Connection
	UseCase  *usecase.LookupUsecase
	Producer mq.LookupProducer
	Consumer mq.LookupConsumer
}

// initializeConsumerDependencies initializes all dependencies needed for the consumer
func initializeConsumerDependencies(cfg *config.Config, log *logger.Logger) (*ConsumerDependencies, error) {
	// Initialize upstream provider
	var prov provider.Provider
	if cfg.Provider.EnableMock {
		var failWith error
		if cfg.Provider.MockShouldFail {
			failWith = provider.ErrUnavailable
		}
		prov = provider.NewMockProvider(failWith, cfg.Provider.MockDelay)
		log.Info("Using mock lookup provider for consumer")
	} else {
		prov = provider.NewHTTPProvider(&provider.HTTPProviderConfig{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
		}, log.Logger)
		log.Info("Using HTTP lookup provider for consumer", zap.String("base_url", cfg.Provider.BaseURL))
	}

	// Initialize lookup service
	apiKey := cfg.Provider.APIKey
	if apiKey == "" {
		apiKey = "mock-api-key"
	}
	svc, err := service.NewLookupService(prov, service.Config{
		APIKey:         apiKey,
		DefaultTimeout: cfg.Provider.DefaultTimeout,
	}, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup service: %w", err)
	}

	// Initialize history store
	var history repository.HistoryRepository
	var conn *database.Connection
	switch cfg.Database.Type {
	case "memory":
		history = repository.NewInMemoryHistoryRepository()
		log.Info("Using in-memory lookup history for consumer")
	case "sqlite", "postgres":
		conn, err = database.Open(&cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		if err := conn.Migrate(&repository.LookupRecord{}); err != nil {
			return nil, fmt.Errorf("failed to migrate history store: %w", err)
		}
		history = repository.NewGormHistoryRepository(conn.DB)
		log.Info("Using persistent lookup history", zap.String("type", cfg.Database.Type))
	default:
		history = repository.NewInMemoryHistoryRepository()
		log.Warn("Unsupported database type, falling back to in-memory history",
			zap.String("type", cfg.Database.Type))
	}

	// Initialize producer so queued lookups publish their outcomes
	var producer mq.LookupProducer
	if cfg.MessageQueue.EnableMock {
		producer = mq.NewMockProducer(log.Logger)
		log.Info("Using mock message queue producer for consumer")
	} else {
		producerConfig := &mq.RabbitMQProducerConfig{
			URL:           cfg.MessageQueue.URL,
			ExchangeName:  cfg.MessageQueue.ExchangeName,
			RoutingPrefix: cfg.MessageQueue.RoutingPrefix,
			Durable:       cfg.MessageQueue.Durable,
			AutoDelete:    cfg.MessageQueue.AutoDelete,
		}
		producer, err = mq.NewRabbitMQProducer(producerConfig, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ producer: %w", err)
		}
		log.Info("Using RabbitMQ producer for consumer")
	}

	// Initialize use case
	uc, err := usecase.NewLookupUsecase(svc, history, producer, usecase.DefaultRetryPolicy(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup usecase: %w", err)
	}

	// Initialize message queue consumer
	handler := mq.NewDefaultLookupRequestHandler(uc, log.Logger)

	var consumer mq.LookupConsumer
	if cfg.MessageQueue.EnableMock {
		consumer = mq.NewMockConsumer(handler, log.Logger)
		log.Info("Using mock message queue consumer")
	} else {
		if !cfg.MessageQueue.EnableConsumer {
			return nil, fmt.Errorf("consumer is disabled in configuration")
		}

		consumerConfig := &mq.RabbitMQConsumerConfig{
			URL:           cfg.MessageQueue.URL,
			ExchangeName:  cfg.MessageQueue.ExchangeName,
			QueueName:     cfg.MessageQueue.QueueName,
			RoutingKeys:   cfg.MessageQueue.RoutingKeys,
			Durable:       cfg.MessageQueue.Durable,
			AutoDelete:    cfg.MessageQueue.AutoDelete,
			Exclusive:     cfg.MessageQueue.Exclusive,
			NoWait:        cfg.MessageQueue.NoWait,
			PrefetchCount: cfg.MessageQueue.PrefetchCount,
		}
		consumer, err = mq.NewRabbitMQConsumer(consumerConfig, handler, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ consumer: %w", err)
		}
		log.Info("Using RabbitMQ consumer")
	}

	return &ConsumerDependencies{
		Provider: prov,
		Service:  svc,
		History:  history,
		Database: conn,
		UseCase:  uc,
		Producer: producer,
		Consumer: consumer,
	}, nil
}

// Health check for the consumer application
func init() {
	if os.Getenv("HEALTH_CHECK") == "true" {
		fmt.Println("OK")
		os.Exit(0)
	}
}
