package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"phone-location-api/internal/config"
	"phone-location-api/internal/provider"
	"phone-location-api/internal/repository"
	"phone-location-api/internal/service"
	httpTransport "phone-location-api/internal/transport/http"
	"phone-location-api/internal/transport/mq"
	"phone-location-api/internal/usecase"
	"phone-location-api/pkg/database"
	"phone-location-api/pkg/i18n"
	"phone-location-api/pkg/logger"
	"phone-location-api/pkg/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
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

	appLogger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// Initialize dependencies
	deps, err := initializeDependencies(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	// Initialize Echo server
	e := setupEcho(cfg, appLogger, deps)

	// Register routes
	deps.Handler.RegisterRoutes(e)

	// Start server
	startServer(e, cfg, appLogger, deps)
}

// Dependencies holds all application dependencies
type Dependencies struct {
	Provider  provider.Provider
	Service   service.LookupService
	History   repository.HistoryRepository
	Database  *database.Connection
	UseCase   *usecase.LookupUsecase
	Validator validator.Validator
	Localizer *i18n.Localizer
	Handler   *httpTransport.LookupHandler
	Producer  mq.LookupProducer
}

// initializeDependencies initializes all application dependencies
func initializeDependencies(cfg *config.Config, log *logger.Logger) (*Dependencies, error) {
	// Initialize validator
	v := validator.New()

	// Initialize localizer
	localizer, err := i18n.NewLocalizer(&i18n.Config{
		DefaultLanguage: cfg.I18n.DefaultLanguage,
		TranslationDir:  cfg.I18n.TranslationDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}

	// Initialize upstream provider
	var prov provider.Provider
	if cfg.Provider.EnableMock {
		var failWith error
		if cfg.Provider.MockShouldFail {
			failWith = provider.ErrUnavailable
		}
		prov = provider.NewMockProvider(failWith, cfg.Provider.MockDelay)
		log.Info("Using mock lookup provider")
	} else {
		prov = provider.NewHTTPProvider(&provider.HTTPProviderConfig{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
		}, log.Logger)
		log.Info("Using HTTP lookup provider", zap.String("base_url", cfg.Provider.BaseURL))
	}

	// Initialize lookup service
	apiKey := cfg.Provider.APIKey
	if apiKey == "" {
		// The mock provider needs no credentials but the service
		// still requires a non-empty key.
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
		log.Info("Using in-memory lookup history")
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

	// Initialize message queue producer only (consumer runs separately)
	var producer mq.LookupProducer
	if cfg.MessageQueue.EnableMock {
		producer = mq.NewMockProducer(log.Logger)
		log.Info("Using mock message queue producer")
	} else if cfg.MessageQueue.EnableProducer {
		producerConfig := &mq.RabbitMQProducerConfig{
			URL:           cfg.MessageQueue.URL,
			ExchangeName:  cfg.MessageQueue.ExchangeName,
			RoutingPrefix: cfg.MessageQueue.RoutingPrefix,
			Durable:       cfg.MessageQueue.Durable,
			AutoDelete:    cfg.MessageQueue.AutoDelete,
		}
		producer, err = mq.NewRabbitMQProducer(producerConfig, log.Logger)
		if err != nil {
			log.Warn("Failed to initialize RabbitMQ producer, using mock", zap.Error(err))
			producer = mq.NewMockProducer(log.Logger)
		} else {
			log.Info("Using RabbitMQ producer")
		}
	} else {
		producer = mq.NewMockProducer(log.Logger)
		log.Info("Producer disabled, using mock")
	}

	// Initialize use case
	uc, err := usecase.NewLookupUsecase(svc, history, producer, usecase.DefaultRetryPolicy(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup usecase: %w", err)
	}

	// Health probes. The in-memory history and the mock provider have no
	// backing connection to check, so they always report healthy; the HTTP
	// provider exposes no ping endpoint and is reported as not configured.
	probes := map[string]httpTransport.HealthProbe{
		"provider": nil,
		"history":  func(context.Context) error { return nil },
	}
	if cfg.Provider.EnableMock {
		probes["provider"] = func(context.Context) error { return nil }
	}
	if conn != nil {
		probes["history"] = func(context.Context) error { return conn.Ping() }
	}

	// Initialize HTTP handler
	handler := httpTransport.NewLookupHandler(uc, v, localizer, cfg.App.Version, probes)

	return &Dependencies{
		Provider:  prov,
		Service:   svc,
		History:   history,
		Database:  conn,
		UseCase:   uc,
		Validator: v,
		Localizer: localizer,
		Handler:   handler,
		Producer:  producer,
	}, nil
}

// setupEcho configures the Echo web framework
func setupEcho(cfg *config.Config, log *logger.Logger, deps *Dependencies) *echo.Echo {
	e := echo.New()

	// Hide Echo banner
	e.HideBanner = true
	e.HidePort = true

	e.Debug = cfg.App.Debug
	e.HTTPErrorHandler = httpTransport.ErrorHandlerMiddleware()

	// Middleware
	e.Use(httpTransport.RequestIDMiddleware())
	e.Use(httpTransport.I18nMiddleware(deps.Localizer))
	e.Use(createLoggingMiddleware(log))
	e.Use(middleware.Recover())

	if cfg.Server.EnableCORS {
		e.Use(httpTransport.CORSMiddleware())
	}

	// Security headers
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Rate limiting and compression
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	e.Use(middleware.Gzip())

	return e
}

// createLoggingMiddleware creates a custom logging middleware
func createLoggingMiddleware(log *logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		LogUserAgent: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("user_agent", v.UserAgent),
				zap.String("request_id", v.RequestID),
			}

			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Error("Request failed", fields...)
			} else {
				log.Info("Request completed", fields...)
			}

			return nil
		},
	})
}

// startServer starts the HTTP server with graceful shutdown
func startServer(e *echo.Echo, cfg *config.Config, log *logger.Logger, deps *Dependencies) {
	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * 2,
	}

	go func() {
		log.Info("Starting HTTP server",
			zap.String("address", server.Addr),
			zap.Duration("read_timeout", server.ReadTimeout),
			zap.Duration("write_timeout", server.WriteTimeout),
		)

		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Close message queue producer
	if err := deps.Producer.Close(); err != nil {
		log.Error("Failed to close message queue producer", zap.Error(err))
	}

	// Close history store
	if deps.Database != nil {
		if err := deps.Database.Close(); err != nil {
			log.Error("Failed to close history store", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	} else {
		log.Info("Server exited gracefully")
	}
}
