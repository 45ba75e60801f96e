package database

import (
	"fmt"
	"time"

	"phone-location-api/internal/config"
	"phone-location-api/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connection holds the database handle and configuration for the lookup
// history store.
type Connection struct {
	DB     *gorm.DB
	Config *config.DatabaseConfig
	Logger *logger.Logger
}

// Open connects to the configured history store (sqlite or postgres).
func Open(cfg *config.DatabaseConfig, log *logger.Logger) (*Connection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	}

	var db *gorm.DB
	var err error
	switch cfg.Type {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormConfig)
	case "postgres":
		db, err = gorm.Open(postgres.Open(buildPostgresDSN(cfg)), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Info("Connected to history store",
		zap.String("type", cfg.Type),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return &Connection{DB: db, Config: cfg, Logger: log}, nil
}

// Close closes the database connection.
func (c *Connection) Close() error {
	if c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	c.Logger.Info("History store connection closed")
	return nil
}

// Ping tests the database connection.
func (c *Connection) Ping() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Migrate runs schema migrations for the given models.
func (c *Connection) Migrate(models ...interface{}) error {
	if len(models) == 0 {
		return fmt.Errorf("no models provided for migration")
	}

	if err := c.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	c.Logger.Info("History store migration completed", zap.Int("models_count", len(models)))
	return nil
}

// buildPostgresDSN builds a PostgreSQL Data Source Name from configuration.
func buildPostgresDSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}
