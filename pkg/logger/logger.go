package logger

import (
	"fmt"
	"os"

	"phone-location-api/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap logger with additional functionality
type Logger struct {
	*zap.Logger
}

// New creates a new logger instance based on configuration
func New(cfg *config.LoggerConfig) (*Logger, error) {
	encoderConfig := createEncoderConfig(cfg)

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	writeSyncers := make([]zapcore.WriteSyncer, 0, len(outputPaths))
	for _, path := range outputPaths {
		var ws zapcore.WriteSyncer
		switch path {
		case "stdout":
			ws = zapcore.AddSync(os.Stdout)
		case "stderr":
			ws = zapcore.AddSync(os.Stderr)
		default:
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
			}
			ws = zapcore.AddSync(file)
		}
		writeSyncers = append(writeSyncers, ws)
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writeSyncers...), level)

	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.Development {
		options = append(options, zap.Development())
	}

	return &Logger{Logger: zap.New(core, options...)}, nil
}

// NewDevelopment creates a development logger with sensible defaults
func NewDevelopment() (*Logger, error) {
	return New(&config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		Development: true,
		EnableColor: true,
		OutputPaths: []string{"stdout"},
	})
}

// NewProduction creates a production logger with sensible defaults
func NewProduction() (*Logger, error) {
	return New(&config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		Development: false,
		EnableColor: false,
		OutputPaths: []string{"stdout"},
	})
}

// createEncoderConfig creates encoder configuration based on logger config
func createEncoderConfig(cfg *config.LoggerConfig) zapcore.EncoderConfig {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if cfg.EnableColor {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}

	if cfg.Format == "console" {
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	}

	return encoderConfig
}

// WithFields adds fields to the logger context
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithError adds an error field to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(zap.Error(err))}
}

// WithRequestID adds a request ID field to the logger
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("request_id", requestID))}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component))}
}

// LogProviderCall logs an upstream provider round trip
func (l *Logger) LogProviderCall(phoneNumber string, errorCode string, durationMs int64, err error) {
	fields := []zap.Field{
		zap.String("phone_number", phoneNumber),
		zap.Int64("duration_ms", durationMs),
	}

	if err != nil {
		fields = append(fields, zap.Error(err), zap.String("error_code", errorCode))
		l.Logger.Error("Provider call failed", fields...)
	} else {
		l.Logger.Info("Provider call completed", fields...)
	}
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}

// Close closes the logger and flushes any buffered entries
func (l *Logger) Close() error {
	return l.Sync()
}

// Global logger instance for convenience
var globalLogger *Logger

// SetGlobal sets the global logger instance
func SetGlobal(logger *Logger) {
	globalLogger = logger
}

// GetGlobal returns the global logger instance
func GetGlobal() *Logger {
	if globalLogger == nil {
		logger, _ := NewDevelopment()
		globalLogger = logger
	}
	return globalLogger
}

// Debug logs a debug message using the global logger
func Debug(msg string, fields ...zap.Field) {
	GetGlobal().Debug(msg, fields...)
}

// Info logs an info message using the global logger
func Info(msg string, fields ...zap.Field) {
	GetGlobal().Info(msg, fields...)
}

// Warn logs a warning message using the global logger
func Warn(msg string, fields ...zap.Field) {
	GetGlobal().Warn(msg, fields...)
}

// Error logs an error message using the global logger
func Error(msg string, fields ...zap.Field) {
	GetGlobal().Error(msg, fields...)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(msg string, fields ...zap.Field) {
	GetGlobal().Fatal(msg, fields...)
}
