package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/errs"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventType represents different types of lookup events
type EventType string

const (
	EventTypeLookupRequested EventType = "lookup.requested"
	EventTypeLookupCompleted EventType = "lookup.completed"
	EventTypeLookupFailed    EventType = "lookup.failed"
)

// LookupEvent represents a lookup lifecycle event
type LookupEvent struct {
	ID          string                `json:"id"`
	Type        EventType             `json:"type"`
	RequestID   string                `json:"request_id"`
	Timestamp   time.Time             `json:"timestamp"`
	PhoneNumber string                `json:"phone_number,omitempty"`
	Location    *domain.PhoneLocation `json:"location,omitempty"`
	ErrorCode   string                `json:"error_code,omitempty"`
	ErrorMsg    string                `json:"error_message,omitempty"`
	Retryable   bool                  `json:"retryable,omitempty"`
}

// LookupProducer defines the interface for publishing lookup events
type LookupProducer interface {
	PublishLookupCompleted(ctx context.Context, requestID string, location *domain.PhoneLocation) error
	PublishLookupFailed(ctx context.Context, requestID, phoneNumber string, code errs.Code, message string) error
	Close() error
}

// RabbitMQProducer implements LookupProducer using RabbitMQ
type RabbitMQProducer struct {
	connection    *amqp.Connection
	channel       *amqp.Channel
	exchangeName  string
	routingPrefix string
	logger        *zap.Logger
}

// RabbitMQProducerConfig holds configuration for RabbitMQ producer
type RabbitMQProducerConfig struct {
	URL           string
	ExchangeName  string
	RoutingPrefix string
	Durable       bool
	AutoDelete    bool
}

// NewRabbitMQProducer creates a new RabbitMQ producer
func NewRabbitMQProducer(config *RabbitMQProducerConfig, logger *zap.Logger) (*RabbitMQProducer, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		config.ExchangeName, // name
		"topic",             // type
		config.Durable,      // durable
		config.AutoDelete,   // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	producer := &RabbitMQProducer{
		connection:    conn,
		channel:       ch,
		exchangeName:  config.ExchangeName,
		routingPrefix: config.RoutingPrefix,
		logger:        logger,
	}

	// Set up connection close handler
	go producer.handleConnectionClose()

	logger.Info("RabbitMQ producer initialized",
		zap.String("exchange", config.ExchangeName),
		zap.String("routing_prefix", config.RoutingPrefix),
	)

	return producer, nil
}

// PublishLookupCompleted publishes a successful lookup outcome
func (p *RabbitMQProducer) PublishLookupCompleted(ctx context.Context, requestID string, location *domain.PhoneLocation) error {
	event := &LookupEvent{
		ID:          generateEventID(),
		Type:        EventTypeLookupCompleted,
		RequestID:   requestID,
		Timestamp:   time.Now().UTC(),
		PhoneNumber: location.PhoneNumber,
		Location:    location,
	}

	routingKey := fmt.Sprintf("%s.completed", p.routingPrefix)
	return p.publishEvent(ctx, event, routingKey)
}

// PublishLookupFailed publishes a failed lookup outcome
func (p *RabbitMQProducer) PublishLookupFailed(ctx context.Context, requestID, phoneNumber string, code errs.Code, message string) error {
	event := &LookupEvent{
		ID:          generateEventID(),
		Type:        EventTypeLookupFailed,
		RequestID:   requestID,
		Timestamp:   time.Now().UTC(),
		PhoneNumber: phoneNumber,
		ErrorCode:   string(code),
		ErrorMsg:    message,
		Retryable:   code.Retryable(),
	}

	routingKey := fmt.Sprintf("%s.failed", p.routingPrefix)
	return p.publishEvent(ctx, event, routingKey)
}

// publishEvent publishes an event to the message queue
func (p *RabbitMQProducer) publishEvent(ctx context.Context, event *LookupEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.Error(err), zap.String("event_id", event.ID))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Headers: amqp.Table{
			"source":     "phone-location-api",
			"request_id": event.RequestID,
		},
		Body: body,
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		publishCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		publishing,
	)
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("routing_key", routingKey),
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("Event published successfully",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("routing_key", routingKey),
	)

	return nil
}

// Close closes the producer connection
func (p *RabbitMQProducer) Close() error {
	var closeErrs []error

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("failed to close channel: %w", err))
		}
	}

	if p.connection != nil {
		if err := p.connection.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("failed to close connection: %w", err))
		}
	}

	if len(closeErrs) > 0 {
		return errors.Join(closeErrs...)
	}

	p.logger.Info("RabbitMQ producer closed successfully")
	return nil
}

// handleConnectionClose handles connection close events
func (p *RabbitMQProducer) handleConnectionClose() {
	closeError := <-p.connection.NotifyClose(make(chan *amqp.Error))
	if closeError != nil {
		p.logger.Error("RabbitMQ connection closed unexpectedly",
			zap.Error(closeError),
		)
	}
}

// MockProducer is a mock implementation for testing
type MockProducer struct {
	mu     sync.Mutex
	events []LookupEvent
	logger *zap.Logger
}

// NewMockProducer creates a new mock producer
func NewMockProducer(logger *zap.Logger) *MockProducer {
	return &MockProducer{
		events: make([]LookupEvent, 0),
		logger: logger,
	}
}

// PublishLookupCompleted mock implementation
func (m *MockProducer) PublishLookupCompleted(ctx context.Context, requestID string, location *domain.PhoneLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, LookupEvent{
		ID:          generateEventID(),
		Type:        EventTypeLookupCompleted,
		RequestID:   requestID,
		Timestamp:   time.Now().UTC(),
		PhoneNumber: location.PhoneNumber,
		Location:    location,
	})
	m.logger.Info("Mock: Lookup completed event published", zap.String("request_id", requestID))
	return nil
}

// PublishLookupFailed mock implementation
func (m *MockProducer) PublishLookupFailed(ctx context.Context, requestID, phoneNumber string, code errs.Code, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, LookupEvent{
		ID:          generateEventID(),
		Type:        EventTypeLookupFailed,
		RequestID:   requestID,
		Timestamp:   time.Now().UTC(),
		PhoneNumber: phoneNumber,
		ErrorCode:   string(code),
		ErrorMsg:    message,
		Retryable:   code.Retryable(),
	})
	m.logger.Info("Mock: Lookup failed event published",
		zap.String("request_id", requestID),
		zap.String("error_code", string(code)),
	)
	return nil
}

// Close mock implementation
func (m *MockProducer) Close() error {
	m.logger.Info("Mock producer closed")
	return nil
}

// GetEvents returns all published events (for testing)
func (m *MockProducer) GetEvents() []LookupEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LookupEvent(nil), m.events...)
}

// ClearEvents clears all published events (for testing)
func (m *MockProducer) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = m.events[:0]
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return "evt_" + uuid.New().String()
}
