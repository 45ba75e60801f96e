package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"phone-location-api/internal/domain"
	"phone-location-api/internal/usecase"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// LookupRequestMessage is the payload of a lookup.requested message.
type LookupRequestMessage struct {
	RequestID      string `json:"request_id"`
	PhoneNumber    string `json:"phone_number"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// LookupRequestHandler defines the interface for handling lookup requests
type LookupRequestHandler interface {
	HandleLookupRequested(ctx context.Context, message *LookupRequestMessage) error
}

// LookupConsumer defines the interface for consuming lookup requests
type LookupConsumer interface {
	Start(ctx context.Context) error
	Stop() error
}

// RabbitMQConsumer implements LookupConsumer using RabbitMQ
type RabbitMQConsumer struct {
	connection   *amqp.Connection
	channel      *amqp.Channel
	exchangeName string
	queueName    string
	routingKeys  []string
	handler      LookupRequestHandler
	logger       *zap.Logger
	stopChan     chan struct{}
	wg           sync.WaitGroup
	mu           sync.RWMutex
	isRunning    bool
}

// RabbitMQConsumerConfig holds configuration for RabbitMQ consumer
type RabbitMQConsumerConfig struct {
	URL           string
	ExchangeName  string
	QueueName     string
	RoutingKeys   []string
	Durable       bool
	AutoDelete    bool
	Exclusive     bool
	NoWait        bool
	PrefetchCount int
}

// NewRabbitMQConsumer creates a new RabbitMQ consumer
func NewRabbitMQConsumer(
	config *RabbitMQConsumerConfig,
	handler LookupRequestHandler,
	logger *zap.Logger,
) (*RabbitMQConsumer, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Set QoS
	err = ch.Qos(config.PrefetchCount, 0, false)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
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

	// Declare queue
	queue, err := ch.QueueDeclare(
		config.QueueName,  // name
		config.Durable,    // durable
		config.AutoDelete, // delete when unused
		config.Exclusive,  // exclusive
		config.NoWait,     // no-wait
		nil,               // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange with routing keys
	for _, routingKey := range config.RoutingKeys {
		err = ch.QueueBind(
			queue.Name,          // queue name
			routingKey,          // routing key
			config.ExchangeName, // exchange
			false,               // no-wait
			nil,                 // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue to routing key %s: %w", routingKey, err)
		}
	}

	consumer := &RabbitMQConsumer{
		connection:   conn,
		channel:      ch,
		exchangeName: config.ExchangeName,
		queueName:    queue.Name,
		routingKeys:  config.RoutingKeys,
		handler:      handler,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}

	logger.Info("RabbitMQ consumer initialized",
		zap.String("exchange", config.ExchangeName),
		zap.String("queue", queue.Name),
		zap.Strings("routing_keys", config.RoutingKeys),
	)

	return consumer, nil
}

// Start starts consuming messages
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isRunning {
		return errors.New("consumer is already running")
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.isRunning = true
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		c.logger.Info("Starting message consumption")

		for {
			select {
			case <-c.stopChan:
				c.logger.Info("Stopping message consumption")
				return
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping message consumption")
				return
			case delivery, ok := <-msgs:
				if !ok {
					c.logger.Warn("Message channel closed")
					return
				}
				c.handleMessage(ctx, delivery)
			}
		}
	}()

	// Set up connection close handler
	go c.handleConnectionClose()

	c.logger.Info("Consumer started successfully")
	return nil
}

// Stop stops the consumer
func (c *RabbitMQConsumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRunning {
		return nil
	}

	c.logger.Info("Stopping consumer...")

	close(c.stopChan)
	c.wg.Wait()

	var closeErrs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("failed to close channel: %w", err))
		}
	}

	if c.connection != nil {
		if err := c.connection.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("failed to close connection: %w", err))
		}
	}

	c.isRunning = false

	if len(closeErrs) > 0 {
		return errors.Join(closeErrs...)
	}

	c.logger.Info("Consumer stopped successfully")
	return nil
}

// handleMessage handles incoming messages
func (c *RabbitMQConsumer) handleMessage(ctx context.Context, delivery amqp.Delivery) {
	logger := c.logger.With(
		zap.String("message_id", delivery.MessageId),
		zap.String("routing_key", delivery.RoutingKey),
		zap.String("exchange", delivery.Exchange),
	)

	logger.Debug("Processing message")

	var message LookupRequestMessage
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		logger.Error("Failed to unmarshal lookup request", zap.Error(err))
		c.rejectMessage(delivery, false)
		return
	}

	if err := c.handler.HandleLookupRequested(ctx, &message); err != nil {
		logger.Error("Failed to handle lookup request",
			zap.Error(err),
			zap.String("request_id", message.RequestID),
			zap.String("phone_number", message.PhoneNumber),
		)
		// A lookup whose outcome could not be recorded or published is
		// worth one more delivery; anything else is a poison message.
		c.rejectMessage(delivery, !delivery.Redelivered)
		return
	}

	c.ackMessage(delivery)
	logger.Info("Lookup request processed",
		zap.String("request_id", message.RequestID),
		zap.String("phone_number", message.PhoneNumber),
	)
}

// ackMessage acknowledges a message
func (c *RabbitMQConsumer) ackMessage(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			zap.Error(err),
			zap.String("message_id", delivery.MessageId),
		)
	}
}

// rejectMessage rejects a message
func (c *RabbitMQConsumer) rejectMessage(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Reject(requeue); err != nil {
		c.logger.Error("Failed to reject message",
			zap.Error(err),
			zap.String("message_id", delivery.MessageId),
			zap.Bool("requeue", requeue),
		)
	}
}

// handleConnectionClose handles connection close events
func (c *RabbitMQConsumer) handleConnectionClose() {
	closeError := <-c.connection.NotifyClose(make(chan *amqp.Error))
	if closeError != nil {
		c.logger.Error("RabbitMQ connection closed unexpectedly",
			zap.Error(closeError),
		)
	}
}

// DefaultLookupRequestHandler runs queued lookups through the usecase.
// The usecase records history and publishes completion events, so the
// handler itself only drives the lookup.
type DefaultLookupRequestHandler struct {
	useCase *usecase.LookupUsecase
	logger  *zap.Logger
}

// NewDefaultLookupRequestHandler creates a new default lookup request handler
func NewDefaultLookupRequestHandler(useCase *usecase.LookupUsecase, logger *zap.Logger) *DefaultLookupRequestHandler {
	return &DefaultLookupRequestHandler{
		useCase: useCase,
		logger:  logger,
	}
}

// HandleLookupRequested handles lookup.requested messages
func (h *DefaultLookupRequestHandler) HandleLookupRequested(ctx context.Context, message *LookupRequestMessage) error {
	if message.PhoneNumber == "" && message.RequestID == "" {
		return fmt.Errorf("lookup request message is empty")
	}

	h.logger.Info("Handling lookup request",
		zap.String("request_id", message.RequestID),
		zap.String("phone_number", message.PhoneNumber),
	)

	query := domain.LookupQuery{
		PhoneNumber: message.PhoneNumber,
		Timeout:     time.Duration(message.TimeoutSeconds) * time.Second,
	}

	res, requestID := h.useCase.Lookup(ctx, message.RequestID, query)

	h.logger.Info("Queued lookup finished",
		zap.String("request_id", requestID),
		zap.Bool("success", res.Success),
		zap.String("error_code", string(res.ErrorCode)),
	)

	// Failed lookups are still successfully processed messages; the
	// outcome has been recorded and published.
	return nil
}

// MockConsumer is a mock implementation for testing
type MockConsumer struct {
	handler   LookupRequestHandler
	logger    *zap.Logger
	isRunning bool
	messages  []LookupRequestMessage
}

// NewMockConsumer creates a new mock consumer
func NewMockConsumer(handler LookupRequestHandler, logger *zap.Logger) *MockConsumer {
	return &MockConsumer{
		handler:  handler,
		logger:   logger,
		messages: make([]LookupRequestMessage, 0),
	}
}

// Start mock implementation
func (m *MockConsumer) Start(ctx context.Context) error {
	m.isRunning = true
	m.logger.Info("Mock consumer started")
	return nil
}

// Stop mock implementation
func (m *MockConsumer) Stop() error {
	m.isRunning = false
	m.logger.Info("Mock consumer stopped")
	return nil
}

// SimulateMessage simulates receiving a lookup request (for testing)
func (m *MockConsumer) SimulateMessage(ctx context.Context, message *LookupRequestMessage) error {
	m.messages = append(m.messages, *message)
	return m.handler.HandleLookupRequested(ctx, message)
}

// GetProcessedMessages returns all processed messages (for testing)
func (m *MockConsumer) GetProcessedMessages() []LookupRequestMessage {
	return m.messages
}

// ClearProcessedMessages clears all processed messages (for testing)
func (m *MockConsumer) ClearProcessedMessages() {
	m.messages = m.messages[:0]
}

// IsRunning returns whether the consumer is running
func (m *MockConsumer) IsRunning() bool {
	return m.isRunning
}
