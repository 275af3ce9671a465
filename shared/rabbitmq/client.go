package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/planflow/planflow/internal/contract"
)

// Config holds RabbitMQ connection configuration for the wake-hint exchange
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
}

// WakeHint tells idle workers a job may be claimable. Hints are advisory:
// the queue stays the source of truth and a lost hint only delays the next
// poll, never a job.
type WakeHint struct {
	PlanID          string `json:"plan_id"`
	PlanIteration   int    `json:"plan_iteration"`
	WorkflowCommand string `json:"workflow_command"`
	ExecutorRole    string `json:"executor_role,omitempty"`
	ExecutorRuntime string `json:"executor_runtime,omitempty"`
	At              string `json:"at"`
}

// Client represents a RabbitMQ client bound to the wake-hint fanout exchange
type Client struct {
	config      *Config
	conn        *amqp.Connection
	channel     *amqp.Channel
	logger      *slog.Logger
	closeChan   chan *amqp.Error
	isConnected bool
}

// NewClient creates a new RabbitMQ client and declares the wake-hint exchange
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config:      config,
		logger:      logger,
		closeChan:   make(chan *amqp.Error),
		isConnected: false,
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			c.logger.Info("Successfully connected to RabbitMQ")
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.declareExchange(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to declare wake-hint exchange: %w", err)
	}

	c.closeChan = make(chan *amqp.Error)
	c.channel.NotifyClose(c.closeChan)
	c.isConnected = true

	c.logger.Info("RabbitMQ client initialized",
		slog.String("exchange", c.config.ExchangeName),
	)

	return nil
}

// declareExchange declares the fanout exchange hints are broadcast on.
// Consumers bind their own exclusive queues so every worker sees every hint.
func (c *Client) declareExchange() error {
	exchangeType := c.config.ExchangeType
	if exchangeType == "" {
		exchangeType = "fanout"
	}

	err := c.channel.ExchangeDeclare(
		c.config.ExchangeName,       // name
		exchangeType,                // type
		c.config.ExchangeDurable,    // durable
		c.config.ExchangeAutoDelete, // auto-deleted
		false,                       // internal
		false,                       // no-wait
		nil,                         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	return nil
}

// PublishWakeHint broadcasts a hint for the target. Hints are transient:
// a worker that is offline when one fires catches the job on its next poll.
func (c *Client) PublishWakeHint(ctx context.Context, target contract.Target) error {
	if !c.isConnected {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	hint := WakeHint{
		PlanID:          target.PlanID,
		PlanIteration:   target.PlanIteration,
		WorkflowCommand: string(target.WorkflowCommand),
		ExecutorRole:    string(target.ExecutorRole),
		ExecutorRuntime: target.ExecutorRuntime,
		At:              time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(hint)
	if err != nil {
		return fmt.Errorf("failed to encode wake hint: %w", err)
	}

	err = c.channel.PublishWithContext(
		ctx,
		c.config.ExchangeName, // exchange
		"",                    // routing key, ignored by fanout
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Transient,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("Failed to publish wake hint",
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish wake hint: %w", err)
	}

	c.logger.Debug("Wake hint published",
		slog.String("plan_id", hint.PlanID),
		slog.String("command", hint.WorkflowCommand),
	)

	return nil
}

// ConsumeWakeHints binds an exclusive auto-delete queue to the exchange and
// starts consuming. The queue disappears with the worker, so hints never
// pile up for a dead consumer.
func (c *Client) ConsumeWakeHints(consumerTag string) (<-chan amqp.Delivery, error) {
	if !c.isConnected {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}

	q, err := c.channel.QueueDeclare(
		"",    // name, broker-generated
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare hint queue: %w", err)
	}

	err = c.channel.QueueBind(
		q.Name,                // queue name
		"",                    // routing key, ignored by fanout
		c.config.ExchangeName, // exchange
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind hint queue: %w", err)
	}

	messages, err := c.channel.Consume(
		q.Name,      // queue
		consumerTag, // consumer tag
		true,        // auto-ack, hints are fire-and-forget
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume wake hints: %w", err)
	}

	c.logger.Info("Started consuming wake hints",
		slog.String("queue", q.Name),
		slog.String("consumer_tag", consumerTag),
	)

	return messages, nil
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	c.isConnected = false

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}
