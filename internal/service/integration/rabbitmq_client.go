package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// EventPublisher announces assignment changes to other services.
type EventPublisher interface {
	PublishAssignmentEvent(ctx context.Context, event *models.AssignmentEvent) error
	Close() error
}

type rabbitMQClient struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   zerolog.Logger
}

// NewRabbitMQClient declares a durable direct exchange and binds queueName to every event type.
func NewRabbitMQClient(url, exchange, queueName string, logger zerolog.Logger) (EventPublisher, error) {
	conn, channel, err := dial(url)
	if err != nil {
		return nil, err
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	routingKeys := []string{
		models.EventStudentAssigned,
		models.EventStudentReassigned,
		models.EventStudentRemoved,
		models.EventMentorRemoved,
	}
	for _, key := range routingKeys {
		if err := channel.QueueBind(queue.Name, key, exchange, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	logger.Info().
		Str("exchange", exchange).
		Str("queue", queue.Name).
		Msg("Connected to RabbitMQ")

	return &rabbitMQClient{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// dial opens a named connection and one channel on it.
func dial(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName("mentor-service")

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: props,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, channel, nil
}

func (c *rabbitMQClient) PublishAssignmentEvent(ctx context.Context, event *models.AssignmentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		c.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			MessageId:    event.EventID,
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Unix(event.Timestamp, 0),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug().
		Str("event_id", event.EventID).
		Str("type", event.Type).
		Str("student_id", event.StudentID).
		Msg("Assignment event published")

	return nil
}

func (c *rabbitMQClient) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	return nil
}

type nopPublisher struct{}

// NewNopPublisher is used when RabbitMQ is disabled or unreachable.
func NewNopPublisher() EventPublisher {
	return nopPublisher{}
}

func (nopPublisher) PublishAssignmentEvent(ctx context.Context, event *models.AssignmentEvent) error {
	return nil
}

func (nopPublisher) Close() error {
	return nil
}
