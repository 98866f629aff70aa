package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
)

const routingKeyPrefix = "tickets."

// amqpChannel is the part of *amqp.Channel used for publishing.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards ticket events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	logger   *zap.Logger
}

// NewAMQPPublisher dials RabbitMQ and declares the durable topic exchange.
func NewAMQPPublisher(cfg config.RabbitMQConfig, logger *zap.Logger) (*AMQPPublisher, error) {
	var conn *amqp.Connection
	var err error

	for attempt := 1; attempt <= 3; attempt++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		logger.Warn("rabbitmq dial failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < 3 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("connected to rabbitmq", zap.String("exchange", cfg.Exchange))
	return &AMQPPublisher{conn: conn, channel: ch, exchange: cfg.Exchange, logger: logger}, nil
}

// Handle publishes event as a persistent JSON message routed by its type.
// It has the EventHandler signature so it can subscribe to a Dispatcher.
func (p *AMQPPublisher) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKeyPrefix+string(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.Timestamp,
			Type:         string(event.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Debug("published event", zap.String("type", string(event.Type)), zap.String("ticket_id", event.TicketID))
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
