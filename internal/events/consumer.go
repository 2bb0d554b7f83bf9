package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"bilancio/internal/log"
)

// Handler processes one event. Returning an error requeues the delivery.
type Handler func(ctx context.Context, event *DatasetEvent) error

var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Consumer reads dataset events from the queue the publisher binds.
type Consumer struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewConsumer(url, exchangeName, queueName string, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Consumer{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentEvents),
	}
}

func (c *Consumer) Connect() error {
	conn, err := dial(c.url, publishTimeout)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declare(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	// One unacknowledged delivery at a time keeps the journal in order
	if err := channel.Qos(1, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	c.conn, c.channel = conn, channel
	return nil
}

// Consume blocks until ctx ends or the broker closes the channel.
func (c *Consumer) Consume(ctx context.Context, handle Handler) error {
	if c.channel == nil {
		return errors.New("consumer not connected")
	}
	deliveries, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "consuming dataset events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "stopping consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.dispatch(ctx, d, handle)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp091.Delivery, handle Handler) {
	event, err := DatasetEventFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "malformed event dropped", log.FieldError, err)
		_ = d.Nack(false, false)
		return
	}
	if err := handle(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "event handling failed",
			log.FieldError, err,
			"type", event.Type,
			log.FieldDatasetID, event.DatasetID)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
