// Package amqpfeed carries state-changed notifications between devices over
// RabbitMQ. Messages fan out, so every subscriber sees every write and
// decides locally whether to re-fetch the document.
package amqpfeed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetd/internal/remote"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	url          string
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	breaker      breaker
}

var _ remote.ChangeFeed = (*Client)(nil)

func NewClient(url, exchangeName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
	}
	if err := client.dial(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) dial() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.Close()
		return fmt.Errorf("setup exchange: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type, routed by user id
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// Publish announces a document write for the user. Notifications are best
// effort; with the circuit open they are dropped and subscribers recover the
// change by polling.
func (c *Client) Publish(ctx context.Context, userID string, revision int64) error {
	if c.breaker.isOpen() {
		return fmt.Errorf("change feed circuit open, dropping notification")
	}

	msg := NewStateChangedMessage(userID, revision)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		userID,         // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient, // notifications are re-derivable from the store
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.breaker.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.breaker.recordSuccess()

	slog.InfoContext(ctx, "Published state change",
		"user_id", userID,
		"revision", revision,
		"exchange", c.exchangeName)

	return nil
}

// Subscribe consumes state-changed messages for the user, reconnecting with
// exponential backoff when the broker connection drops. It returns when the
// context is cancelled or on a non-connection error.
func (c *Client) Subscribe(ctx context.Context, userID string, handler func(revision int64)) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeOnce(ctx, userID, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Change feed connection lost, reconnecting",
			"error", err,
			"backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if dialErr := c.dial(); dialErr != nil {
			slog.WarnContext(ctx, "Change feed redial failed", "error", dialErr)
			continue
		}
		attempt = 0
	}
}

// consumeOnce binds an exclusive auto-deleted queue and drains it until the
// context ends or the channel breaks, so every device gets its own copy of
// the feed.
func (c *Client) consumeOnce(ctx context.Context, userID string, handler func(revision int64)) error {
	queue, err := c.channel.QueueDeclare(
		"",    // broker-assigned name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare subscriber queue: %w", err)
	}

	if err := c.channel.QueueBind(queue.Name, userID, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind subscriber queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack, a lost notification is recovered by polling
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Subscribed to state changes", "user_id", userID, "queue", queue.Name)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping change feed", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := StateChangedMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal change message", "error", err)
				continue
			}
			if msg.UserID != userID {
				continue
			}
			handler(msg.Revision)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
