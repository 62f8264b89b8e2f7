// Package rabbit implements a RabbitMQ listing publisher.
package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lamvh/estate-harvester/internal/scraper"
)

// Config describes the broker connection and the exchange listings are
// published to.
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Publisher sends newly stored listings to a durable topic exchange.
type Publisher struct {
	cfg     Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// New dials the broker, opens a channel and declares the exchange.
func New(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbit url is required")
	}
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("rabbit exchange is required")
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = "listing.new"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}

	return &Publisher{cfg: cfg, conn: conn, channel: ch, logger: logger}, nil
}

// Publish marshals the listing to JSON and publishes it as a persistent
// message.
func (p *Publisher) Publish(ctx context.Context, l scraper.Listing) error {
	if p == nil || p.channel == nil || p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("rabbit publisher is not connected")
	}
	body, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal listing: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"source": l.Source,
		},
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.cfg.Exchange,
		p.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("publish listing: %w", err)
	}
	return nil
}

// Close shuts down the channel and the connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("Failed to close rabbitmq channel", zap.Error(err))
			firstErr = err
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.logger.Warn("Failed to close rabbitmq connection", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		p.conn = nil
	}
	return firstErr
}
