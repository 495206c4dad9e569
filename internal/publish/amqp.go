package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/report"
)

// PublisherConfig names the exchange and routing key for reports.
type PublisherConfig struct {
	Exchange   string
	RoutingKey string
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes each report as a persistent JSON message on a
// topic exchange.
type AMQPPublisher struct {
	cfg    PublisherConfig
	logger zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
	dial func() (*amqp.Connection, channel, error)
}

// NewAMQPPublisher connects to url and declares the exchange.
func NewAMQPPublisher(url string, cfg PublisherConfig, logger zerolog.Logger) (*AMQPPublisher, error) {
	dial := func() (*amqp.Connection, channel, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq connect: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
		}
		return conn, ch, nil
	}
	conn, ch, err := dial()
	if err != nil {
		return nil, err
	}
	p, err := newPublisher(ch, cfg, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	p.dial = dial
	return p, nil
}

func newPublisher(ch channel, cfg PublisherConfig, logger zerolog.Logger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &AMQPPublisher{
		cfg:    cfg,
		ch:     ch,
		logger: logger.With().Str("component", "publish").Logger(),
	}, nil
}

// Publish sends r. A failed publish on a closed channel reconnects once
// and retries.
func (p *AMQPPublisher) Publish(ctx context.Context, r *report.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    r.SessionID,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"grade":   r.Grade,
			"teacher": r.TeacherID,
			"subject": r.Subject,
		},
		Body: body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, msg)
	if err == nil {
		p.logger.Debug().Str("session", r.SessionID).Msg("Report published")
		return nil
	}
	if p.dial == nil {
		return fmt.Errorf("publish report %s: %w", r.SessionID, err)
	}

	p.logger.Warn().Err(err).Msg("Publish failed, reconnecting")
	if rerr := p.reconnect(); rerr != nil {
		return fmt.Errorf("publish report %s: %w", r.SessionID, rerr)
	}
	if err := p.ch.PublishWithContext(ctx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish report %s: %w", r.SessionID, err)
	}
	return nil
}

func (p *AMQPPublisher) reconnect() error {
	_ = p.ch.Close()
	if p.conn != nil {
		_ = p.conn.Close()
	}
	conn, ch, err := p.dial()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(p.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.cfg.Exchange, err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
