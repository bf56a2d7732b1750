// Package events publishes order lifecycle events to RabbitMQ so that
// kitchen displays or analytics can follow the cafe without touching the bot.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cafe-telegram/logger"
	"cafe-telegram/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialAttempts   = 3
	publishTimeout = 5 * time.Second
)

// Publisher sends every models.OrderEvent to a durable topic exchange with
// the routing key "order.<type>".
type Publisher struct {
	url      string
	exchange string
	log      *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, exchange string, log *logger.Logger) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	var err error
	for i := 0; i < dialAttempts; i++ {
		if err = p.dial(); err == nil {
			return nil
		}
		if i < dialAttempts-1 {
			wait := time.Duration(i+1) * time.Second
			p.log.Error("amqp_connect_failed", fmt.Sprintf("retrying in %v", wait), err)
			time.Sleep(wait)
		}
	}
	return fmt.Errorf("connect to amqp after %d attempts: %w", dialAttempts, err)
}

func (p *Publisher) dial() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	err = ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func RoutingKey(ev models.OrderEvent) string {
	return "order." + ev.Type
}

func (p *Publisher) Publish(ctx context.Context, ev models.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.dial(); err != nil {
			return fmt.Errorf("reconnect to amqp: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := RoutingKey(ev)
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		MessageId:    ev.OrderID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	p.log.Debug("order_event_published", "order event sent", "routing_key", key, "order_id", ev.OrderID)
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}
