package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const ExchangeKind = "topic"

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// dialFunc opens a connection plus a channel with the exchange declared.
type dialFunc func() (channel, io.Closer, error)

// Publisher writes JSON messages to a durable topic exchange. A channel closed
// by the broker is reopened on the next publish.
type Publisher struct {
	mu       sync.Mutex
	dial     dialFunc
	conn     io.Closer
	channel  channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	p := newPublisher(exchange, func() (channel, io.Closer, error) {
		return dialExchange(url, exchange)
	})
	if err := p.connect(); err != nil {
		return nil, err
	}
	log.Printf("🐇 Connected to RabbitMQ, exchange %q", exchange)
	return p, nil
}

func newPublisher(exchange string, dial dialFunc) *Publisher {
	return &Publisher{dial: dial, exchange: exchange}
}

func dialExchange(url, exchange string) (channel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return ch, conn, nil
}

// connect replaces the current session. Callers hold mu, except NewPublisher.
func (p *Publisher) connect() error {
	p.closeSession()
	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	p.channel, p.conn = ch, conn
	return nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		log.Printf("🐇 RabbitMQ channel closed, reconnecting")
		if err := p.connect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		// The broker dropped us between the check and the publish
		if err := p.connect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
		err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (p *Publisher) closeSession() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeSession()
}
