package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp.Channel that Broker publishes through.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Broker publishes every event as JSON to a durable topic exchange, routed by
// event kind.
type Broker struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
}

func DialBroker(url, exchange string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Broker{conn: conn, ch: ch, exchange: exchange}, nil
}

func NewBroker(ch Channel, exchange string) *Broker {
	return &Broker{ch: ch, exchange: exchange}
}

func (b *Broker) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	err = b.ch.PublishWithContext(ctx, b.exchange, string(e.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt,
		Type:         string(e.Kind),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}
	return nil
}

func (b *Broker) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
