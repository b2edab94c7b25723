package events

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// confirmation is the broker's answer for one published message.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type confirmFunc func(ctx context.Context, routingKey string, msg amqp.Publishing) (confirmation, error)

// AMQPPublisher publishes to a durable topic exchange with publisher confirms.
// The routing key is the event type. Each message waits on its own deferred
// confirmation, so an abandoned wait never hands its ack to a later message.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	publish  confirmFunc
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: confirm mode: %w", err)
	}
	p := &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}
	p.publish = func(ctx context.Context, key string, msg amqp.Publishing) (confirmation, error) {
		dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
		if err != nil {
			return nil, err
		}
		if dc == nil {
			return nil, errors.New("events: channel is not in confirm mode")
		}
		return dc, nil
	}
	return p, nil
}

func newAMQPPublisher(exchange string, publish confirmFunc) *AMQPPublisher {
	return &AMQPPublisher{exchange: exchange, publish: publish}
}

func (p *AMQPPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	body, err := evt.encode()
	if err != nil {
		return err
	}

	conf, err := p.publish(ctx, evt.Type, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    string(evt.OrderID) + ":" + evt.Type,
		Timestamp:    evt.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", evt.Type, err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("events: confirm %s for order %s: %w", evt.Type, evt.OrderID, err)
	}
	if !acked {
		return fmt.Errorf("events: %s for order %s nacked by broker", evt.Type, evt.OrderID)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
