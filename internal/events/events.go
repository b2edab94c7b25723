// README: Order lifecycle events and the publisher backends that carry them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ravito/internal/config"
	"ravito/internal/types"
)

const (
	TypeOrderCreated   = "order.created"
	TypeOrderAccepted  = "order.accepted"
	TypeOrderStarted   = "order.delivering"
	TypeOrderDelivered = "order.delivered"
	TypeOrderCancelled = "order.cancelled"
)

type OrderEvent struct {
	Type         string    `json:"type"`
	OrderID      types.ID  `json:"order_id"`
	ClientID     types.ID  `json:"client_id"`
	SupplierID   types.ID  `json:"supplier_id"`
	ZoneID       types.ID  `json:"zone_id"`
	Status       string    `json:"status"`
	DeliveryCost int64     `json:"delivery_cost"`
	Total        int64     `json:"total"`
	Currency     string    `json:"currency"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (e OrderEvent) encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
func (Nop) Close() error                              { return nil }

// New builds the publisher selected by cfg.Backend.
func New(cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Backend {
	case "", "none":
		return Nop{}, nil
	case "amqp":
		return NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil, fmt.Errorf("events: unknown backend %q", cfg.Backend)
	}
}
