// README: Order aggregate, line items and status definitions.
package order

import (
	"time"

	"ravito/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Actor types recorded on state events.
const (
	ActorClient   = "client"
	ActorSupplier = "supplier"
	ActorAdmin    = "admin"
	ActorSystem   = "system"
)

type Item struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	ConsignePrice int64  `json:"consigne_price"`
}

// Totals is the money breakdown of an order, all in XOF.
type Totals struct {
	Subtotal         int64 `json:"subtotal"`
	ConsigneTotal    int64 `json:"consigne_total"`
	ClientCommission int64 `json:"client_commission"`
	DeliveryCost     int64 `json:"delivery_cost"`
	PlatformMargin   int64 `json:"platform_margin"`
	Total            int64 `json:"total"`
}

type Order struct {
	ID            types.ID    `json:"id"`
	ClientID      types.ID    `json:"client_id"`
	SupplierID    types.ID    `json:"supplier_id"`
	ZoneID        types.ID    `json:"zone_id"`
	Status        Status      `json:"status"`
	StatusVersion int         `json:"status_version"`
	Delivery      types.Point `json:"delivery"`
	Items         []Item      `json:"items"`
	Totals        Totals      `json:"totals"`
	Currency      string      `json:"currency"`
	CreatedAt     time.Time   `json:"created_at"`
	AcceptedAt    *time.Time  `json:"accepted_at,omitempty"`
	DeliveringAt  *time.Time  `json:"delivering_at,omitempty"`
	DeliveredAt   *time.Time  `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty"`
	CancelReason  *string     `json:"cancel_reason,omitempty"`
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the order state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusNone:       {StatusPending},
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusDelivering, StatusCancelled},
	StatusDelivering: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
