// README: Order service runs checkout against the supplier selector and drives the delivery lifecycle.
package order

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"ravito/internal/config"
	"ravito/internal/events"
	"ravito/internal/modules/location"
	"ravito/internal/modules/matching"
	"ravito/internal/modules/notify"
	"ravito/internal/types"
)

type OrderStore interface {
	Create(ctx context.Context, o *Order, e *Event) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, at time.Time, reason *string) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	ListPendingForSupplier(ctx context.Context, supplierID types.ID, zones []types.ID) ([]Order, error)
}

// Selector is the matching side of checkout.
type Selector interface {
	SelectSupplier(ctx context.Context, req matching.SelectRequest) (*matching.Selection, error)
	Release(ctx context.Context, sel *matching.Selection)
	ServedZones(ctx context.Context, supplierID types.ID, at time.Time) ([]types.ID, error)
}

type Notifier interface {
	NotifySupplierNewOrder(ctx context.Context, info notify.NewOrder) error
}

type Service struct {
	store          OrderStore
	selector       Selector
	commissionRate float64
	publisher      events.Publisher
	notifier       Notifier
	now            func() time.Time
}

func NewService(store OrderStore, selector Selector, cfg config.OrderConfig) *Service {
	return &Service{
		store:          store,
		selector:       selector,
		commissionRate: cfg.ClientCommissionRate,
		publisher:      events.Nop{},
		now:            time.Now,
	}
}

func (s *Service) SetPublisher(p events.Publisher) {
	if p == nil {
		p = events.Nop{}
	}
	s.publisher = p
}

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) SetClock(now func() time.Time) { s.now = now }

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order state conflict")
	ErrForbidden    = errors.New("not allowed to act on this order")
	ErrBadRequest   = errors.New("bad request")
)

type CreateCommand struct {
	ClientID types.ID
	ZoneID   types.ID
	Delivery types.Point
	Items    []Item
}

// Actor identifies who is acting on an order.
type Actor struct {
	ID   types.ID
	Type string
}

type CancelCommand struct {
	OrderID types.ID
	Actor   Actor
	Reason  string
}

// Create checks out a cart. The selector runs exactly once; when it finds nobody the
// checkout fails with matching.ErrNoSupplierAvailable and nothing is persisted.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.ClientID == "" || cmd.ZoneID == "" || !location.ValidPoint(cmd.Delivery) {
		return nil, ErrBadRequest
	}
	if err := validateItems(cmd.Items); err != nil {
		return nil, err
	}

	id := types.ID(uuid.NewString())
	now := s.now()
	sel, err := s.selector.SelectSupplier(ctx, matching.SelectRequest{
		ZoneID:     cmd.ZoneID,
		Client:     cmd.Delivery,
		At:         now,
		CheckoutID: string(id),
	})
	if err != nil {
		return nil, err
	}
	defer s.selector.Release(ctx, sel)

	totals, err := ComputeTotals(cmd.Items, s.commissionRate, sel.Quote)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:            id,
		ClientID:      cmd.ClientID,
		SupplierID:    sel.SupplierID,
		ZoneID:        cmd.ZoneID,
		Status:        StatusPending,
		StatusVersion: 0,
		Delivery:      cmd.Delivery,
		Items:         cmd.Items,
		Totals:        totals,
		Currency:      sel.Quote.Currency,
		CreatedAt:     now,
	}
	if o.Currency == "" {
		o.Currency = types.CurrencyXOF
	}
	clientID := cmd.ClientID
	if err := s.store.Create(ctx, o, &Event{
		OrderID:    id,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  ActorClient,
		ActorID:    &clientID,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeOrderCreated, o)
	if s.notifier != nil {
		err := s.notifier.NotifySupplierNewOrder(ctx, notify.NewOrder{
			OrderID:      o.ID,
			SupplierID:   o.SupplierID,
			ZoneID:       o.ZoneID,
			DeliveryCost: types.Money{Amount: totals.DeliveryCost, Currency: o.Currency},
			Total:        types.Money{Amount: totals.Total, Currency: o.Currency},
		})
		if err != nil {
			log.Printf("order %s: notify supplier %s: %v", o.ID, o.SupplierID, err)
		}
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// Accept, StartDelivery and Deliver may only be performed by the assigned supplier.
func (s *Service) Accept(ctx context.Context, orderID, supplierID types.ID) (*Order, error) {
	return s.supplierTransition(ctx, orderID, supplierID, StatusAccepted, events.TypeOrderAccepted)
}

func (s *Service) StartDelivery(ctx context.Context, orderID, supplierID types.ID) (*Order, error) {
	return s.supplierTransition(ctx, orderID, supplierID, StatusDelivering, events.TypeOrderStarted)
}

func (s *Service) Deliver(ctx context.Context, orderID, supplierID types.ID) (*Order, error) {
	return s.supplierTransition(ctx, orderID, supplierID, StatusDelivered, events.TypeOrderDelivered)
}

func (s *Service) supplierTransition(ctx context.Context, orderID, supplierID types.ID, to Status, eventType string) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SupplierID != supplierID {
		return nil, ErrForbidden
	}
	actor := Actor{ID: supplierID, Type: ActorSupplier}
	if err := s.transition(ctx, o, to, actor, nil); err != nil {
		return nil, err
	}
	s.publish(ctx, eventType, o)
	return o, nil
}

// Cancel is allowed to the owning client and to admins, while the order is pending or accepted.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	switch cmd.Actor.Type {
	case ActorAdmin:
	case ActorClient:
		if o.ClientID != cmd.Actor.ID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}
	var reason *string
	if cmd.Reason != "" {
		reason = &cmd.Reason
	}
	if err := s.transition(ctx, o, StatusCancelled, cmd.Actor, reason); err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeOrderCancelled, o)
	return o, nil
}

// transition applies one optimistic status change and records it. o is updated in place.
func (s *Service) transition(ctx context.Context, o *Order, to Status, actor Actor, reason *string) error {
	if !CanTransition(o.Status, to) {
		return ErrInvalidState
	}
	now := s.now()
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, to, o.StatusVersion, now, reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	from := o.Status
	o.Status = to
	o.StatusVersion++
	switch to {
	case StatusAccepted:
		o.AcceptedAt = &now
	case StatusDelivering:
		o.DeliveringAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
		if reason != nil {
			o.CancelReason = reason
		}
	}

	var actorID *types.ID
	if actor.ID != "" {
		id := actor.ID
		actorID = &id
	}
	if err := s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actor.Type,
		ActorID:    actorID,
		CreatedAt:  now,
	}); err != nil {
		log.Printf("order %s: append event %s->%s: %v", o.ID, from, to, err)
	}
	return nil
}

// ListPending returns the supplier's pending orders in the zones it currently serves.
// At night that is limited to the zones of its night-guard entry for the date.
func (s *Service) ListPending(ctx context.Context, supplierID types.ID) ([]Order, error) {
	zones, err := s.selector.ServedZones(ctx, supplierID, s.now())
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return []Order{}, nil
	}
	orders, err := s.store.ListPendingForSupplier(ctx, supplierID, zones)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

func (s *Service) publish(ctx context.Context, eventType string, o *Order) {
	evt := events.OrderEvent{
		Type:         eventType,
		OrderID:      o.ID,
		ClientID:     o.ClientID,
		SupplierID:   o.SupplierID,
		ZoneID:       o.ZoneID,
		Status:       string(o.Status),
		DeliveryCost: o.Totals.DeliveryCost,
		Total:        o.Totals.Total,
		Currency:     o.Currency,
		OccurredAt:   s.now(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		log.Printf("order %s: publish %s: %v", o.ID, eventType, err)
	}
}
