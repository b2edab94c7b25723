// README: Supplier push notifications over Firebase Cloud Messaging.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"ravito/internal/types"
)

var (
	ErrInvalidToken    = errors.New("device token is required")
	ErrUnknownSupplier = errors.New("unknown supplier")
	ErrNoDevice        = errors.New("supplier has no registered device")
)

type deviceStore interface {
	SaveToken(ctx context.Context, supplierID types.ID, token string) error
	Token(ctx context.Context, supplierID types.ID) (string, error)
}

// Sender is the part of *messaging.Client the service needs.
type Sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

func NewFirebaseSender(ctx context.Context, app *firebase.App) (Sender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	return client, nil
}

// NewOrder is the payload pushed to a supplier when a checkout selects them.
type NewOrder struct {
	OrderID      types.ID
	SupplierID   types.ID
	ZoneID       types.ID
	DeliveryCost types.Money
	Total        types.Money
}

type Service struct {
	store  deviceStore
	sender Sender
}

// NewService builds the notifier. A nil sender registers devices but never pushes.
func NewService(store deviceStore, sender Sender) *Service {
	return &Service{store: store, sender: sender}
}

func (s *Service) RegisterDevice(ctx context.Context, supplierID types.ID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if supplierID == "" {
		return ErrUnknownSupplier
	}
	return s.store.SaveToken(ctx, supplierID, token)
}

func (s *Service) NotifySupplierNewOrder(ctx context.Context, info NewOrder) error {
	if s.sender == nil {
		return nil
	}
	token, err := s.store.Token(ctx, info.SupplierID)
	if err != nil {
		return fmt.Errorf("lookup device for supplier %s: %w", info.SupplierID, err)
	}
	if token == "" {
		return ErrNoDevice
	}

	msg := &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type":          "new_order",
			"order_id":      string(info.OrderID),
			"zone_id":       string(info.ZoneID),
			"delivery_cost": strconv.FormatInt(info.DeliveryCost.Amount, 10),
			"total":         strconv.FormatInt(info.Total.Amount, 10),
			"currency":      info.Total.Currency,
		},
		Notification: &messaging.Notification{
			Title: "Nouvelle commande",
			Body:  fmt.Sprintf("Commande de %d %s à livrer", info.Total.Amount, info.Total.Currency),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	messageID, err := s.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM for order %s: %w", info.OrderID, err)
	}
	log.Printf("FCM sent for order %s, message_id=%s", info.OrderID, messageID)
	return nil
}
