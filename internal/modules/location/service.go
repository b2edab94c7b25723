// README: Location service validates and records supplier depot coordinates.
package location

import (
	"context"
	"errors"

	"ravito/internal/types"
)

var (
	ErrInvalidPoint    = errors.New("invalid coordinates")
	ErrUnknownSupplier = errors.New("supplier not found")
)

type depotStore interface {
	SetDepot(ctx context.Context, supplierID types.ID, p types.Point) (bool, error)
}

type Service struct {
	store depotStore
}

func NewService(store depotStore) *Service {
	return &Service{store: store}
}

// UpdateDepot stores the supplier's depot. Suppliers without a depot never win a selection.
func (s *Service) UpdateDepot(ctx context.Context, supplierID types.ID, p types.Point) error {
	if supplierID == "" || !ValidPoint(p) || (p.Lat == 0 && p.Lng == 0) {
		return ErrInvalidPoint
	}
	ok, err := s.store.SetDepot(ctx, supplierID, p)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownSupplier
	}
	return nil
}
