// README: Pricing service computes delivery quotes from depot to client.
package pricing

import (
	"context"

	"ravito/internal/config"
	"ravito/internal/types"
)

type Service struct {
	tariff    Tariff
	distancer Distancer
}

// NewService builds a pricing service. A nil distancer means straight-line distance.
func NewService(cfg config.PricingConfig, distancer Distancer) *Service {
	if distancer == nil {
		distancer = StraightLine{}
	}
	return &Service{
		tariff:    Tariff{BaseFee: cfg.BaseFee, PerKm: cfg.PerKm, MarginRate: cfg.MarginRate},
		distancer: distancer,
	}
}

func (s *Service) Tariff() Tariff { return s.tariff }

// Quote prices a delivery from a supplier depot to the client.
func (s *Service) Quote(ctx context.Context, from, to types.Point) (Quote, error) {
	km, err := s.distancer.DistanceKm(ctx, from, to)
	if err != nil {
		return Quote{}, err
	}
	return s.tariff.Quote(km), nil
}
