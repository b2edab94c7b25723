// README: Delivery tariff and quote definitions.
package pricing

import "ravito/internal/types"

// Tariff is the simulated third-party delivery fee schedule plus the platform margin.
type Tariff struct {
	BaseFee    int64
	PerKm      float64
	MarginRate float64
}

// Quote is a priced delivery. Base is what the courier partner charges, Margin is the
// platform's cut on top and Total is what the client pays for delivery.
type Quote struct {
	DistanceKm float64 `json:"distance_km"`
	Base       int64   `json:"base"`
	Margin     int64   `json:"margin"`
	Total      int64   `json:"total"`
	Currency   string  `json:"currency"`
}

func (q Quote) TotalMoney() types.Money  { return types.Money{Amount: q.Total, Currency: q.Currency} }
func (q Quote) MarginMoney() types.Money { return types.Money{Amount: q.Margin, Currency: q.Currency} }
