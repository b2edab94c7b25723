package pricing

import (
	"math"

	"ravito/internal/types"
)

// roundingStep is the granularity the courier partner bills in.
const roundingStep = 100

// Quote prices a delivery of distanceKm: base fee plus per-km rate, rounded up to the next
// multiple of 100, then the margin rounded to the nearest unit.
func (t Tariff) Quote(distanceKm float64) Quote {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	raw := float64(t.BaseFee) + distanceKm*t.PerKm
	base := int64(math.Ceil(raw/roundingStep)) * roundingStep
	margin := int64(math.Round(float64(base) * t.MarginRate))
	return Quote{
		DistanceKm: distanceKm,
		Base:       base,
		Margin:     margin,
		Total:      base + margin,
		Currency:   types.CurrencyXOF,
	}
}
