// README: Cart validation and order money breakdown.
package order

import (
	"errors"
	"fmt"
	"math"

	"ravito/internal/modules/pricing"
)

type validationError struct {
	message string
}

func (e validationError) Error() string { return e.message }

func newValidationError(format string, args ...any) error {
	return validationError{message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a rejected cart rather than an infrastructure failure.
func IsValidation(err error) bool {
	var v validationError
	return errors.As(err, &v)
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return newValidationError("at least one item is required")
	}
	for i, it := range items {
		if it.ProductID == "" {
			return newValidationError("item %d: product id is required", i+1)
		}
		if it.Quantity <= 0 {
			return newValidationError("item %d: quantity must be positive", i+1)
		}
		if it.UnitPrice < 0 {
			return newValidationError("item %d: unit price must not be negative", i+1)
		}
		if it.ConsignePrice < 0 {
			return newValidationError("item %d: consigne price must not be negative", i+1)
		}
	}
	return nil
}

// ComputeTotals prices a validated cart. The delivery cost already includes the
// platform margin, which is reported separately for accounting.
func ComputeTotals(items []Item, commissionRate float64, quote pricing.Quote) (Totals, error) {
	if err := validateItems(items); err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, it := range items {
		qty := int64(it.Quantity)
		t.Subtotal += qty * it.UnitPrice
		t.ConsigneTotal += qty * it.ConsignePrice
	}
	t.ClientCommission = int64(math.Round(float64(t.Subtotal) * commissionRate))
	t.DeliveryCost = quote.Total
	t.PlatformMargin = quote.Margin
	t.Total = t.Subtotal + t.ConsigneTotal + t.ClientCommission + t.DeliveryCost
	return t, nil
}
