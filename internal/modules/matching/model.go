// README: Supplier selection requests, results and failure reasons.
package matching

import (
	"errors"
	"time"

	"ravito/internal/modules/pricing"
	"ravito/internal/types"
)

// ErrNoSupplierAvailable is the single outcome of every failed selection: no zone coverage,
// no night coverage, a data-access failure or no candidate with known depot coordinates.
var ErrNoSupplierAvailable = errors.New("no supplier available for this zone/time")

// ErrSuppliersBusy means eligible suppliers exist but all stayed reserved by other
// checkouts for the whole lease wait. The caller may retry.
var ErrSuppliersBusy = errors.New("all suppliers for this zone are busy, retry shortly")

type SelectRequest struct {
	ZoneID types.ID
	Client types.Point
	// At is the checkout time; zero means now.
	At time.Time
	// CheckoutID owns the reservation lease; empty means a fresh token is generated.
	CheckoutID string
}

type Selection struct {
	SupplierID types.ID
	Depot      types.Point
	Quote      pricing.Quote
	LeaseToken string
}

// Reason records why a selection produced no supplier. It is logged, never returned.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNoZoneCoverage     Reason = "no_zone_coverage"
	ReasonNoNightCoverage    Reason = "no_night_coverage"
	ReasonDataAccess         Reason = "data_access_failure"
	ReasonMissingCoordinates Reason = "missing_coordinates"
	ReasonLeaseContention    Reason = "lease_contention"
)
