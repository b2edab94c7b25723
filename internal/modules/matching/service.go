// README: Matching service filters eligible suppliers for a zone and picks the cheapest delivery.
package matching

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"ravito/internal/config"
	"ravito/internal/modules/pricing"
	"ravito/internal/types"
)

// SupplierStore is the read side of zone approvals, night-guard rosters and depots.
type SupplierStore interface {
	ApprovedSuppliers(ctx context.Context, zoneID types.ID) ([]types.ID, error)
	NightGuardSuppliers(ctx context.Context, zoneID types.ID, date time.Time) ([]types.ID, error)
	Depots(ctx context.Context, ids []types.ID) (map[types.ID]types.Point, error)
	ApprovedZones(ctx context.Context, supplierID types.ID) ([]types.ID, error)
	NightGuardZones(ctx context.Context, supplierID types.ID, date time.Time) ([]types.ID, error)
}

// Quoter prices a delivery from a depot to the client.
type Quoter interface {
	Quote(ctx context.Context, from, to types.Point) (pricing.Quote, error)
}

type Service struct {
	store       SupplierStore
	quoter      Quoter
	leaser      Leaser
	night       NightWindow
	leaseTTL    time.Duration
	maxAttempts int
	leaseWait   time.Duration
	retryEvery  time.Duration
}

// NewService wires the selector. A nil leaser disables reservations.
func NewService(store SupplierStore, quoter Quoter, leaser Leaser, cfg config.MatchingConfig) *Service {
	attempts := cfg.LeaseMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Service{
		store:  store,
		quoter: quoter,
		leaser: leaser,
		night: NightWindow{
			StartHour: cfg.NightStartHour,
			EndHour:   cfg.NightEndHour,
			Location:  cfg.Location(),
		},
		leaseTTL:    cfg.LeaseTTL,
		maxAttempts: attempts,
		leaseWait:   cfg.LeaseWait,
		retryEvery:  cfg.LeaseRetryInterval,
	}
}

func (s *Service) NightWindow() NightWindow { return s.night }

// IsNight reports whether at falls in the configured night window.
func (s *Service) IsNight(at time.Time) bool {
	return s.night.Contains(at)
}

// Eligible returns the candidate suppliers for zoneID at the given time, sorted by id.
// Any data-access failure yields no candidates.
func (s *Service) Eligible(ctx context.Context, zoneID types.ID, at time.Time) []types.ID {
	ids, _ := s.eligible(ctx, zoneID, at)
	return ids
}

func (s *Service) eligible(ctx context.Context, zoneID types.ID, at time.Time) ([]types.ID, Reason) {
	approved, err := s.store.ApprovedSuppliers(ctx, zoneID)
	if err != nil {
		log.Printf("matching: zone %s approved suppliers: %v", zoneID, err)
		return nil, ReasonDataAccess
	}
	if len(approved) == 0 {
		return nil, ReasonNoZoneCoverage
	}
	if !s.night.Contains(at) {
		return sortedUnique(approved), ReasonNone
	}

	date := s.night.RosterDate(at)
	roster, err := s.store.NightGuardSuppliers(ctx, zoneID, date)
	if err != nil {
		log.Printf("matching: zone %s night roster %s: %v", zoneID, date.Format(time.DateOnly), err)
		return nil, ReasonDataAccess
	}
	onDuty := make(map[types.ID]struct{}, len(roster))
	for _, id := range roster {
		onDuty[id] = struct{}{}
	}
	var out []types.ID
	for _, id := range approved {
		if _, ok := onDuty[id]; ok {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, ReasonNoNightCoverage
	}
	return sortedUnique(out), ReasonNone
}

// rank costs every candidate with a known depot and orders them by delivery total.
// Equal totals keep supplier id order.
func (s *Service) rank(ctx context.Context, req SelectRequest) ([]Selection, Reason) {
	ids, reason := s.eligible(ctx, req.ZoneID, req.At)
	if reason != ReasonNone {
		return nil, reason
	}
	depots, err := s.store.Depots(ctx, ids)
	if err != nil {
		log.Printf("matching: zone %s depots: %v", req.ZoneID, err)
		return nil, ReasonDataAccess
	}

	ranked := make([]Selection, 0, len(ids))
	for _, id := range ids {
		depot, ok := depots[id]
		if !ok {
			continue
		}
		q, err := s.quoter.Quote(ctx, depot, req.Client)
		if err != nil {
			log.Printf("matching: quote supplier %s: %v", id, err)
			continue
		}
		ranked = append(ranked, Selection{SupplierID: id, Depot: depot, Quote: q})
	}
	if len(ranked) == 0 {
		return nil, ReasonMissingCoordinates
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Quote.Total < ranked[j].Quote.Total
	})
	return ranked, ReasonNone
}

// SelectSupplier picks the cheapest eligible supplier and reserves it for the checkout.
// When the cheapest is already reserved by another checkout, the next cheapest is tried.
// If every tried candidate is reserved, the same ranking is retried until the lease wait
// runs out, then ErrSuppliersBusy is returned. Lease backend errors fail closed.
func (s *Service) SelectSupplier(ctx context.Context, req SelectRequest) (*Selection, error) {
	if req.At.IsZero() {
		req.At = time.Now()
	}
	ranked, reason := s.rank(ctx, req)
	if reason != ReasonNone {
		log.Printf("matching: no supplier for zone %s: %s", req.ZoneID, reason)
		return nil, ErrNoSupplierAvailable
	}
	if s.leaser == nil {
		sel := ranked[0]
		return &sel, nil
	}

	owner := req.CheckoutID
	if owner == "" {
		owner = uuid.NewString()
	}
	attempts := min(s.maxAttempts, len(ranked))
	deadline := time.Now().Add(s.leaseWait)
	for {
		contended := false
		for i := 0; i < attempts; i++ {
			sel := ranked[i]
			ok, err := s.leaser.Acquire(ctx, sel.SupplierID, owner, s.leaseTTL)
			if err != nil {
				log.Printf("matching: lease supplier %s: %v", sel.SupplierID, err)
				continue
			}
			if ok {
				sel.LeaseToken = owner
				return &sel, nil
			}
			contended = true
		}
		if !contended {
			log.Printf("matching: no supplier for zone %s: %s", req.ZoneID, ReasonDataAccess)
			return nil, ErrNoSupplierAvailable
		}
		if s.retryEvery <= 0 || time.Now().Add(s.retryEvery).After(deadline) {
			break
		}
		if !sleepCtx(ctx, s.retryEvery) {
			break
		}
	}
	log.Printf("matching: zone %s: %s after %s", req.ZoneID, ReasonLeaseContention, s.leaseWait)
	return nil, ErrSuppliersBusy
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Preview runs eligibility and costing without reserving anyone.
func (s *Service) Preview(ctx context.Context, req SelectRequest) (*Selection, error) {
	if req.At.IsZero() {
		req.At = time.Now()
	}
	ranked, reason := s.rank(ctx, req)
	if reason != ReasonNone {
		return nil, ErrNoSupplierAvailable
	}
	sel := ranked[0]
	return &sel, nil
}

// Release frees the reservation taken by SelectSupplier.
func (s *Service) Release(ctx context.Context, sel *Selection) {
	if s.leaser == nil || sel == nil || sel.LeaseToken == "" {
		return
	}
	if err := s.leaser.Release(ctx, sel.SupplierID, sel.LeaseToken); err != nil {
		log.Printf("matching: release lease supplier %s: %v", sel.SupplierID, err)
	}
}

// ServedZones lists the zones a supplier currently serves: approved zones by day, and at
// night only those approved zones that appear in the supplier's roster entry for the date.
func (s *Service) ServedZones(ctx context.Context, supplierID types.ID, at time.Time) ([]types.ID, error) {
	if at.IsZero() {
		at = time.Now()
	}
	approved, err := s.store.ApprovedZones(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if !s.night.Contains(at) {
		return sortedUnique(approved), nil
	}
	roster, err := s.store.NightGuardZones(ctx, supplierID, s.night.RosterDate(at))
	if err != nil {
		return nil, err
	}
	onDuty := make(map[types.ID]struct{}, len(roster))
	for _, z := range roster {
		onDuty[z] = struct{}{}
	}
	var out []types.ID
	for _, z := range approved {
		if _, ok := onDuty[z]; ok {
			out = append(out, z)
		}
	}
	return sortedUnique(out), nil
}

func sortedUnique(ids []types.ID) []types.ID {
	out := make([]types.ID, 0, len(ids))
	seen := make(map[types.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
