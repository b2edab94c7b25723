// README: Supplier eligibility store backed by PostgreSQL.
package matching

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"ravito/internal/types"
)

const approvalApproved = "approved"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ApprovedSuppliers lists approved suppliers holding an approved membership for the zone.
func (s *Store) ApprovedSuppliers(ctx context.Context, zoneID types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT sz.supplier_id
		FROM supplier_zones sz
		JOIN suppliers s ON s.id = sz.supplier_id
		WHERE sz.zone_id = $1
		  AND sz.approval_status = $2
		  AND s.is_approved
		ORDER BY sz.supplier_id`,
		string(zoneID), approvalApproved,
	)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// NightGuardSuppliers lists suppliers on the active roster for date whose covered zones include zoneID.
func (s *Store) NightGuardSuppliers(ctx context.Context, zoneID types.ID, date time.Time) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT supplier_id
		FROM night_guard_schedules
		WHERE date = $1
		  AND is_active
		  AND $2 = ANY(zone_ids)
		ORDER BY supplier_id`,
		pgDate(date), string(zoneID),
	)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// Depots returns the depot of every listed supplier that has one recorded.
func (s *Store) Depots(ctx context.Context, ids []types.ID) (map[types.ID]types.Point, error) {
	out := make(map[types.ID]types.Point, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, depot_lat, depot_lng
		FROM suppliers
		WHERE id = ANY($1)
		  AND depot_lat IS NOT NULL
		  AND depot_lng IS NOT NULL`,
		raw,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var p types.Point
		if err := rows.Scan(&id, &p.Lat, &p.Lng); err != nil {
			return nil, err
		}
		out[types.ID(id)] = p
	}
	return out, rows.Err()
}

// ApprovedZones lists the zones a supplier is approved to serve.
func (s *Store) ApprovedZones(ctx context.Context, supplierID types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT sz.zone_id
		FROM supplier_zones sz
		JOIN suppliers s ON s.id = sz.supplier_id
		WHERE sz.supplier_id = $1
		  AND sz.approval_status = $2
		  AND s.is_approved
		ORDER BY sz.zone_id`,
		string(supplierID), approvalApproved,
	)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// NightGuardZones returns the zones in the supplier's active roster entry for date, if any.
func (s *Store) NightGuardZones(ctx context.Context, supplierID types.ID, date time.Time) ([]types.ID, error) {
	var zones []string
	err := s.db.QueryRow(ctx, `
		SELECT zone_ids
		FROM night_guard_schedules
		WHERE supplier_id = $1 AND date = $2 AND is_active`,
		string(supplierID), pgDate(date),
	).Scan(&zones)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]types.ID, len(zones))
	for i, z := range zones {
		out[i] = types.ID(z)
	}
	return out, nil
}

func collectIDs(rows pgx.Rows) ([]types.ID, error) {
	raw, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make([]types.ID, len(raw))
	for i, v := range raw {
		out[i] = types.ID(v)
	}
	return out, nil
}

func pgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}
