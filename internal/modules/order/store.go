// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ravito/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create inserts the order, its items and the initial state event in one transaction.
func (s *Store) Create(ctx context.Context, o *Order, e *Event) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, client_id, supplier_id, zone_id, status, status_version,
			delivery_lat, delivery_lng,
			subtotal, consigne_total, client_commission, delivery_cost, platform_margin, total,
			currency, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16
		)`,
		string(o.ID), string(o.ClientID), string(o.SupplierID), string(o.ZoneID),
		string(o.Status), o.StatusVersion,
		o.Delivery.Lat, o.Delivery.Lng,
		o.Totals.Subtotal, o.Totals.ConsigneTotal, o.Totals.ClientCommission,
		o.Totals.DeliveryCost, o.Totals.PlatformMargin, o.Totals.Total,
		o.Currency, o.CreatedAt,
	)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, line_no, product_id, name, quantity, unit_price, consigne_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			string(o.ID), i+1, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.ConsignePrice,
		)
	}
	if e != nil {
		batch.Queue(insertEventSQL, eventArgs(e)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `
	id, client_id, supplier_id, zone_id, status, status_version,
	delivery_lat, delivery_lng,
	subtotal, consigne_total, client_commission, delivery_cost, platform_margin, total,
	currency, created_at, accepted_at, delivering_at, delivered_at, cancelled_at, cancel_reason`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var id, clientID, supplierID, zoneID, status string
	err := row.Scan(
		&id, &clientID, &supplierID, &zoneID, &status, &o.StatusVersion,
		&o.Delivery.Lat, &o.Delivery.Lng,
		&o.Totals.Subtotal, &o.Totals.ConsigneTotal, &o.Totals.ClientCommission,
		&o.Totals.DeliveryCost, &o.Totals.PlatformMargin, &o.Totals.Total,
		&o.Currency, &o.CreatedAt, &o.AcceptedAt, &o.DeliveringAt, &o.DeliveredAt, &o.CancelledAt, &o.CancelReason,
	)
	if err != nil {
		return nil, err
	}
	o.ID = types.ID(id)
	o.ClientID = types.ID(clientID)
	o.SupplierID = types.ID(supplierID)
	o.ZoneID = types.ID(zoneID)
	o.Status = Status(status)
	return &o, nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (s *Store) items(ctx context.Context, orderID types.ID) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT product_id, name, quantity, unit_price, consigne_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY line_no`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice, &it.ConsignePrice)
		return it, err
	})
}

// UpdateStatus moves the order from one status to another if nobody changed it since
// version was read, stamping the matching timestamp column with at. It reports false
// when the optimistic check lost.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, at time.Time, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
			status_version = status_version + 1,
			accepted_at = CASE WHEN $1 = 'accepted' THEN $6 ELSE accepted_at END,
			delivering_at = CASE WHEN $1 = 'delivering' THEN $6 ELSE delivering_at END,
			delivered_at = CASE WHEN $1 = 'delivered' THEN $6 ELSE delivered_at END,
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN $6 ELSE cancelled_at END,
			cancel_reason = COALESCE($2, cancel_reason)
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		reason,
		string(id),
		string(from),
		version,
		at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const insertEventSQL = `
	INSERT INTO order_state_events (
		order_id, from_status, to_status, actor_type, actor_id, created_at
	) VALUES ($1, $2, $3, $4, $5, $6)`

func eventArgs(e *Event) []any {
	return []any{
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	}
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, insertEventSQL, eventArgs(e)...)
	return err
}

func (s *Store) Events(ctx context.Context, orderID types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor_type, actor_id, created_at
		FROM order_state_events
		WHERE order_id = $1
		ORDER BY id`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		var oid, from, to string
		var actorID *string
		if err := row.Scan(&e.ID, &oid, &from, &to, &e.ActorType, &actorID, &e.CreatedAt); err != nil {
			return Event{}, err
		}
		e.OrderID = types.ID(oid)
		e.FromStatus = Status(from)
		e.ToStatus = Status(to)
		if actorID != nil {
			a := types.ID(*actorID)
			e.ActorID = &a
		}
		return e, nil
	})
}

// ListPendingForSupplier returns pending orders assigned to supplierID in the given zones,
// oldest first, with their items.
func (s *Store) ListPendingForSupplier(ctx context.Context, supplierID types.ID, zones []types.ID) ([]Order, error) {
	if len(zones) == 0 {
		return nil, nil
	}
	zoneIDs := make([]string, len(zones))
	for i, z := range zones {
		zoneIDs[i] = string(z)
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE supplier_id = $1 AND status = 'pending' AND zone_id = ANY($2)
		ORDER BY created_at, id`,
		string(supplierID), zoneIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := s.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachItems loads the lines of every order in one query.
func (s *Store) attachItems(ctx context.Context, orders []Order) error {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = string(o.ID)
	}
	rows, err := s.db.Query(ctx, `
		SELECT order_id, product_id, name, quantity, unit_price, consigne_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no`, ids,
	)
	if err != nil {
		return err
	}
	byOrder := make(map[types.ID][]Item, len(orders))
	_, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (struct{}, error) {
		var orderID string
		var it Item
		if err := row.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice, &it.ConsignePrice); err != nil {
			return struct{}{}, err
		}
		byOrder[types.ID(orderID)] = append(byOrder[types.ID(orderID)], it)
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	for i := range orders {
		items := byOrder[orders[i].ID]
		if items == nil {
			items = []Item{}
		}
		orders[i].Items = items
	}
	return nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
