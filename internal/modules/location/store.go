// README: Depot store backed by the suppliers table in PostgreSQL.
package location

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"ravito/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// SetDepot records the supplier's depot coordinates. It reports false when the supplier does not exist.
func (s *Store) SetDepot(ctx context.Context, supplierID types.ID, p types.Point) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE suppliers
		SET depot_lat = $2, depot_lng = $3
		WHERE id = $1`,
		string(supplierID), p.Lat, p.Lng,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
