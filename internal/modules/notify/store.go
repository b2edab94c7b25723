// README: Supplier device token store backed by PostgreSQL.
package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ravito/internal/types"
)

const foreignKeyViolation = "23503"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// SaveToken upserts the supplier's current device token.
func (s *Store) SaveToken(ctx context.Context, supplierID types.ID, token string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO supplier_devices (supplier_id, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (supplier_id) DO UPDATE SET token = EXCLUDED.token, updated_at = NOW()`,
		string(supplierID), token,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrUnknownSupplier
	}
	return err
}

// Token returns the registered token, or "" when the supplier has none.
func (s *Store) Token(ctx context.Context, supplierID types.ID) (string, error) {
	var token string
	err := s.db.QueryRow(ctx, `SELECT token FROM supplier_devices WHERE supplier_id = $1`, string(supplierID)).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return token, err
}
