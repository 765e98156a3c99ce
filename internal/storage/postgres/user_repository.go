package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, classify("check user", err)
	}
	return exists, nil
}
