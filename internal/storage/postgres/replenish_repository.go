package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReplenishRepository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewReplenishRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *ReplenishRepository {
	return &ReplenishRepository{pool: pool, lockTimeout: lockTimeout}
}

func (r *ReplenishRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReplenishRepository) GetStockForUpdate(ctx context.Context, productID int64) (int, error) {
	if err := setLockTimeout(ctx, r.lockTimeout); err != nil {
		return 0, err
	}

	const query = `SELECT stock FROM products WHERE id = $1 FOR UPDATE`

	var stock int
	if err := conn(ctx, r.pool).QueryRow(ctx, query, productID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &domain.ProductNotFoundError{ProductID: productID}
		}
		return 0, classify("get stock", err)
	}
	return stock, nil
}

// IncrementStock adds quantity to the product and appends a stock_refills
// row in the same transaction.
func (r *ReplenishRepository) IncrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	q := conn(ctx, r.pool)

	const stmt = `UPDATE products SET stock = stock + $2 WHERE id = $1 RETURNING stock`

	var stock int
	if err := q.QueryRow(ctx, stmt, productID, quantity).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &domain.ProductNotFoundError{ProductID: productID}
		}
		return 0, classify("increment stock", err)
	}

	const logStmt = `INSERT INTO stock_refills (product_id, quantity, stock_after) VALUES ($1, $2, $3)`
	if _, err := q.Exec(ctx, logStmt, productID, quantity, stock); err != nil {
		return 0, classify("record refill", err)
	}
	return stock, nil
}
