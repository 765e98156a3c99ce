package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerRepository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewLedgerRepository returns a repository whose row lock waits are bounded
// by lockTimeout. Zero or negative disables the bound.
func NewLedgerRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *LedgerRepository {
	return &LedgerRepository{pool: pool, lockTimeout: lockTimeout}
}

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockProducts takes FOR UPDATE locks on the given products in ascending id
// order. Ids with no row are absent from the result.
func (r *LedgerRepository) LockProducts(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error) {
	if err := setLockTimeout(ctx, r.lockTimeout); err != nil {
		return nil, err
	}

	const query = `
SELECT id, name, price_cents, stock
FROM products
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`

	rows, err := conn(ctx, r.pool).Query(ctx, query, productIDs)
	if err != nil {
		return nil, classify("lock products", err)
	}
	defer rows.Close()

	products := make(map[int64]domain.Product, len(productIDs))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, classify("scan product", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, classify("lock products", err)
	}
	return products, nil
}

func (r *LedgerRepository) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	const stmt = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, productID, quantity)
	if err != nil {
		if isCheckViolation(err) {
			return &domain.InsufficientStockError{ProductID: productID, Requested: quantity}
		}
		return classify("decrement stock", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("decrement stock: product %d changed while locked", productID)
	}
	return nil
}

// CreateOrder inserts the order and its items and fills in the ids and
// created_at assigned by the database.
func (r *LedgerRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	q := conn(ctx, r.pool)

	const orderStmt = `INSERT INTO orders (user_id) VALUES ($1) RETURNING id, created_at`
	if err := q.QueryRow(ctx, orderStmt, order.UserID).Scan(&order.ID, &order.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return classify("create order", err)
	}

	const itemStmt = `
INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase_cents)
VALUES ($1, $2, $3, $4)
RETURNING id`

	batch := &pgx.Batch{}
	for _, item := range order.Items {
		batch.Queue(itemStmt, order.ID, item.ProductID, item.Quantity, item.PriceAtPurchase.Cents())
	}
	results := q.SendBatch(ctx, batch)
	for i := range order.Items {
		if err := results.QueryRow().Scan(&order.Items[i].ID); err != nil {
			_ = results.Close()
			if isForeignKeyViolation(err) {
				return &domain.ProductNotFoundError{ProductID: order.Items[i].ProductID}
			}
			return classify("create order item", err)
		}
		order.Items[i].OrderID = order.ID
	}
	if err := results.Close(); err != nil {
		return classify("create order items", err)
	}
	return nil
}
