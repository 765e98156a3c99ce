package postgres

import (
	"context"
	"errors"

	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetOrder reads the order header and its items. It takes no locks.
func (r *OrderRepository) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	q := conn(ctx, r.pool)

	const orderQuery = `SELECT id, user_id, created_at FROM orders WHERE id = $1`

	var o domain.Order
	err := q.QueryRow(ctx, orderQuery, orderID).Scan(&o.ID, &o.UserID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, classify("get order", err)
	}

	const itemsQuery = `
SELECT id, order_id, product_id, quantity, price_at_purchase_cents
FROM order_items
WHERE order_id = $1
ORDER BY id`

	rows, err := q.Query(ctx, itemsQuery, orderID)
	if err != nil {
		return domain.Order{}, classify("get order items", err)
	}
	defer rows.Close()

	o.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return domain.Order{}, classify("scan order item", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, classify("iterate order items", err)
	}
	return o, nil
}
