package postgres

import (
	"context"

	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	const query = `
SELECT id, name, price_cents, stock
FROM products
ORDER BY id
OFFSET $1
LIMIT $2`

	rows, err := conn(ctx, r.pool).Query(ctx, query, offset, limit)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, classify("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate products", err)
	}
	return products, nil
}
