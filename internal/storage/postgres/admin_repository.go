package postgres

import (
	"context"
	"errors"

	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateUser(ctx context.Context, user *domain.User) error {
	const stmt = `INSERT INTO users (email) VALUES ($1) RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, stmt, user.Email).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return classify("create user", err)
	}
	return nil
}

func (r *AdminRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	const stmt = `
INSERT INTO products (name, price_cents, stock)
VALUES ($1, $2, $3)
RETURNING id`

	err := r.pool.QueryRow(ctx, stmt, product.Name, product.Price.Cents(), product.Stock).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductAlreadyExists
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidStock
		}
		return classify("create product", err)
	}
	return nil
}

// UpdatePrice changes the catalog price only. Order items keep their
// recorded price_at_purchase_cents.
func (r *AdminRepository) UpdatePrice(ctx context.Context, productID int64, price domain.Money) (domain.Product, error) {
	const stmt = `
UPDATE products SET price_cents = $2
WHERE id = $1
RETURNING id, name, price_cents, stock`

	var p domain.Product
	err := r.pool.QueryRow(ctx, stmt, productID, price.Cents()).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
		}
		return domain.Product{}, classify("update price", err)
	}
	return p, nil
}

// DeleteOrder removes an order. Its items go with it through the foreign key
// cascade; stock is not restored.
func (r *AdminRepository) DeleteOrder(ctx context.Context, orderID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return classify("delete order", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
