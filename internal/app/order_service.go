package app

import (
	"context"

	"github.com/cimillas/order-ledger/internal/domain"
)

type OrderRepository interface {
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
}

type OrderService struct {
	repo OrderRepository
}

func NewOrderService(repo OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// GetOrder returns the order with its items, or domain.ErrOrderNotFound.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.repo.GetOrder(ctx, orderID)
}
