package app

import (
	"context"

	"github.com/cimillas/order-ledger/internal/domain"
)

const (
	defaultRefillThreshold = 10
	defaultRefillQuantity  = 100
)

type ReplenishRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetStockForUpdate(ctx context.Context, productID int64) (int, error)
	IncrementStock(ctx context.Context, productID int64, quantity int) (int, error)
}

// ReplenishService tops up stock that fell under a threshold. It only ever
// adds stock and re-reads the locked row each time, so lost, late or
// repeated runs are harmless.
type ReplenishService struct {
	repo      ReplenishRepository
	threshold int
	quantity  int
}

func NewReplenishService(repo ReplenishRepository, opts ...ReplenishServiceOption) *ReplenishService {
	svc := &ReplenishService{
		repo:      repo,
		threshold: defaultRefillThreshold,
		quantity:  defaultRefillQuantity,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReplenishServiceOption func(*ReplenishService)

// WithRefillThreshold sets the stock level under which a refill happens.
func WithRefillThreshold(n int) ReplenishServiceOption {
	return func(s *ReplenishService) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithRefillQuantity sets how much stock one refill adds.
func WithRefillQuantity(n int) ReplenishServiceOption {
	return func(s *ReplenishService) {
		if n > 0 {
			s.quantity = n
		}
	}
}

func (s *ReplenishService) Refill(ctx context.Context, productID int64) (domain.Refill, error) {
	if productID <= 0 {
		return domain.Refill{}, domain.ErrInvalidID
	}

	result := domain.Refill{ProductID: productID}
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		stock, err := s.repo.GetStockForUpdate(txCtx, productID)
		if err != nil {
			return err
		}
		result.StockBefore = stock
		result.StockAfter = stock
		if stock >= s.threshold {
			return nil
		}

		after, err := s.repo.IncrementStock(txCtx, productID, s.quantity)
		if err != nil {
			return err
		}
		result.StockAfter = after
		result.Refilled = true
		return nil
	})
	if err != nil {
		return domain.Refill{}, err
	}
	return result, nil
}
