package app

import (
	"context"
	"math"
	"sort"

	"github.com/cimillas/order-ledger/internal/domain"
)

type LedgerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockProducts locks the given rows FOR UPDATE and returns the ones that exist.
	LockProducts(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	// CreateOrder writes the order and its items, filling in the store-assigned fields.
	CreateOrder(ctx context.Context, order *domain.Order) error
}

// Dispatcher receives the products touched by a committed order.
// Implementations must not block the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, productIDs []int64)
}

type LedgerService struct {
	repo       LedgerRepository
	dispatcher Dispatcher
}

func NewLedgerService(repo LedgerRepository, opts ...LedgerServiceOption) *LedgerService {
	svc := &LedgerService{repo: repo}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type LedgerServiceOption func(*LedgerService)

// WithDispatcher sets where post-commit replenishment checks are sent.
func WithDispatcher(d Dispatcher) LedgerServiceOption {
	return func(s *LedgerService) {
		s.dispatcher = d
	}
}

type PlaceOrderInput struct {
	UserID int64
	Items  []domain.LineItem
}

// PlaceOrder locks the referenced products, checks availability against the
// locked rows and then decrements stock and writes the order in the same
// transaction. Any failure leaves stock and orders untouched.
func (s *LedgerService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	if in.UserID <= 0 {
		return domain.Order{}, domain.ErrInvalidID
	}
	lines, err := coalesceLines(in.Items)
	if err != nil {
		return domain.Order{}, err
	}
	productIDs := sortedProductIDs(lines)

	var result domain.Order
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		products, err := s.repo.LockProducts(txCtx, productIDs)
		if err != nil {
			return err
		}

		for _, line := range lines {
			product, ok := products[line.ProductID]
			if !ok {
				return &domain.ProductNotFoundError{ProductID: line.ProductID}
			}
			if line.Quantity > product.Stock {
				return &domain.InsufficientStockError{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: product.Stock,
				}
			}
		}

		order := domain.Order{
			UserID: in.UserID,
			Items:  make([]domain.OrderItem, 0, len(lines)),
		}
		for _, line := range lines {
			if err := s.repo.DecrementStock(txCtx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			order.Items = append(order.Items, domain.OrderItem{
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				PriceAtPurchase: products[line.ProductID].Price,
			})
		}

		if err := s.repo.CreateOrder(txCtx, &order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, result.ProductIDs())
	}
	return result, nil
}

// coalesceLines validates the requested lines and merges repeated products
// into one line, keeping first-seen order. Merged quantities saturate at
// math.MaxInt, which no stock level can satisfy.
func coalesceLines(items []domain.LineItem) ([]domain.LineItem, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	index := make(map[int64]int, len(items))
	lines := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID <= 0 {
			return nil, domain.ErrInvalidID
		}
		if item.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if i, ok := index[item.ProductID]; ok {
			lines[i].Quantity = addQuantity(lines[i].Quantity, item.Quantity)
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, item)
	}
	return lines, nil
}

func addQuantity(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// sortedProductIDs returns the line product ids in ascending order, the order
// every transaction acquires row locks in.
func sortedProductIDs(lines []domain.LineItem) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
