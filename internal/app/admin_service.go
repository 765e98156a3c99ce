package app

import (
	"context"
	"strings"

	"github.com/cimillas/order-ledger/internal/domain"
)

type AdminRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdatePrice(ctx context.Context, productID int64, price domain.Money) (domain.Product, error)
	DeleteOrder(ctx context.Context, orderID int64) error
}

// AdminService seeds users and products and performs maintenance that sits
// outside the order flow.
type AdminService struct {
	repo AdminRepository
}

func NewAdminService(repo AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

func (s *AdminService) CreateUser(ctx context.Context, email string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, domain.ErrEmailRequired
	}

	user := domain.User{Email: email}
	if err := s.repo.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

type CreateProductInput struct {
	Name  string
	Price domain.Money
	Stock int
}

func (s *AdminService) CreateProduct(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, domain.ErrProductNameRequired
	}
	if in.Price < 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}
	if in.Stock < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}

	product := domain.Product{
		Name:  name,
		Price: in.Price,
		Stock: in.Stock,
	}
	if err := s.repo.CreateProduct(ctx, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// UpdatePrice changes the catalog price. Existing order items keep the price
// they were bought at.
func (s *AdminService) UpdatePrice(ctx context.Context, productID int64, price domain.Money) (domain.Product, error) {
	if productID <= 0 {
		return domain.Product{}, domain.ErrInvalidID
	}
	if price < 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}
	return s.repo.UpdatePrice(ctx, productID, price)
}

func (s *AdminService) DeleteOrder(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return domain.ErrInvalidID
	}
	return s.repo.DeleteOrder(ctx, orderID)
}
