package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cimillas/order-ledger/internal/domain"
)

func TestAdminService_CreateUser(t *testing.T) {
	t.Parallel()

	repo := newFakeAdminRepo()
	svc := NewAdminService(repo)

	user, err := svc.CreateUser(context.Background(), "  ana@example.com ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID == 0 || user.Email != "ana@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.CreateUser(context.Background(), "ana@example.com"); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
	if _, err := svc.CreateUser(context.Background(), "   "); !errors.Is(err, domain.ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
}

func TestAdminService_CreateProduct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      CreateProductInput
		wantErr error
	}{
		{name: "valid", in: CreateProductInput{Name: "Widget", Price: domain.NewMoney(5, 0), Stock: 10}},
		{name: "free product", in: CreateProductInput{Name: "Sample", Price: 0, Stock: 0}},
		{name: "missing name", in: CreateProductInput{Name: " ", Price: 100}, wantErr: domain.ErrProductNameRequired},
		{name: "negative price", in: CreateProductInput{Name: "X", Price: -1}, wantErr: domain.ErrInvalidPrice},
		{name: "negative stock", in: CreateProductInput{Name: "X", Price: 1, Stock: -1}, wantErr: domain.ErrInvalidStock},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewAdminService(newFakeAdminRepo())
			product, err := svc.CreateProduct(context.Background(), tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if product.ID == 0 || product.Price != tt.in.Price || product.Stock != tt.in.Stock {
				t.Fatalf("unexpected product: %+v", product)
			}
		})
	}
}

func TestAdminService_UpdatePrice(t *testing.T) {
	t.Parallel()

	repo := newFakeAdminRepo()
	repo.products[1] = domain.Product{ID: 1, Name: "Widget", Price: 500, Stock: 3}
	svc := NewAdminService(repo)

	product, err := svc.UpdatePrice(context.Background(), 1, domain.NewMoney(7, 50))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if product.Price != 750 {
		t.Fatalf("expected price 750 cents, got %d", product.Price)
	}

	if _, err := svc.UpdatePrice(context.Background(), 2, 100); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := svc.UpdatePrice(context.Background(), 1, -1); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := svc.UpdatePrice(context.Background(), 0, 100); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestAdminService_DeleteOrder(t *testing.T) {
	t.Parallel()

	repo := newFakeAdminRepo()
	repo.orders[4] = domain.Order{ID: 4, UserID: 1, CreatedAt: time.Now()}
	svc := NewAdminService(repo)

	if err := svc.DeleteOrder(context.Background(), 4); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := repo.orders[4]; ok {
		t.Fatalf("expected order removed")
	}
	if err := svc.DeleteOrder(context.Background(), 4); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if err := svc.DeleteOrder(context.Background(), -3); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

type fakeAdminRepo struct {
	users    map[string]domain.User
	products map[int64]domain.Product
	orders   map[int64]domain.Order
	nextID   int64
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{
		users:    make(map[string]domain.User),
		products: make(map[int64]domain.Product),
		orders:   make(map[int64]domain.Order),
	}
}

func (f *fakeAdminRepo) CreateUser(_ context.Context, user *domain.User) error {
	if _, ok := f.users[user.Email]; ok {
		return domain.ErrUserAlreadyExists
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.users[user.Email] = *user
	return nil
}

func (f *fakeAdminRepo) CreateProduct(_ context.Context, product *domain.Product) error {
	f.nextID++
	product.ID = f.nextID
	f.products[product.ID] = *product
	return nil
}

func (f *fakeAdminRepo) UpdatePrice(_ context.Context, productID int64, price domain.Money) (domain.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	p.Price = price
	f.products[productID] = p
	return p, nil
}

func (f *fakeAdminRepo) DeleteOrder(_ context.Context, orderID int64) error {
	if _, ok := f.orders[orderID]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(f.orders, orderID)
	return nil
}
