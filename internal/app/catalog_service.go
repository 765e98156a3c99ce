package app

import (
	"context"

	"github.com/cimillas/order-ledger/internal/domain"
)

const (
	DefaultProductPageLimit = 100
	MaxProductPageLimit     = 500
)

type CatalogRepository interface {
	ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error)
}

type CatalogService struct {
	repo CatalogRepository
}

func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

type ListProductsInput struct {
	Offset int
	// Limit of zero selects DefaultProductPageLimit.
	Limit int
}

func (s *CatalogService) ListProducts(ctx context.Context, in ListProductsInput) ([]domain.Product, error) {
	if in.Offset < 0 || in.Limit < 0 {
		return nil, domain.ErrInvalidPagination
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultProductPageLimit
	}
	if limit > MaxProductPageLimit {
		limit = MaxProductPageLimit
	}
	return s.repo.ListProducts(ctx, in.Offset, limit)
}
