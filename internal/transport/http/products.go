package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cimillas/order-ledger/internal/app"
	"github.com/cimillas/order-ledger/internal/domain"
)

// ProductLister is the minimal interface needed to list the catalog.
type ProductLister interface {
	ListProducts(ctx context.Context, in app.ListProductsInput) ([]domain.Product, error)
}

// HandleListProducts serves GET /products?skip=&limit=.
func HandleListProducts(svc ProductLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, ok := queryInt(r, "skip")
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidPagination, "skip must be a non-negative integer")
			return
		}
		limit, ok := queryInt(r, "limit")
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidPagination, "limit must be a non-negative integer")
			return
		}

		products, err := svc.ListProducts(r.Context(), app.ListProductsInput{Offset: skip, Limit: limit})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]productResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, newProductResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// queryInt reads an optional integer parameter. Absent means zero.
func queryInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

type productResponse struct {
	ID    int64        `json:"id"`
	Name  string       `json:"name"`
	Price domain.Money `json:"price"`
	Stock int          `json:"stock"`
}

func newProductResponse(p domain.Product) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
}
