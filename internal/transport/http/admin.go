package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cimillas/order-ledger/internal/app"
	"github.com/cimillas/order-ledger/internal/domain"
)

const adminTokenHeader = "X-Admin-Token"

// AdminService is the minimal interface needed for the admin endpoints.
type AdminService interface {
	CreateUser(ctx context.Context, email string) (domain.User, error)
	CreateProduct(ctx context.Context, in app.CreateProductInput) (domain.Product, error)
	UpdatePrice(ctx context.Context, productID int64, price domain.Money) (domain.Product, error)
	DeleteOrder(ctx context.Context, orderID int64) error
}

// RequireAdminToken rejects requests whose X-Admin-Token does not match token.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(adminTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func HandleAdminCreateUser(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if !decodeStrict(w, r, &req) {
			return
		}

		user, err := svc.CreateUser(r.Context(), req.Email)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, userResponse{
			ID:        user.ID,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		})
	}
}

func HandleAdminCreateProduct(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  string        `json:"name"`
			Price *domain.Money `json:"price"`
			Stock int           `json:"stock"`
		}
		if !decodeStrict(w, r, &req) {
			return
		}
		if req.Price == nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "price is required")
			return
		}

		product, err := svc.CreateProduct(r.Context(), app.CreateProductInput{
			Name:  req.Name,
			Price: *req.Price,
			Stock: req.Stock,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newProductResponse(product))
	}
}

func HandleAdminUpdatePrice(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}
		var req struct {
			Price *domain.Money `json:"price"`
		}
		if !decodeStrict(w, r, &req) {
			return
		}
		if req.Price == nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "price is required")
			return
		}

		product, err := svc.UpdatePrice(r.Context(), productID, *req.Price)
		if err != nil {
			// Outside an order a missing product is a plain 404.
			if errors.Is(err, domain.ErrProductNotFound) {
				writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
				return
			}
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newProductResponse(product))
	}
}

func HandleAdminDeleteOrder(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}
		if err := svc.DeleteOrder(r.Context(), orderID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
