package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/order-ledger/internal/app"
	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
)

// UserChecker is the minimal interface needed to verify the ordering user.
type UserChecker interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// OrderPlacer is the minimal interface needed to place an order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in app.PlaceOrderInput) (domain.Order, error)
}

// OrderGetter is the minimal interface needed to read an order.
type OrderGetter interface {
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
}

// HandleCreateOrder serves POST /orders. The user is checked before the
// ledger runs so an unknown user never takes row locks.
func HandleCreateOrder(users UserChecker, ledger OrderPlacer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			code := codeMissingRequiredField
			switch {
			case errors.Is(err, domain.ErrEmptyOrder):
				code = codeEmptyOrder
			case errors.Is(err, domain.ErrInvalidQuantity):
				code = codeInvalidQuantity
			case errors.Is(err, domain.ErrInvalidID):
				code = codeInvalidID
			}
			writeError(w, http.StatusBadRequest, code, err.Error())
			return
		}

		exists, err := users.Exists(r.Context(), *req.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, codeUserNotFound, domain.ErrUserNotFound.Error())
			return
		}

		items := make([]domain.LineItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, domain.LineItem{ProductID: *item.ProductID, Quantity: *item.Quantity})
		}

		order, err := ledger.PlaceOrder(r.Context(), app.PlaceOrderInput{
			UserID: *req.UserID,
			Items:  items,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		w.Header().Set("Location", "/orders/"+strconv.FormatInt(order.ID, 10))
		writeJSON(w, http.StatusCreated, newOrderResponse(order))
	}
}

// HandleGetOrder serves GET /orders/{id}.
func HandleGetOrder(svc OrderGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type createOrderRequest struct {
	UserID *int64               `json:"user_id"`
	Items  []createOrderItemReq `json:"items"`
}

type createOrderItemReq struct {
	ProductID *int64 `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

func (r createOrderRequest) validate() error {
	if r.UserID == nil {
		return errors.New("user_id is required")
	}
	if *r.UserID <= 0 {
		return domain.ErrInvalidID
	}
	if len(r.Items) == 0 {
		return domain.ErrEmptyOrder
	}
	for _, item := range r.Items {
		if item.ProductID == nil || item.Quantity == nil {
			return errors.New("items require product_id and quantity")
		}
		if *item.ProductID <= 0 {
			return domain.ErrInvalidID
		}
		if *item.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	return nil
}

type orderItemResponse struct {
	ID              int64        `json:"id"`
	ProductID       int64        `json:"product_id"`
	Quantity        int          `json:"quantity"`
	PriceAtPurchase domain.Money `json:"price_at_purchase"`
}

type orderResponse struct {
	ID        int64               `json:"id"`
	UserID    int64               `json:"user_id"`
	CreatedAt time.Time           `json:"created_at"`
	Items     []orderItemResponse `json:"items"`
}

func newOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		CreatedAt: o.CreatedAt,
		Items:     items,
	}
}
