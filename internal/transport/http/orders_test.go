package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cimillas/order-ledger/internal/app"
	"github.com/cimillas/order-ledger/internal/domain"
)

type fakeUsers struct {
	known map[int64]bool
	err   error
}

func (f fakeUsers) Exists(_ context.Context, userID int64) (bool, error) {
	return f.known[userID], f.err
}

type fakeLedger struct {
	got   *app.PlaceOrderInput
	order domain.Order
	err   error
}

func (f *fakeLedger) PlaceOrder(_ context.Context, in app.PlaceOrderInput) (domain.Order, error) {
	f.got = &in
	if f.err != nil {
		return domain.Order{}, f.err
	}
	return f.order, nil
}

type fakeOrders struct {
	orders map[int64]domain.Order
}

func (f fakeOrders) GetOrder(_ context.Context, orderID int64) (domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

var placedOrder = domain.Order{
	ID:        12,
	UserID:    1,
	CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	Items: []domain.OrderItem{
		{ID: 30, OrderID: 12, ProductID: 3, Quantity: 4, PriceAtPurchase: domain.NewMoney(5, 0)},
	},
}

func TestHandleCreateOrder(t *testing.T) {
	t.Parallel()

	t.Run("creates order", func(t *testing.T) {
		ledger := &fakeLedger{order: placedOrder}
		h := HandleCreateOrder(fakeUsers{known: map[int64]bool{1: true}}, ledger)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/orders",
			strings.NewReader(`{"user_id":1,"items":[{"product_id":3,"quantity":4}]}`)))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Location"); got != "/orders/12" {
			t.Fatalf("expected location /orders/12, got %q", got)
		}
		if !strings.Contains(rec.Body.String(), `"price_at_purchase":5.00`) {
			t.Fatalf("expected decimal price in body, got %s", rec.Body.String())
		}

		var resp orderResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.ID != 12 || resp.UserID != 1 || len(resp.Items) != 1 || resp.Items[0].Quantity != 4 {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if ledger.got == nil || ledger.got.UserID != 1 || ledger.got.Items[0] != (domain.LineItem{ProductID: 3, Quantity: 4}) {
			t.Fatalf("unexpected ledger input: %+v", ledger.got)
		}
	})

	t.Run("unknown user is 404 and skips the ledger", func(t *testing.T) {
		ledger := &fakeLedger{order: placedOrder}
		h := HandleCreateOrder(fakeUsers{}, ledger)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/orders",
			strings.NewReader(`{"user_id":99,"items":[{"product_id":3,"quantity":1}]}`)))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, rec, codeUserNotFound)
		if ledger.got != nil {
			t.Fatalf("expected ledger not to be called")
		}
	})

	t.Run("rejects bad bodies", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			code string
		}{
			{name: "not json", body: `{`, code: codeInvalidRequestBody},
			{name: "unknown field", body: `{"user_id":1,"items":[],"coupon":"x"}`, code: codeInvalidRequestBody},
			{name: "fractional quantity", body: `{"user_id":1,"items":[{"product_id":1,"quantity":1.5}]}`, code: codeInvalidRequestBody},
			{name: "missing user", body: `{"items":[{"product_id":1,"quantity":1}]}`, code: codeMissingRequiredField},
			{name: "empty items", body: `{"user_id":1,"items":[]}`, code: codeEmptyOrder},
			{name: "zero quantity", body: `{"user_id":1,"items":[{"product_id":1,"quantity":0}]}`, code: codeInvalidQuantity},
			{name: "negative quantity", body: `{"user_id":1,"items":[{"product_id":1,"quantity":-3}]}`, code: codeInvalidQuantity},
			{name: "missing quantity", body: `{"user_id":1,"items":[{"product_id":1}]}`, code: codeMissingRequiredField},
			{name: "bad product id", body: `{"user_id":1,"items":[{"product_id":0,"quantity":1}]}`, code: codeInvalidID},
		}
		for _, tt := range tests {
			ledger := &fakeLedger{}
			h := HandleCreateOrder(fakeUsers{known: map[int64]bool{1: true}}, ledger)

			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", tt.name, rec.Code)
			}
			assertErrorCode(t, rec, tt.code)
			if ledger.got != nil {
				t.Fatalf("%s: expected ledger not to be called", tt.name)
			}
		}
	})

	t.Run("maps ledger errors", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{
				name:   "insufficient stock",
				err:    &domain.InsufficientStockError{ProductID: 3, Requested: 4, Available: 0},
				status: http.StatusBadRequest,
				code:   codeInsufficientStock,
			},
			{
				name:   "product not found",
				err:    &domain.ProductNotFoundError{ProductID: 3},
				status: http.StatusBadRequest,
				code:   codeProductNotFound,
			},
			{
				name:   "transient",
				err:    &domain.TransientError{Op: "lock products", Err: domain.ErrLockTimeout},
				status: http.StatusServiceUnavailable,
				code:   codeTemporarilyUnavailable,
			},
			{
				name:   "unexpected",
				err:    errors.New("boom"),
				status: http.StatusInternalServerError,
				code:   codeInternalError,
			},
		}
		for _, tt := range tests {
			h := HandleCreateOrder(fakeUsers{known: map[int64]bool{1: true}}, &fakeLedger{err: tt.err})

			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodPost, "/orders",
				strings.NewReader(`{"user_id":1,"items":[{"product_id":3,"quantity":4}]}`)))

			if rec.Code != tt.status {
				t.Fatalf("%s: expected %d, got %d", tt.name, tt.status, rec.Code)
			}
			resp := assertErrorCode(t, rec, tt.code)
			if tt.code == codeInsufficientStock {
				if resp.ProductID == nil || *resp.ProductID != 3 || resp.Requested == nil || *resp.Requested != 4 ||
					resp.Available == nil || *resp.Available != 0 {
					t.Fatalf("expected conflict details, got %s", rec.Body.String())
				}
			}
			if tt.status == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") != "1" {
				t.Fatalf("expected Retry-After on 503")
			}
		}
	})

	t.Run("user lookup failure", func(t *testing.T) {
		h := HandleCreateOrder(fakeUsers{err: &domain.TransientError{Op: "check user", Err: errors.New("reset")}}, &fakeLedger{})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/orders",
			strings.NewReader(`{"user_id":1,"items":[{"product_id":3,"quantity":4}]}`)))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestHandleGetOrder(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{}, Services{Orders: fakeOrders{orders: map[int64]domain.Order{12: placedOrder}}})

	tests := []struct {
		path   string
		status int
	}{
		{path: "/orders/12", status: http.StatusOK},
		{path: "/orders/13", status: http.StatusNotFound},
		{path: "/orders/abc", status: http.StatusBadRequest},
		{path: "/orders/0", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.path, tt.status, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/12", nil))
	var resp orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != 12 || !resp.CreatedAt.Equal(placedOrder.CreatedAt) || resp.Items[0].PriceAtPurchase != domain.NewMoney(5, 0) {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	if resp.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, resp.Code, resp.Error)
	}
	return resp
}
