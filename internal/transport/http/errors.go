package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/cimillas/order-ledger/internal/logging"
	"go.uber.org/zap"
)

const (
	codeMethodNotAllowed       = "method_not_allowed"
	codeNotFound               = "not_found"
	codeInvalidRequestBody     = "invalid_request_body"
	codeMissingRequiredField   = "missing_required_field"
	codeInvalidID              = "invalid_id"
	codeInvalidQuantity        = "invalid_quantity"
	codeEmptyOrder             = "empty_order"
	codeInvalidPagination      = "invalid_pagination"
	codeEmailRequired          = "email_required"
	codeProductNameRequired    = "product_name_required"
	codeInvalidPrice           = "invalid_price"
	codeInvalidStock           = "invalid_stock"
	codeUserNotFound           = "user_not_found"
	codeOrderNotFound          = "order_not_found"
	codeProductNotFound        = "product_not_found"
	codeInsufficientStock      = "insufficient_stock"
	codeUserAlreadyExists      = "user_already_exists"
	codeProductAlreadyExists   = "product_already_exists"
	codeTemporarilyUnavailable = "temporarily_unavailable"
	codeForbidden              = "forbidden"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	ProductID *int64 `json:"product_id,omitempty"`
	Requested *int   `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorBody(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(body)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var validationCodes = []struct {
	err  error
	code string
}{
	{domain.ErrInvalidID, codeInvalidID},
	{domain.ErrInvalidQuantity, codeInvalidQuantity},
	{domain.ErrEmptyOrder, codeEmptyOrder},
	{domain.ErrInvalidPagination, codeInvalidPagination},
	{domain.ErrEmailRequired, codeEmailRequired},
	{domain.ErrProductNameRequired, codeProductNameRequired},
	{domain.ErrInvalidPrice, codeInvalidPrice},
	{domain.ErrInvalidStock, codeInvalidStock},
}

// writeServiceError maps service errors onto responses. Stock conflicts stay
// 400 and retryable storage failures become 503. Anything else unexpected is
// logged and answered with 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, v := range validationCodes {
		if errors.Is(err, v.err) {
			writeError(w, http.StatusBadRequest, v.code, err.Error())
			return
		}
	}

	var stockErr *domain.InsufficientStockError
	var productErr *domain.ProductNotFoundError
	switch {
	case errors.As(err, &stockErr):
		writeErrorBody(w, http.StatusBadRequest, errorResponse{
			Error:     stockErr.Error(),
			Code:      codeInsufficientStock,
			ProductID: &stockErr.ProductID,
			Requested: &stockErr.Requested,
			Available: &stockErr.Available,
		})
	case errors.As(err, &productErr):
		writeErrorBody(w, http.StatusBadRequest, errorResponse{
			Error:     productErr.Error(),
			Code:      codeProductNotFound,
			ProductID: &productErr.ProductID,
		})
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeUserNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, codeUserAlreadyExists, err.Error())
	case errors.Is(err, domain.ErrProductAlreadyExists):
		writeError(w, http.StatusConflict, codeProductAlreadyExists, err.Error())
	case errors.Is(err, domain.ErrTransient):
		logging.Logger(r.Context()).Warn("transient storage failure", zap.Error(err))
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, codeTemporarilyUnavailable, "temporarily unavailable, retry")
	default:
		logging.Logger(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
