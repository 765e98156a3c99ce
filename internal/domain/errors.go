package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrInvalidPagination    = errors.New("invalid pagination")
	ErrUserNotFound         = errors.New("user not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrEmailRequired        = errors.New("email required")
	ErrProductNameRequired  = errors.New("product name required")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidStock         = errors.New("invalid stock")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrProductAlreadyExists = errors.New("product already exists")
	ErrTransient            = errors.New("transient storage failure")
	ErrLockTimeout          = errors.New("lock wait timeout")
)

// ProductNotFoundError reports a product id with no matching row.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// InsufficientStockError reports a line whose quantity exceeds the locked stock.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// TransientError wraps infrastructure failures that are safe to retry:
// lock timeouts, deadlocks, serialization failures, lost connections and
// failed commits. Nothing was persisted when one is returned.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + ErrTransient.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}
