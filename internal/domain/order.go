package domain

import "time"

// Order is a purchase by one user. It owns its items; deleting an order deletes them.
type Order struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
	Items     []OrderItem
}

// OrderItem is one product line of an order.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	// PriceAtPurchase is the product price read under lock when the order was placed.
	PriceAtPurchase Money
}

// LineItem is a requested (product, quantity) pair.
type LineItem struct {
	ProductID int64
	Quantity  int
}

// ProductIDs returns the distinct product ids of the order's items in item order.
func (o Order) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Items))
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
