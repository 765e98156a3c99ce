package domain

// Product is a catalog item. Stock is the quantity on hand and never goes negative.
type Product struct {
	ID    int64
	Name  string
	Price Money
	Stock int
}
