package domain

// Refill describes the outcome of one replenishment check.
type Refill struct {
	ProductID   int64
	StockBefore int
	StockAfter  int
	Refilled    bool
}
