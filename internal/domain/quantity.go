package domain

// StockQuantity is a non-negative count of stock units. Arithmetic returns a
// new validated value; an operation that would go below zero is an error at
// the call site, so an invalid quantity can never exist.
type StockQuantity int

// NewStockQuantity validates a unit count.
func NewStockQuantity(value int) (StockQuantity, error) {
	if value < 0 {
		return 0, &InvalidStockQuantityError{Value: value}
	}
	return StockQuantity(value), nil
}

// Add returns the quantity increased by value.
func (q StockQuantity) Add(value int) (StockQuantity, error) {
	return NewStockQuantity(int(q) + value)
}

// Subtract returns the quantity decreased by value.
func (q StockQuantity) Subtract(value int) (StockQuantity, error) {
	return NewStockQuantity(int(q) - value)
}

// Int returns the quantity as a plain int.
func (q StockQuantity) Int() int { return int(q) }
