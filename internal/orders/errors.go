package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// InsufficientStockError names the first cart line whose quantity
// exceeds available stock.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Required    int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s is out of stock: need %d, have %d", e.ProductName, e.Required, e.Available)
}
