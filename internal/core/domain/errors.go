package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrHoldNotFound    = errors.New("hold not found")
	ErrStatusConflict  = errors.New("status conflict")
	ErrNotInHoldState  = errors.New("hold is not in hold state")
	ErrAlreadyResolved = errors.New("hold already resolved")
	ErrInvalidToken    = errors.New("invalid reservation token")
	ErrInvalidPayment  = errors.New("payment not verified")
	ErrGatewayFailure  = errors.New("payment gateway failure")

	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientItem describes one line item that could not be reserved.
type InsufficientItem struct {
	ProductID string
	Requested int
	Available int
}

// InsufficientStockError carries every failing line item so the caller can
// report exactly which products fell short and by how much.
type InsufficientStockError struct {
	Items []InsufficientItem
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", it.ProductID, it.Requested, it.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrInsufficientStock) match the detailed error.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
