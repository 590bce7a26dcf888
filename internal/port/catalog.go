package port

import (
	"context"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

type Catalog interface {
	// GetProduct retrieves product metadata and stock by ID. Returns
	// (nil, nil) when the product does not exist.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}
