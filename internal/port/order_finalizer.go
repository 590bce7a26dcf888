package port

import (
	"context"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

type OrderFinalizer interface {
	// Finalize converts a committed hold into a permanent order and returns
	// the public order ID.
	Finalize(ctx context.Context, hold *domain.Hold) (string, error)
}
