package port

import (
	"context"
	"time"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

type HoldRepository interface {
	// Create persists a new hold. The hold arrives with status hold and a
	// LocalOrderID already assigned.
	Create(ctx context.Context, hold *domain.Hold) error

	// Get retrieves a hold by local order ID, or domain.ErrHoldNotFound.
	Get(ctx context.Context, localOrderID string) (*domain.Hold, error)

	// Transition is a compare-and-set on status: it succeeds only when the
	// current status equals from, otherwise domain.ErrStatusConflict.
	// Exactly one of cancel, commit and expiry wins any race through here.
	Transition(ctx context.Context, localOrderID string, from, to domain.HoldStatus) error

	// SetExternalRef records the payment collaborator's order reference.
	SetExternalRef(ctx context.Context, localOrderID, externalRef string) error

	// FindExpired returns holds still in status hold whose deadline is at or
	// before now.
	FindExpired(ctx context.Context, now time.Time) ([]*domain.Hold, error)
}
