package port

import (
	"context"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

type PaymentGateway interface {
	// CreateOrder registers the pending payment with the external provider
	// and returns its order reference.
	CreateOrder(ctx context.Context, amountPaise int64, receipt string) (string, error)

	// VerifyPayment checks the proof the client returned after checkout.
	// A replayed payment ID verifies false.
	VerifyPayment(ctx context.Context, proof domain.PaymentProof) (bool, error)
}
