package domain

import "time"

type HoldStatus string

const (
	HoldStatusHold      HoldStatus = "hold"
	HoldStatusCommitted HoldStatus = "committed"
	HoldStatusCancelled HoldStatus = "cancelled"
	HoldStatusExpired   HoldStatus = "expired"
)

// Terminal reports whether a hold in this status can never change again.
func (s HoldStatus) Terminal() bool {
	return s == HoldStatusCommitted || s == HoldStatusCancelled || s == HoldStatusExpired
}

type LineItem struct {
	ProductID string
	Quantity  int
}

type Address struct {
	Name        string
	PhoneNumber string
	Line1       string
	City        string
	PostalCode  string
}

// Valid checks the fields the checkout flow depends on. Street-level
// verification is the caller's problem.
func (a *Address) Valid() bool {
	if a == nil {
		return false
	}
	return a.Name != "" && a.PhoneNumber != "" && a.Line1 != ""
}

// Hold is one checkout attempt: the reserved line items plus the status
// machine that decides who releases or consumes the reservation. Holds are
// never deleted; terminal records stay for audit and status queries.
type Hold struct {
	LocalOrderID     string
	ExternalOrderRef string
	ReservationToken string
	Items            []LineItem
	AmountPaise      int64
	Address          Address
	Status           HoldStatus
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Expired reports whether the hold's deadline has passed at the given time.
// It says nothing about the stored status; callers pair it with a Transition.
func (h *Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

type PaymentProof struct {
	ExternalOrderRef string
	PaymentID        string
	Signature        string
}
