package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/stock-hold/internal/core/domain"
	"github.com/rl1809/stock-hold/internal/core/ledger"
	"github.com/rl1809/stock-hold/internal/port"
)

// DefaultHoldTTL is how long a checkout may sit unpaid before its
// reservation is returned to the pool.
const DefaultHoldTTL = 900 * time.Second

// HoldService is the single entry point for creating, cancelling and
// committing stock holds. It composes the ledger (counters) and the hold
// repository (status machine): the repository's compare-and-set transition
// decides which actor resolves a hold, and only the winner touches the
// ledger.
type HoldService struct {
	ledger    *ledger.Ledger
	holds     port.HoldRepository
	catalog   port.Catalog
	gateway   port.PaymentGateway
	finalizer port.OrderFinalizer
	holdTTL   time.Duration
	now       func() time.Time
	logger    zerolog.Logger
	metrics   *Metrics
}

type Config struct {
	Ledger    *ledger.Ledger
	Holds     port.HoldRepository
	Catalog   port.Catalog
	Gateway   port.PaymentGateway
	Finalizer port.OrderFinalizer
	HoldTTL   time.Duration
	Now       func() time.Time
	Logger    zerolog.Logger
	Metrics   *Metrics
}

func NewHoldService(cfg Config) *HoldService {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = DefaultHoldTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	return &HoldService{
		ledger:    cfg.Ledger,
		holds:     cfg.Holds,
		catalog:   cfg.Catalog,
		gateway:   cfg.Gateway,
		finalizer: cfg.Finalizer,
		holdTTL:   cfg.HoldTTL,
		now:       cfg.Now,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

type CreateHoldResult struct {
	LocalOrderID        string
	ExternalOrderRef    string
	ExpiresAt           time.Time
	HoldDurationSeconds int
	AmountPaise         int64
}

type StatusResult struct {
	Status           domain.HoldStatus
	RemainingSeconds int
}

type CommitResult struct {
	PermanentOrderID string
}

// CreateHold validates the cart, reserves stock for every line item
// atomically, persists the hold and registers the pending payment with the
// gateway. The gateway call happens after the reservation is secured; if it
// fails the reservation is released again so no stock is left dangling.
func (s *HoldService) CreateHold(ctx context.Context, items []domain.LineItem, address *domain.Address) (*CreateHoldResult, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if !address.Valid() {
		return nil, domain.ErrInvalidAddress
	}

	merged, err := mergeLineItems(items)
	if err != nil {
		return nil, err
	}

	var amount int64
	for _, item := range merged {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("catalog lookup %s: %w", item.ProductID, err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProduct, item.ProductID)
		}
		amount += product.PricePaise * int64(item.Quantity)
	}

	token, err := s.ledger.TryReserve(merged)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.InsufficientStock.Inc()
		}
		return nil, err
	}

	now := s.now()
	hold := &domain.Hold{
		LocalOrderID:     uuid.NewString(),
		ReservationToken: token,
		Items:            merged,
		AmountPaise:      amount,
		Address:          *address,
		Status:           domain.HoldStatusHold,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.holdTTL),
	}

	if err := s.holds.Create(ctx, hold); err != nil {
		s.ledger.Release(token)
		return nil, fmt.Errorf("persist hold: %w", err)
	}

	receipt := "rcpt_" + strconv.FormatInt(now.UnixNano(), 36) + "_" + hold.LocalOrderID[:8]
	externalRef, err := s.gateway.CreateOrder(ctx, amount, receipt)
	if err != nil {
		// Compensate: the hold must never stay reserved without a
		// caller-visible order identity.
		s.ledger.Release(token)
		if terr := s.holds.Transition(ctx, hold.LocalOrderID, domain.HoldStatusHold, domain.HoldStatusCancelled); terr != nil {
			s.logger.Error().Err(terr).Str("local_order_id", hold.LocalOrderID).
				Msg("failed to cancel hold after gateway failure")
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}

	if err := s.holds.SetExternalRef(ctx, hold.LocalOrderID, externalRef); err != nil {
		s.logger.Error().Err(err).Str("local_order_id", hold.LocalOrderID).
			Msg("failed to record external order ref")
	}

	s.metrics.HoldsCreated.Inc()
	s.logger.Info().
		Str("local_order_id", hold.LocalOrderID).
		Str("external_ref", externalRef).
		Int64("amount_paise", amount).
		Time("expires_at", hold.ExpiresAt).
		Msg("hold created")

	return &CreateHoldResult{
		LocalOrderID:        hold.LocalOrderID,
		ExternalOrderRef:    externalRef,
		ExpiresAt:           hold.ExpiresAt,
		HoldDurationSeconds: int(s.holdTTL / time.Second),
		AmountPaise:         amount,
	}, nil
}

// GetStatus reports the hold's status and remaining lifetime. A hold whose
// deadline has passed reports expired even before the reaper runs, and the
// read itself resolves it so the stock is not withheld any longer.
func (s *HoldService) GetStatus(ctx context.Context, localOrderID string) (*StatusResult, error) {
	hold, err := s.holds.Get(ctx, localOrderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if hold.Status == domain.HoldStatusHold && hold.Expired(now) {
		s.resolveExpired(ctx, hold)
		return &StatusResult{Status: domain.HoldStatusExpired}, nil
	}

	remaining := 0
	if hold.Status == domain.HoldStatusHold {
		remaining = int(hold.ExpiresAt.Sub(now) / time.Second)
	}
	return &StatusResult{Status: hold.Status, RemainingSeconds: remaining}, nil
}

// CancelHold moves a hold to cancelled and returns its reservation to the
// pool. A hold that already left the hold state, including an earlier cancel
// of the same ID, is rejected with ErrNotInHoldState.
func (s *HoldService) CancelHold(ctx context.Context, localOrderID string) error {
	hold, err := s.holds.Get(ctx, localOrderID)
	if err != nil {
		return err
	}

	if err := s.holds.Transition(ctx, localOrderID, domain.HoldStatusHold, domain.HoldStatusCancelled); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			return fmt.Errorf("%w: status is %s", domain.ErrNotInHoldState, hold.Status)
		}
		return fmt.Errorf("cancel transition: %w", err)
	}

	s.ledger.Release(hold.ReservationToken)
	s.metrics.HoldsCancelled.Inc()
	s.logger.Info().Str("local_order_id", localOrderID).Msg("hold cancelled")
	return nil
}

// CommitHold verifies the payment proof, consumes the reservation as a
// permanent sale and hands the hold to the order finalizer. Late webhook
// replays racing the reaper lose the status CAS and get ErrAlreadyResolved.
func (s *HoldService) CommitHold(ctx context.Context, localOrderID string, proof domain.PaymentProof) (*CommitResult, error) {
	hold, err := s.holds.Get(ctx, localOrderID)
	if err != nil {
		return nil, err
	}

	if hold.Status == domain.HoldStatusHold && hold.Expired(s.now()) {
		s.resolveExpired(ctx, hold)
		return nil, fmt.Errorf("%w: hold expired", domain.ErrAlreadyResolved)
	}

	verified, err := s.gateway.VerifyPayment(ctx, proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}
	if !verified {
		return nil, domain.ErrInvalidPayment
	}

	if err := s.holds.Transition(ctx, localOrderID, domain.HoldStatusHold, domain.HoldStatusCommitted); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: status is %s", domain.ErrAlreadyResolved, hold.Status)
		}
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	if err := s.ledger.Commit(hold.ReservationToken); err != nil {
		// The CAS above makes this path unreachable unless the token was
		// corrupted; surface it loudly rather than mask a double sale.
		s.logger.Error().Err(err).Str("local_order_id", localOrderID).Msg("ledger commit failed after status CAS")
		return nil, fmt.Errorf("ledger commit: %w", err)
	}

	permanentID, err := s.finalizer.Finalize(ctx, hold)
	if err != nil {
		return nil, fmt.Errorf("finalize order: %w", err)
	}

	s.metrics.HoldsCommitted.Inc()
	s.logger.Info().
		Str("local_order_id", localOrderID).
		Str("permanent_order_id", permanentID).
		Msg("hold committed")
	return &CommitResult{PermanentOrderID: permanentID}, nil
}

// SweepExpired resolves every hold past its deadline. Both the reaper loop
// and lazy status reads converge on resolveExpired, so a hold's reservation
// is released exactly once no matter which path gets there first.
func (s *HoldService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.holds.FindExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("find expired holds: %w", err)
	}

	released := 0
	for _, hold := range expired {
		if s.resolveExpired(ctx, hold) {
			released++
		}
	}
	return released, nil
}

// resolveExpired attempts the hold->expired transition and releases the
// reservation only when it wins. Losing the CAS means cancel or commit got
// there first; that is a benign race, not a failure.
func (s *HoldService) resolveExpired(ctx context.Context, hold *domain.Hold) bool {
	err := s.holds.Transition(ctx, hold.LocalOrderID, domain.HoldStatusHold, domain.HoldStatusExpired)
	if err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			s.logger.Debug().Str("local_order_id", hold.LocalOrderID).Msg("expiry lost status race")
		} else {
			s.logger.Error().Err(err).Str("local_order_id", hold.LocalOrderID).Msg("expiry transition failed")
		}
		return false
	}

	s.ledger.Release(hold.ReservationToken)
	s.metrics.HoldsExpired.Inc()
	s.logger.Info().Str("local_order_id", hold.LocalOrderID).Msg("hold expired, reservation released")
	return true
}

// mergeLineItems collapses duplicate product entries and rejects
// non-positive quantities. The result is sorted for deterministic storage.
func mergeLineItems(items []domain.LineItem) ([]domain.LineItem, error) {
	byProduct := make(map[string]int, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %q quantity %d", domain.ErrInvalidProduct, item.ProductID, item.Quantity)
		}
		byProduct[item.ProductID] += item.Quantity
	}

	merged := make([]domain.LineItem, 0, len(byProduct))
	for id, qty := range byProduct {
		merged = append(merged, domain.LineItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}
