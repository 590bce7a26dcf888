package storage

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

// MemoryHoldRepository keeps hold records in process memory. It is the
// authoritative store for a single-instance deployment and the workhorse of
// the test suites; the MySQL adapter mirrors the same contract for durable
// audit.
type MemoryHoldRepository struct {
	mu    sync.Mutex
	holds map[string]*domain.Hold
}

func NewMemoryHoldRepository() *MemoryHoldRepository {
	return &MemoryHoldRepository{holds: make(map[string]*domain.Hold)}
}

func (m *MemoryHoldRepository) Create(ctx context.Context, hold *domain.Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hold.LocalOrderID == "" {
		hold.LocalOrderID = uuid.NewString()
	}
	stored := cloneHold(hold)
	m.holds[stored.LocalOrderID] = stored
	return nil
}

func (m *MemoryHoldRepository) Get(ctx context.Context, localOrderID string) (*domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[localOrderID]
	if !ok {
		return nil, domain.ErrHoldNotFound
	}
	return cloneHold(hold), nil
}

func (m *MemoryHoldRepository) Transition(ctx context.Context, localOrderID string, from, to domain.HoldStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[localOrderID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	if hold.Status != from {
		return domain.ErrStatusConflict
	}
	hold.Status = to
	return nil
}

func (m *MemoryHoldRepository) SetExternalRef(ctx context.Context, localOrderID, externalRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[localOrderID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	hold.ExternalOrderRef = externalRef
	return nil
}

func (m *MemoryHoldRepository) FindExpired(ctx context.Context, now time.Time) ([]*domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []*domain.Hold
	for _, hold := range m.holds {
		if hold.Status == domain.HoldStatusHold && !now.Before(hold.ExpiresAt) {
			expired = append(expired, cloneHold(hold))
		}
	}
	return expired, nil
}

// cloneHold copies a record so callers never alias the stored value.
func cloneHold(h *domain.Hold) *domain.Hold {
	c := *h
	c.Items = make([]domain.LineItem, len(h.Items))
	copy(c.Items, h.Items)
	return &c
}

// MemoryOrderFinalizer records permanent orders in memory, assigning each a
// short public order ID.
type MemoryOrderFinalizer struct {
	mu     sync.Mutex
	orders map[string]*domain.Hold
}

func NewMemoryOrderFinalizer() *MemoryOrderFinalizer {
	return &MemoryOrderFinalizer{orders: make(map[string]*domain.Hold)}
}

func (m *MemoryOrderFinalizer) Finalize(ctx context.Context, hold *domain.Hold) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := newPublicOrderID()
	m.orders[id] = cloneHold(hold)
	return id, nil
}

// Orders returns the number of finalized orders.
func (m *MemoryOrderFinalizer) Orders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// newPublicOrderID builds a short uppercase identifier fit for receipts and
// customer support conversations.
func newPublicOrderID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uuid.NewString()[:12]
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf[:])[:12]
}
