package ledger

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

// Ledger owns the per-product stock counters. Every mutation of totalStock or
// reservedQuantity in the system goes through TryReserve, Release or Commit.
//
// Each product has its own lock, so reservations touching disjoint products
// run in parallel. Multi-item reservations take the product locks in sorted
// productID order, which rules out deadlock between concurrent multi-item
// calls.
type Ledger struct {
	mu       sync.RWMutex
	products map[string]*productEntry

	resMu        sync.Mutex
	reservations map[string]*reservation
}

type productEntry struct {
	mu       sync.Mutex
	total    int
	reserved int
}

type resState int

const (
	resActive resState = iota
	resReleased
	resCommitted
)

type reservation struct {
	items []domain.LineItem
	state resState
}

func New() *Ledger {
	return &Ledger{
		products:     make(map[string]*productEntry),
		reservations: make(map[string]*reservation),
	}
}

// SetStock seeds or overwrites the total stock for a product. Existing
// reservations are kept as-is; seeding happens before the ledger takes
// traffic.
func (l *Ledger) SetStock(productID string, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.products[productID]
	if !ok {
		entry = &productEntry{}
		l.products[productID] = entry
	}
	entry.mu.Lock()
	entry.total = total
	entry.mu.Unlock()
}

func (l *Ledger) entry(productID string) *productEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.products[productID]
}

// TryReserve atomically reserves every line item or none of them. The
// returned token identifies the reservation for a later Release or Commit.
// On shortfall it returns *domain.InsufficientStockError listing every item
// that could not be satisfied, with the quantity that was available.
func (l *Ledger) TryReserve(items []domain.LineItem) (string, error) {
	sorted := make([]domain.LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	entries := make([]*productEntry, len(sorted))
	for i, item := range sorted {
		entry := l.entry(item.ProductID)
		if entry == nil {
			// Unknown to the ledger means nothing is available.
			return "", &domain.InsufficientStockError{Items: []domain.InsufficientItem{
				{ProductID: item.ProductID, Requested: item.Quantity, Available: 0},
			}}
		}
		entries[i] = entry
	}

	for _, entry := range entries {
		entry.mu.Lock()
	}
	defer func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
	}()

	var short []domain.InsufficientItem
	for i, item := range sorted {
		available := entries[i].total - entries[i].reserved
		if available < item.Quantity {
			short = append(short, domain.InsufficientItem{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: available,
			})
		}
	}
	if len(short) > 0 {
		return "", &domain.InsufficientStockError{Items: short}
	}

	for i, item := range sorted {
		entries[i].reserved += item.Quantity
	}

	token := uuid.NewString()
	l.resMu.Lock()
	l.reservations[token] = &reservation{items: sorted, state: resActive}
	l.resMu.Unlock()

	return token, nil
}

// claim flips an active reservation into the given terminal state. Exactly
// one caller wins; everyone else sees nil.
func (l *Ledger) claim(token string, to resState) *reservation {
	l.resMu.Lock()
	defer l.resMu.Unlock()

	res, ok := l.reservations[token]
	if !ok || res.state != resActive {
		return nil
	}
	res.state = to
	return res
}

// Release returns the reserved quantities to the available pool. Releasing a
// token that was already released or committed is a no-op: both the cancel
// path and the expiry path may call it for the same hold.
func (l *Ledger) Release(token string) {
	res := l.claim(token, resReleased)
	if res == nil {
		return
	}
	for _, item := range res.items {
		entry := l.entry(item.ProductID)
		entry.mu.Lock()
		entry.reserved -= item.Quantity
		entry.mu.Unlock()
	}
}

// Commit consumes the reservation as a permanent sale: reserved and total
// both drop by the reserved quantity. Returns ErrInvalidToken when the
// reservation was already released or committed.
func (l *Ledger) Commit(token string) error {
	res := l.claim(token, resCommitted)
	if res == nil {
		return domain.ErrInvalidToken
	}
	for _, item := range res.items {
		entry := l.entry(item.ProductID)
		entry.mu.Lock()
		entry.reserved -= item.Quantity
		entry.total -= item.Quantity
		entry.mu.Unlock()
	}
	return nil
}

// Stock returns the total saleable quantity for a product.
func (l *Ledger) Stock(productID string) int {
	entry := l.entry(productID)
	if entry == nil {
		return 0
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.total
}

// Reserved returns the quantity currently held for a product.
func (l *Ledger) Reserved(productID string) int {
	entry := l.entry(productID)
	if entry == nil {
		return 0
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.reserved
}

// Available returns total minus reserved for a product.
func (l *Ledger) Available(productID string) int {
	entry := l.entry(productID)
	if entry == nil {
		return 0
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.total - entry.reserved
}
