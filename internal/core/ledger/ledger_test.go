package ledger

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

func li(productID string, quantity int) domain.LineItem {
	return domain.LineItem{ProductID: productID, Quantity: quantity}
}

func items(lineItems ...domain.LineItem) []domain.LineItem {
	return lineItems
}

func TestTryReserve_Success(t *testing.T) {
	l := New()
	l.SetStock("item-1", 10)

	token, err := l.TryReserve(items(li("item-1", 3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Error("expected non-empty token")
	}

	if got := l.Reserved("item-1"); got != 3 {
		t.Errorf("expected reserved 3, got %d", got)
	}
	if got := l.Available("item-1"); got != 7 {
		t.Errorf("expected available 7, got %d", got)
	}
	if got := l.Stock("item-1"); got != 10 {
		t.Errorf("expected total 10, got %d", got)
	}
}

func TestTryReserve_AllOrNothing(t *testing.T) {
	l := New()
	l.SetStock("item-1", 10)
	l.SetStock("item-2", 1)

	// item-2 falls short, so item-1 must not be touched either.
	_, err := l.TryReserve(items(li("item-1", 2), li("item-2", 5)))
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	var insErr *domain.InsufficientStockError
	if !errors.As(err, &insErr) {
		t.Fatalf("expected InsufficientStockError, got %T", err)
	}
	if len(insErr.Items) != 1 {
		t.Fatalf("expected 1 failing item, got %d", len(insErr.Items))
	}
	if insErr.Items[0].ProductID != "item-2" || insErr.Items[0].Available != 1 {
		t.Errorf("unexpected failing item: %+v", insErr.Items[0])
	}

	if got := l.Reserved("item-1"); got != 0 {
		t.Errorf("expected no partial reservation, reserved=%d", got)
	}
	if got := l.Reserved("item-2"); got != 0 {
		t.Errorf("expected no partial reservation, reserved=%d", got)
	}
}

func TestTryReserve_UnknownProduct(t *testing.T) {
	l := New()

	_, err := l.TryReserve(items(li("missing", 1)))
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	var insErr *domain.InsufficientStockError
	if !errors.As(err, &insErr) {
		t.Fatalf("expected InsufficientStockError, got %T", err)
	}
	if insErr.Items[0].Available != 0 {
		t.Errorf("expected available 0, got %d", insErr.Items[0].Available)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	l := New()
	l.SetStock("item-1", 5)

	token, err := l.TryReserve(items(li("item-1", 2)))
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// Both the cancel path and the expiry path may release the same token.
	l.Release(token)
	l.Release(token)

	if got := l.Reserved("item-1"); got != 0 {
		t.Errorf("expected reserved 0 after double release, got %d", got)
	}
	if got := l.Stock("item-1"); got != 5 {
		t.Errorf("expected total unchanged at 5, got %d", got)
	}
}

func TestCommit(t *testing.T) {
	l := New()
	l.SetStock("item-1", 5)

	token, err := l.TryReserve(items(li("item-1", 2)))
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	if err := l.Commit(token); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if got := l.Stock("item-1"); got != 3 {
		t.Errorf("expected total 3 after commit, got %d", got)
	}
	if got := l.Reserved("item-1"); got != 0 {
		t.Errorf("expected reserved 0 after commit, got %d", got)
	}

	// A committed token can be neither committed again nor turned into a
	// release that would resurrect stock.
	if err := l.Commit(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken on double commit, got: %v", err)
	}
	l.Release(token)
	if got := l.Stock("item-1"); got != 3 {
		t.Errorf("release after commit changed total to %d", got)
	}
	if got := l.Reserved("item-1"); got != 0 {
		t.Errorf("release after commit changed reserved to %d", got)
	}
}

func TestCommit_AfterRelease(t *testing.T) {
	l := New()
	l.SetStock("item-1", 5)

	token, err := l.TryReserve(items(li("item-1", 2)))
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	l.Release(token)

	if err := l.Commit(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got: %v", err)
	}
	if got := l.Stock("item-1"); got != 5 {
		t.Errorf("expected total 5, got %d", got)
	}
}

func TestTryReserve_ConcurrentBound(t *testing.T) {
	// stock=5, 3 concurrent requests for qty=3: at most floor(5/3)=1 wins.
	l := New()
	l.SetStock("item-1", 5)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.TryReserve(items(li("item-1", 3))); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
	if got := l.Reserved("item-1"); got != 3 {
		t.Errorf("expected reserved 3, got %d", got)
	}
}

func TestTryReserve_ConcurrentExactDepletion(t *testing.T) {
	l := New()
	initialStock := 20
	totalRequests := 50
	l.SetStock("item-1", initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.TryReserve(items(li("item-1", 1))); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if got := l.Available("item-1"); got != 0 {
		t.Errorf("expected available 0, got %d", got)
	}
	if got := l.Reserved("item-1"); got != initialStock {
		t.Errorf("expected reserved %d, got %d", initialStock, got)
	}
}

func TestTryReserve_MultiItemNoDeadlock(t *testing.T) {
	// Opposite item orders in the requests; sorted lock acquisition must not
	// deadlock and counters must stay exact.
	l := New()
	l.SetStock("item-a", 100)
	l.SetStock("item-b", 100)

	var wg sync.WaitGroup
	tokens := make(chan string, 100)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, err := l.TryReserve(items(li("item-a", 1), li("item-b", 1))); err == nil {
				tokens <- token
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, err := l.TryReserve(items(li("item-b", 1), li("item-a", 1))); err == nil {
				tokens <- token
			}
		}()
	}
	wg.Wait()
	close(tokens)

	if got := l.Reserved("item-a"); got != 100 {
		t.Errorf("expected reserved 100 for item-a, got %d", got)
	}
	if got := l.Reserved("item-b"); got != 100 {
		t.Errorf("expected reserved 100 for item-b, got %d", got)
	}

	for token := range tokens {
		l.Release(token)
	}
	if got := l.Reserved("item-a"); got != 0 {
		t.Errorf("expected reserved 0 after releases, got %d", got)
	}
	if got := l.Reserved("item-b"); got != 0 {
		t.Errorf("expected reserved 0 after releases, got %d", got)
	}
}

func TestConcurrentReserveRelease_InvariantHolds(t *testing.T) {
	l := New()
	l.SetStock("item-1", 10)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := l.TryReserve(items(li("item-1", 2)))
			if err != nil {
				return
			}
			l.Release(token)
		}()
	}
	wg.Wait()

	if got := l.Reserved("item-1"); got != 0 {
		t.Errorf("expected reserved 0, got %d", got)
	}
	if got := l.Stock("item-1"); got != 10 {
		t.Errorf("expected total 10, got %d", got)
	}
}
