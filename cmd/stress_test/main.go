package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/stock-hold/internal/adapter/storage"
	"github.com/rl1809/stock-hold/internal/core/domain"
	"github.com/rl1809/stock-hold/internal/core/ledger"
	"github.com/rl1809/stock-hold/internal/core/service"
)

const (
	productID     = "stress-test-item"
	initialStock  = 20
	totalRequests = 50
)

type stubCatalog struct{}

func (stubCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id != productID {
		return nil, nil
	}
	return &domain.Product{ID: id, Name: "Stress Test Item", PricePaise: 99900, Stock: initialStock}, nil
}

type stubGateway struct{ counter atomic.Int64 }

func (g *stubGateway) CreateOrder(ctx context.Context, amountPaise int64, receipt string) (string, error) {
	return fmt.Sprintf("order_ext_%d", g.counter.Add(1)), nil
}

func (g *stubGateway) VerifyPayment(ctx context.Context, proof domain.PaymentProof) (bool, error) {
	return true, nil
}

func main() {
	ctx := context.Background()

	stockLedger := ledger.New()
	stockLedger.SetStock(productID, initialStock)

	svc := service.NewHoldService(service.Config{
		Ledger:    stockLedger,
		Holds:     storage.NewMemoryHoldRepository(),
		Catalog:   stubCatalog{},
		Gateway:   &stubGateway{},
		Finalizer: storage.NewMemoryOrderFinalizer(),
		Logger:    zerolog.Nop(),
	})

	address := &domain.Address{
		Name:        "Stress Tester",
		PhoneNumber: "9999999999",
		Line1:       "1 Load Lane",
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32
	holdIDs := make(chan string, totalRequests)

	// Spawn concurrent checkout attempts
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			res, err := svc.CreateHold(ctx, []domain.LineItem{{ProductID: productID, Quantity: 1}}, address)
			if err == nil {
				successCount.Add(1)
				holdIDs <- res.LocalOrderID
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	close(holdIDs)
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d holds succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	if got := stockLedger.Available(productID); got == 0 {
		fmt.Println("PASS: Available stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected available 0, got %d\n", got)
	}

	// Cancel every hold and verify the pool refills exactly.
	for id := range holdIDs {
		if err := svc.CancelHold(ctx, id); err != nil {
			fmt.Printf("FAIL: cancel %s: %v\n", id, err)
		}
	}

	if got := stockLedger.Available(productID); got == initialStock {
		fmt.Printf("PASS: Available stock restored to %d after cancellations\n", initialStock)
	} else {
		fmt.Printf("FAIL: Expected available %d, got %d\n", initialStock, got)
	}
}
