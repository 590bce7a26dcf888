package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rl1809/stock-hold/internal/core/domain"
	"github.com/rl1809/stock-hold/internal/port"
)

const requestTimeout = 10 * time.Second

// RazorpayAdapter talks to a Razorpay-compatible gateway. Order creation is
// a plain authenticated POST; payment verification is an HMAC-SHA256 check
// over "<orderRef>|<paymentID>" plus a replay guard on the payment ID.
type RazorpayAdapter struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
	idem      port.IdempotencyStore
}

func NewRazorpayAdapter(baseURL, keyID, keySecret string, idem port.IdempotencyStore) *RazorpayAdapter {
	return &RazorpayAdapter{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: requestTimeout},
		idem:      idem,
	}
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

func (a *RazorpayAdapter) CreateOrder(ctx context.Context, amountPaise int64, receipt string) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:         amountPaise,
		Currency:       "INR",
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.keyID, a.keySecret)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create order: gateway returned %d", resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("gateway returned empty order id")
	}
	return out.ID, nil
}

func (a *RazorpayAdapter) VerifyPayment(ctx context.Context, proof domain.PaymentProof) (bool, error) {
	if proof.ExternalOrderRef == "" || proof.PaymentID == "" || proof.Signature == "" {
		return false, nil
	}

	mac := hmac.New(sha256.New, []byte(a.keySecret))
	mac.Write([]byte(proof.ExternalOrderRef + "|" + proof.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(proof.Signature)) {
		return false, nil
	}

	// Same payment ID seen before means a replay, regardless of signature.
	fresh, err := a.idem.SetIdempotency(ctx, "payment:"+proof.PaymentID)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	return fresh, nil
}
