package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rl1809/stock-hold/internal/core/domain"
	"github.com/rl1809/stock-hold/internal/core/service"
)

type HTTPHandler struct {
	holdService *service.HoldService
}

func NewHTTPHandler(holdService *service.HoldService) *HTTPHandler {
	return &HTTPHandler{holdService: holdService}
}

type lineItemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type addressPayload struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Line1       string `json:"line1"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
}

type createHoldRequest struct {
	Items   []lineItemPayload `json:"items"`
	Address *addressPayload   `json:"address"`
}

type createHoldResponse struct {
	OrderID             string    `json:"orderId"`
	LocalOrderID        string    `json:"localOrderId"`
	ExpiresAt           time.Time `json:"expiresAt"`
	HoldDurationSeconds int       `json:"holdDurationSeconds"`
	AmountPaise         int64     `json:"amountPaise"`
}

type insufficientItemPayload struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type errorResponse struct {
	Message           string                    `json:"message"`
	InsufficientStock bool                      `json:"insufficientStock,omitempty"`
	InsufficientItems []insufficientItemPayload `json:"insufficientItems,omitempty"`
}

func (h *HTTPHandler) CreateHold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	var address *domain.Address
	if req.Address != nil {
		address = &domain.Address{
			Name:        req.Address.Name,
			PhoneNumber: req.Address.PhoneNumber,
			Line1:       req.Address.Line1,
			City:        req.Address.City,
			PostalCode:  req.Address.PostalCode,
		}
	}

	res, err := h.holdService.CreateHold(r.Context(), items, address)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createHoldResponse{
		OrderID:             res.ExternalOrderRef,
		LocalOrderID:        res.LocalOrderID,
		ExpiresAt:           res.ExpiresAt,
		HoldDurationSeconds: res.HoldDurationSeconds,
		AmountPaise:         res.AmountPaise,
	})
}

type holdStatusResponse struct {
	Status           string `json:"status"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

func (h *HTTPHandler) HoldStatus(w http.ResponseWriter, r *http.Request) {
	localOrderID := r.URL.Query().Get("localOrderId")
	if localOrderID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "localOrderId required"})
		return
	}

	res, err := h.holdService.GetStatus(r.Context(), localOrderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, holdStatusResponse{
		Status:           string(res.Status),
		RemainingSeconds: res.RemainingSeconds,
	})
}

type holdIDRequest struct {
	LocalOrderID string `json:"localOrderId"`
}

func (h *HTTPHandler) CancelHold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req holdIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LocalOrderID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "localOrderId required"})
		return
	}

	if err := h.holdService.CancelHold(r.Context(), req.LocalOrderID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type commitHoldRequest struct {
	LocalOrderID     string `json:"localOrderId"`
	ExternalOrderRef string `json:"externalOrderRef"`
	PaymentID        string `json:"paymentId"`
	Signature        string `json:"signature"`
}

type commitHoldResponse struct {
	Success          bool   `json:"success"`
	PermanentOrderID string `json:"permanentOrderId"`
}

func (h *HTTPHandler) CommitHold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req commitHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LocalOrderID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "localOrderId required"})
		return
	}

	res, err := h.holdService.CommitHold(r.Context(), req.LocalOrderID, domain.PaymentProof{
		ExternalOrderRef: req.ExternalOrderRef,
		PaymentID:        req.PaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commitHoldResponse{
		Success:          true,
		PermanentOrderID: res.PermanentOrderID,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	var insErr *domain.InsufficientStockError
	if errors.As(err, &insErr) {
		items := make([]insufficientItemPayload, 0, len(insErr.Items))
		for _, it := range insErr.Items {
			items = append(items, insufficientItemPayload{
				ProductID: it.ProductID,
				Requested: it.Requested,
				Available: it.Available,
			})
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message:           "insufficient stock",
			InsufficientStock: true,
			InsufficientItems: items,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidProduct),
		errors.Is(err, domain.ErrInvalidPayment):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrHoldNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "hold not found"})
	case errors.Is(err, domain.ErrNotInHoldState),
		errors.Is(err, domain.ErrAlreadyResolved):
		writeJSON(w, http.StatusConflict, errorResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrGatewayFailure):
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: "payment gateway failure"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
