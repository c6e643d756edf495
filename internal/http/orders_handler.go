package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error)
	ListOrdersForUser(ctx context.Context, requestedUserID, callerUserID string) ([]*domain.Order, error)
	GetOrder(ctx context.Context, orderID, callerUserID string) (*domain.OrderDetail, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type CreateOrderRequestDTO struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Notes         string               `json:"notes"`
}

// POST /api/v1/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.CreateOrder(ctx, domain.CheckoutRequest{
		UserID:        userID,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// GET /api/v1/orders?customerId=
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	requested := r.URL.Query().Get("customerId")
	if requested == "" {
		requested = userID
	}

	orders, err := h.orders.ListOrdersForUser(ctx, requested, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{orderId}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "orderId is required")
		return
	}

	detail, err := h.orders.GetOrder(ctx, orderID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}
