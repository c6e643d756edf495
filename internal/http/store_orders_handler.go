package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/go-chi/chi/v5"
)

type StoreOrderService interface {
	ListOrdersForStore(ctx context.Context, storeID string, filter domain.StoreOrderFilter) ([]domain.StoreOrderSummary, error)
	UpdateOrderStatus(ctx context.Context, storeID, orderID string, next domain.OrderStatus, callerOwnerID string) (*domain.Order, error)
}

type StoreOrdersHandler struct {
	orders  StoreOrderService
	timeout time.Duration
}

func NewStoreOrdersHandler(orders StoreOrderService, timeout time.Duration) *StoreOrdersHandler {
	return &StoreOrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

// GET /api/v1/stores/orders/{storeId}?orderStatus=pending|processing
func (h *StoreOrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	storeID := chi.URLParam(r, "storeId")
	if storeID != userID {
		respondError(w, http.StatusForbidden, "permission_denied", "caller does not own this store")
		return
	}

	filter := domain.StoreOrderFilter(r.URL.Query().Get("orderStatus"))
	summaries, err := h.orders.ListOrdersForStore(ctx, storeID, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summaries)
}

// PATCH /api/v1/stores/orders/{storeId}/{orderId}/status
func (h *StoreOrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.UpdateOrderStatus(ctx, chi.URLParam(r, "storeId"), chi.URLParam(r, "orderId"), req.Status, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
