package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.CartView, error)
	AddItem(ctx context.Context, userID, foodID string, quantity int) error
	UpdateItemQuantity(ctx context.Context, userID, foodID string, quantity int) error
	RemoveItem(ctx context.Context, userID, foodID string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	FoodID   string `json:"foodId"`
	Quantity int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// GET /api/v1/carts
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	view, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/carts
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.FoodID == "" {
		respondError(w, http.StatusBadRequest, "invalid_food_id", "foodId is required")
		return
	}

	if err := h.carts.AddItem(ctx, userID, req.FoodID, req.Quantity); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.respondWithCart(ctx, w, r, userID, http.StatusCreated)
}

// PATCH /api/v1/carts/items/{foodId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	foodID := chi.URLParam(r, "foodId")
	if foodID == "" {
		respondError(w, http.StatusBadRequest, "invalid_food_id", "foodId is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.UpdateItemQuantity(ctx, userID, foodID, req.Quantity); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.respondWithCart(ctx, w, r, userID, http.StatusOK)
}

// DELETE /api/v1/carts/items/{foodId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	foodID := chi.URLParam(r, "foodId")
	if foodID == "" {
		respondError(w, http.StatusBadRequest, "invalid_food_id", "foodId is required")
		return
	}

	if err := h.carts.RemoveItem(ctx, userID, foodID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.respondWithCart(ctx, w, r, userID, http.StatusOK)
}

func (h *CartHandler) respondWithCart(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string, status int) {
	view, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, status, view)
}
