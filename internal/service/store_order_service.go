package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/fjod/go_foodcart/internal/repository"
	"github.com/google/uuid"
)

// StoreOrderService is the store owner's side of the order lifecycle.
// A store is identified by its owner's user id.
type StoreOrderService struct {
	orders repository.OrderRepository
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewStoreOrderService(orders repository.OrderRepository, log *slog.Logger) *StoreOrderService {
	return &StoreOrderService{
		orders: orders,
		log:    log.With("component", "store_order_service"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ListOrdersForStore returns the store's orders newest first. No orders is an empty list.
func (s *StoreOrderService) ListOrdersForStore(ctx context.Context, storeID string, filter domain.StoreOrderFilter) ([]domain.StoreOrderSummary, error) {
	if !filter.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFilter, filter)
	}

	orders, err := s.orders.ListOrdersByStoreID(ctx, storeID, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.StoreOrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, domain.NewStoreOrderSummary(o))
	}
	return summaries, nil
}

// UpdateOrderStatus advances an order along the status graph. The write only
// lands if the order is still in the status it was read in.
func (s *StoreOrderService) UpdateOrderStatus(ctx context.Context, storeID, orderID string, next domain.OrderStatus, callerOwnerID string) (*domain.Order, error) {
	if storeID != callerOwnerID {
		return nil, fmt.Errorf("%w: caller does not own store %s", domain.ErrForbidden, storeID)
	}
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, next)
	}

	order, err := s.orders.GetOrderForStore(ctx, orderID, storeID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, order.Status, next)
	}

	now := s.now()
	updated := *order
	updated.Status = next
	updated.UpdatedAt = now
	var deliveryDate *time.Time
	if next == domain.OrderStatusCompleted {
		deliveryDate = &now
		updated.DeliveryDate = deliveryDate
	}

	change := repository.StatusChange{
		OrderID:      order.ID,
		StoreID:      storeID,
		From:         order.Status,
		To:           next,
		At:           now,
		DeliveryDate: deliveryDate,
		Event:        domain.NewOrderEvent(s.newID(), domain.OrderEventStatusChanged, &updated, now),
	}

	if err := s.orders.UpdateStatusGuard(ctx, change); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return nil, domain.ErrStatusChanged
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.log.InfoContext(ctx, "order status changed",
		"order_id", order.ID, "store_id", storeID, "from", order.Status, "to", next)
	return &updated, nil
}
