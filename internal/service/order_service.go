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

// CartClearer empties a cart after checkout without touching later edits.
type CartClearer interface {
	ClearIfVersion(ctx context.Context, userID string, version int64) (bool, error)
}

type OrderService struct {
	carts    repository.CartRepository
	clearer  CartClearer
	orders   repository.OrderRepository
	catalog  repository.FoodCatalog
	profiles repository.ProfileDirectory
	stores   repository.StoreDirectory
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

type OrderServiceDeps struct {
	Carts    repository.CartRepository
	Clearer  CartClearer
	Orders   repository.OrderRepository
	Catalog  repository.FoodCatalog
	Profiles repository.ProfileDirectory
	Stores   repository.StoreDirectory
	Logger   *slog.Logger
}

func NewOrderService(deps OrderServiceDeps) *OrderService {
	return &OrderService{
		carts:    deps.Carts,
		clearer:  deps.Clearer,
		orders:   deps.Orders,
		catalog:  deps.Catalog,
		profiles: deps.Profiles,
		stores:   deps.Stores,
		log:      deps.Logger.With("component", "order_service"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateOrder turns the user's cart into a priced, immutable order.
//
// The cart version read here is stored on the order and is unique per user, so two
// checkouts of the same cart revision cannot both succeed: the loser gets
// domain.ErrCartCheckedOut. Clearing the cart afterwards is best effort; the
// order is returned even if it fails.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPaymentMethod, req.PaymentMethod)
	}

	cart, err := s.carts.GetCart(ctx, req.UserID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, domain.ErrCartEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	profile, err := s.profiles.FindProfile(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user profile: %w", err)
	}

	items, storeID, err := s.snapshotItems(ctx, cart)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deliverTo := profile.Address
	if deliverTo == "" {
		deliverTo = domain.DeliverToNotProvided
	}

	order := &domain.Order{
		ID:            s.newID(),
		UserID:        req.UserID,
		StoreID:       storeID,
		UserName:      profile.FullName,
		UserImageURL:  profile.Image,
		OrderTime:     now,
		TotalPrice:    domain.TotalOf(items),
		Status:        domain.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: domain.PaymentStatusUnpaid,
		DeliverTo:     deliverTo,
		FoodItems:     items,
		Notes:         req.Notes,
		CartVersion:   cart.Version,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created := domain.NewOrderEvent(s.newID(), domain.OrderEventCreated, order, now)

	if err := s.orders.CreateOrder(ctx, order, created); err != nil {
		if errors.Is(err, repository.ErrDuplicateCheckout) {
			s.log.InfoContext(ctx, "concurrent checkout rejected", "user_id", req.UserID, "cart_version", cart.Version)
			return nil, domain.ErrCartCheckedOut
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.log.InfoContext(ctx, "order created",
		"order_id", order.ID, "user_id", order.UserID, "store_id", order.StoreID, "total_price", order.TotalPrice)

	cleared, errClear := s.clearer.ClearIfVersion(ctx, req.UserID, cart.Version)
	switch {
	case errClear != nil:
		s.log.ErrorContext(ctx, "failed to clear cart after checkout", "order_id", order.ID, "user_id", req.UserID, "error", errClear)
	case !cleared:
		s.log.WarnContext(ctx, "cart changed during checkout, left as is", "order_id", order.ID, "user_id", req.UserID)
	}

	return order, nil
}

// snapshotItems freezes the catalog data for every cart line and returns the single store they belong to.
func (s *OrderService) snapshotItems(ctx context.Context, cart *domain.Cart) ([]domain.OrderItem, string, error) {
	foods, err := s.catalog.FindFoods(ctx, cart.FoodIDs())
	if err != nil {
		return nil, "", fmt.Errorf("resolve cart foods: %w", err)
	}
	byID := indexFoods(foods)

	items := make([]domain.OrderItem, 0, len(cart.Items))
	var storeID string
	for i, line := range cart.Items {
		food, ok := byID[line.FoodID]
		if !ok {
			return nil, "", fmt.Errorf("food item with ID %s %w", line.FoodID, domain.ErrNotFound)
		}
		if i == 0 {
			storeID = food.StoreID
		} else if food.StoreID != storeID {
			return nil, "", domain.ErrMixedStoreCart
		}

		items = append(items, domain.OrderItem{
			FoodID:   food.ID,
			Name:     food.Name,
			Price:    food.Price,
			ImageURL: food.Thumbnail,
			Quantity: line.Quantity,
		})
	}

	return items, storeID, nil
}

// ListOrdersForUser returns the caller's own orders, newest first.
func (s *OrderService) ListOrdersForUser(ctx context.Context, requestedUserID, callerUserID string) ([]*domain.Order, error) {
	if requestedUserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	if requestedUserID != callerUserID {
		return nil, fmt.Errorf("%w: orders of another user", domain.ErrForbidden)
	}

	return s.orders.ListOrdersByUserID(ctx, requestedUserID)
}

// GetOrder returns an order owned by the caller. Orders of other users look
// exactly like missing ones.
func (s *OrderService) GetOrder(ctx context.Context, orderID, callerUserID string) (*domain.OrderDetail, error) {
	order, err := s.orders.GetOrderForUser(ctx, orderID, callerUserID)
	if err != nil {
		return nil, err
	}

	var email string
	if profile, errProfile := s.profiles.FindProfile(ctx, callerUserID); errProfile != nil {
		s.log.WarnContext(ctx, "order detail without user email", "order_id", orderID, "error", errProfile)
	} else {
		email = profile.Email
	}

	store, errStore := s.stores.FindStore(ctx, order.StoreID)
	if errStore != nil {
		s.log.WarnContext(ctx, "order detail without store contact", "order_id", orderID, "store_id", order.StoreID, "error", errStore)
	}

	detail := domain.NewOrderDetail(order, email, store)
	return &detail, nil
}
