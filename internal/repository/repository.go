package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
)

var (
	ErrCartNotFound      = fmt.Errorf("cart %w", domain.ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("item %w in cart", domain.ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrFoodNotFound      = fmt.Errorf("food %w", domain.ErrNotFound)
	ErrProfileNotFound   = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrStoreNotFound     = fmt.Errorf("store %w", domain.ErrNotFound)
	ErrDuplicateCheckout = fmt.Errorf("%w: order for this cart version already exists", domain.ErrConflict)
	ErrStatusMismatch    = fmt.Errorf("%w: order status is not the expected one", domain.ErrConflict)
	ErrCartContention    = fmt.Errorf("%w: cart is being modified concurrently", domain.ErrConflict)
)

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem merges quantity into an existing line or appends one, creating the cart if needed.
	AddItem(ctx context.Context, userID, foodID string, quantity int) error
	UpdateItemQuantity(ctx context.Context, userID, foodID string, quantity int) error
	RemoveItem(ctx context.Context, userID, foodID string) error
	// ClearCart empties the items. A missing cart is not an error.
	ClearCart(ctx context.Context, userID string) error
	// ClearCartIfVersion empties the items only while the cart is still at version.
	ClearCartIfVersion(ctx context.Context, userID string, version int64) (bool, error)
}

type OrderRepository interface {
	// CreateOrder stores the order together with its events.
	// Returns ErrDuplicateCheckout when an order for the same user and cart version exists.
	CreateOrder(ctx context.Context, order *domain.Order, events ...domain.OrderEvent) error
	GetOrderForUser(ctx context.Context, orderID, userID string) (*domain.Order, error)
	GetOrderForStore(ctx context.Context, orderID, storeID string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrdersByStoreID(ctx context.Context, storeID string, filter domain.StoreOrderFilter) ([]*domain.Order, error)
	// UpdateStatusGuard moves the order from -> to only if it is still in from.
	// Returns ErrStatusMismatch otherwise.
	UpdateStatusGuard(ctx context.Context, change StatusChange) error
}

type StatusChange struct {
	OrderID      string
	StoreID      string
	From         domain.OrderStatus
	To           domain.OrderStatus
	At           time.Time
	DeliveryDate *time.Time
	Event        domain.OrderEvent
}

// OutboxRepository gives the publisher access to not yet published order events.
type OutboxRepository interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error)
	MarkEventPublished(ctx context.Context, event *domain.OrderEvent) error
}

// OrderStore is an order backend that also serves as the event outbox.
type OrderStore interface {
	OrderRepository
	OutboxRepository
}

type FoodCatalog interface {
	FindFood(ctx context.Context, foodID string) (*domain.Food, error)
	// FindFoods returns the foods that exist; missing ids are simply absent from the result.
	FindFoods(ctx context.Context, foodIDs []string) ([]*domain.Food, error)
}

type ProfileDirectory interface {
	FindProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

type StoreDirectory interface {
	FindStore(ctx context.Context, storeID string) (*domain.StoreContact, error)
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}
