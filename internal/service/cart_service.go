package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_foodcart/internal/cache"
	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/fjod/go_foodcart/internal/repository"
	"golang.org/x/sync/singleflight"
)

const defaultLoadTimeout = 5 * time.Second

type CartService struct {
	repo        repository.CartRepository
	cache       cache.CartCache
	catalog     repository.FoodCatalog
	log         *slog.Logger
	sfg         singleflight.Group // Prevents cache stampede
	loadTimeout time.Duration
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, catalog repository.FoodCatalog, log *slog.Logger) *CartService {
	return &CartService{
		repo:        repo,
		cache:       cache,
		catalog:     catalog,
		log:         log.With("component", "cart_service"),
		loadTimeout: defaultLoadTimeout,
	}
}

// GetCart returns the cart joined with current catalog names and prices.
// A user without a cart gets an empty view.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &domain.CartView{
		UserID:    userID,
		Items:     []domain.CartLine{},
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	if cart.IsEmpty() {
		return view, nil
	}

	foods, err := s.catalog.FindFoods(ctx, cart.FoodIDs())
	if err != nil {
		return nil, fmt.Errorf("resolve cart foods: %w", err)
	}
	byID := indexFoods(foods)

	for _, item := range cart.Items {
		food, ok := byID[item.FoodID]
		if !ok {
			// the food left the catalog; it is dropped from the view, not from the cart
			continue
		}
		view.Items = append(view.Items, domain.CartLine{
			FoodID:   item.FoodID,
			Name:     food.Name,
			Price:    food.Price,
			Quantity: item.Quantity,
		})
	}

	return view, nil
}

func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key.
	// The shared load is detached from the first caller, so its cancellation
	// does not fail everybody waiting on the same key.
	ch := s.sfg.DoChan(userID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		cart, err := s.cache.Get(loadCtx, userID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(loadCtx, "cache get failed", "user_id", userID, "error", err)
		}

		cart, errGet := s.repo.GetCart(loadCtx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return &domain.Cart{UserID: userID}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go s.fillCache(userID, cart)

		return cart, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Cart), nil
	}
}

// fillCache never replaces an entry or tombstone, so a mutation that landed
// after the database read keeps the old cart out of the cache.
func (s *CartService) fillCache(userID string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stored, err := s.cache.Fill(ctx, userID, cart)
	if err != nil {
		s.log.Warn("cache fill failed", "user_id", userID, "error", err)
		return
	}
	if !stored {
		s.log.Debug("cache fill skipped, entry invalidated meanwhile", "user_id", userID, "version", cart.Version)
	}
}

func (s *CartService) AddItem(ctx context.Context, userID, foodID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}

	food, err := s.catalog.FindFood(ctx, foodID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrFoodUnavailable
	}
	if err != nil {
		return err
	}
	if !food.IsAvailable {
		return domain.ErrFoodUnavailable
	}

	if errAdd := s.repo.AddItem(ctx, userID, foodID, quantity); errAdd != nil {
		s.log.ErrorContext(ctx, "repo add item failed", "user_id", userID, "food_id", foodID, "error", errAdd)
		return errAdd
	}

	s.invalidateCache(userID)
	return nil
}

// UpdateItemQuantity sets the quantity exactly; zero or less removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, foodID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, foodID)
	}

	if errUpdate := s.repo.UpdateItemQuantity(ctx, userID, foodID, quantity); errUpdate != nil {
		if !errors.Is(errUpdate, domain.ErrNotFound) {
			s.log.ErrorContext(ctx, "repo update item quantity failed", "user_id", userID, "error", errUpdate)
		}
		return errUpdate
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, foodID string) error {
	if errRemove := s.repo.RemoveItem(ctx, userID, foodID); errRemove != nil {
		if !errors.Is(errRemove, domain.ErrNotFound) {
			s.log.ErrorContext(ctx, "repo remove item failed", "user_id", userID, "error", errRemove)
		}
		return errRemove
	}

	s.invalidateCache(userID)
	return nil
}

// Clear empties the cart; a user without a cart is left untouched.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if errClear := s.repo.ClearCart(ctx, userID); errClear != nil {
		s.log.ErrorContext(ctx, "repo clear cart failed", "user_id", userID, "error", errClear)
		return errClear
	}

	s.invalidateCache(userID)
	return nil
}

// ClearIfVersion empties the cart only if nothing changed since version.
func (s *CartService) ClearIfVersion(ctx context.Context, userID string, version int64) (bool, error) {
	cleared, err := s.repo.ClearCartIfVersion(ctx, userID, version)
	if err != nil {
		return false, err
	}
	if cleared {
		s.invalidateCache(userID)
	}
	return cleared, nil
}

func (s *CartService) invalidateCache(userID string) {
	// later readers must not join a load that started before this write
	s.sfg.Forget(userID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("cache invalidate failed", "user_id", userID, "error", err)
	}
}

func indexFoods(foods []*domain.Food) map[string]*domain.Food {
	byID := make(map[string]*domain.Food, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
	}
	return byID
}
