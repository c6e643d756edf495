package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_foodcart/internal/cache"
	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/fjod/go_foodcart/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCartRepository keeps carts in memory with the same version rules as the Mongo store.
type mockCartRepository struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
	// readBarrier, when set, holds every GetCart until all expected readers arrived.
	readBarrier *sync.WaitGroup
	// block, when set, holds every GetCart until closed or until ctx is done.
	block chan struct{}
	gets  int
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	m.m.Lock()
	m.gets++
	block := m.block
	m.m.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.m.Lock()
	barrier := m.readBarrier
	var snapshot *domain.Cart
	if c, ok := m.carts[userID]; ok {
		cp := *c
		cp.Items = append([]domain.CartItem(nil), c.Items...)
		snapshot = &cp
	}
	err := m.err
	m.m.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}

	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, repository.ErrCartNotFound
	}
	return snapshot, nil
}

func (m *mockCartRepository) AddItem(_ context.Context, userID, foodID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		c = &domain.Cart{UserID: userID, CreatedAt: time.Now()}
		m.carts[userID] = c
	}
	c.Version++
	for i := range c.Items {
		if c.Items[i].FoodID == foodID {
			c.Items[i].Quantity += quantity
			return nil
		}
	}
	c.Items = append(c.Items, domain.CartItem{FoodID: foodID, Quantity: quantity, AddedAt: time.Now()})
	return nil
}

func (m *mockCartRepository) UpdateItemQuantity(_ context.Context, userID, foodID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return repository.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].FoodID == foodID {
			c.Items[i].Quantity = quantity
			c.Version++
			return nil
		}
	}
	return repository.ErrItemNotFound
}

func (m *mockCartRepository) RemoveItem(_ context.Context, userID, foodID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return repository.ErrCartNotFound
	}
	for i, item := range c.Items {
		if item.FoodID == foodID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Version++
			return nil
		}
	}
	return repository.ErrItemNotFound
}

func (m *mockCartRepository) ClearCart(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if c, ok := m.carts[userID]; ok {
		c.Items = []domain.CartItem{}
		c.Version++
	}
	return nil
}

func (m *mockCartRepository) ClearCartIfVersion(_ context.Context, userID string, version int64) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return false, m.err
	}
	c, ok := m.carts[userID]
	if !ok || c.Version != version {
		return false, nil
	}
	c.Items = []domain.CartItem{}
	c.Version++
	return true, nil
}

func (m *mockCartRepository) getCalls() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.gets
}

func (m *mockCartRepository) cart(userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[userID]
}

// mockCache mirrors the Redis semantics: Invalidate leaves a tombstone that
// Get reports as a miss and Fill refuses to replace.
type mockCache struct {
	m           sync.RWMutex
	cart        *domain.Cart
	tombstoned  bool
	err         error
	invalidated int
	// fillGate, when set, holds every Fill until closed; fillDone receives each Fill outcome.
	fillGate chan struct{}
	fillDone chan bool
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil || m.tombstoned {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Fill(_ context.Context, _ string, cart *domain.Cart) (bool, error) {
	if m.fillGate != nil {
		<-m.fillGate
	}
	m.m.Lock()
	defer m.m.Unlock()
	stored := m.err == nil && m.cart == nil && !m.tombstoned
	if stored {
		m.cart = cart
	}
	if m.fillDone != nil {
		m.fillDone <- stored
	}
	return stored, m.err
}

func (m *mockCache) Invalidate(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	m.tombstoned = true
	m.invalidated++
	return m.err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

func (m *mockCache) invalidations() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.invalidated
}

type mockCatalog struct {
	m        sync.RWMutex
	foods    map[string]*domain.Food
	profiles map[string]*domain.UserProfile
	stores   map[string]*domain.StoreContact
	err      error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		foods:    map[string]*domain.Food{},
		profiles: map[string]*domain.UserProfile{},
		stores:   map[string]*domain.StoreContact{},
	}
}

func (m *mockCatalog) FindFood(_ context.Context, foodID string) (*domain.Food, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.foods[foodID]
	if !ok {
		return nil, repository.ErrFoodNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockCatalog) FindFoods(_ context.Context, foodIDs []string) ([]*domain.Food, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Food
	for _, id := range foodIDs {
		if f, ok := m.foods[id]; ok {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockCatalog) FindProfile(_ context.Context, userID string) (*domain.UserProfile, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return p, nil
}

func (m *mockCatalog) FindStore(_ context.Context, storeID string) (*domain.StoreContact, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	s, ok := m.stores[storeID]
	if !ok {
		return nil, repository.ErrStoreNotFound
	}
	return s, nil
}

func (m *mockCatalog) setPrice(foodID string, price float64) {
	m.m.Lock()
	defer m.m.Unlock()
	m.foods[foodID].Price = price
}

// mockOrderRepository enforces one order per (user, cart version) like the real stores.
type mockOrderRepository struct {
	m         sync.Mutex
	orders    map[string]*domain.Order
	events    []domain.OrderEvent
	createErr error
	updateErr error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: map[string]*domain.Order{}}
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *domain.Order, events ...domain.OrderEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, o := range m.orders {
		if o.UserID == order.UserID && o.CartVersion == order.CartVersion {
			return repository.ErrDuplicateCheckout
		}
	}
	cp := *order
	cp.FoodItems = append([]domain.OrderItem(nil), order.FoodItems...)
	m.orders[order.ID] = &cp
	m.events = append(m.events, events...)
	return nil
}

func (m *mockOrderRepository) GetOrderForUser(_ context.Context, orderID, userID string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) GetOrderForStore(_ context.Context, orderID, storeID string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.StoreID != storeID {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	return m.list(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (m *mockOrderRepository) ListOrdersByStoreID(_ context.Context, storeID string, filter domain.StoreOrderFilter) ([]*domain.Order, error) {
	return m.list(func(o *domain.Order) bool {
		if o.StoreID != storeID {
			return false
		}
		switch filter {
		case domain.StoreOrderFilterPending:
			return o.Status == domain.OrderStatusPending
		case domain.StoreOrderFilterProcessing:
			return o.Status != domain.OrderStatusPending
		}
		return true
	}), nil
}

func (m *mockOrderRepository) list(keep func(*domain.Order) bool) []*domain.Order {
	m.m.Lock()
	defer m.m.Unlock()
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderTime.After(out[j].OrderTime) })
	return out
}

func (m *mockOrderRepository) UpdateStatusGuard(_ context.Context, change repository.StatusChange) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[change.OrderID]
	if !ok || o.StoreID != change.StoreID || o.Status != change.From {
		return repository.ErrStatusMismatch
	}
	o.Status = change.To
	o.UpdatedAt = change.At
	if change.DeliveryDate != nil {
		o.DeliveryDate = change.DeliveryDate
	}
	m.events = append(m.events, change.Event)
	return nil
}

func (m *mockOrderRepository) put(o *domain.Order) {
	m.m.Lock()
	defer m.m.Unlock()
	m.orders[o.ID] = o
}

func (m *mockOrderRepository) count() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.orders)
}

func (m *mockOrderRepository) recordedEvents() []domain.OrderEvent {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]domain.OrderEvent(nil), m.events...)
}

// failingClearer simulates a storage error during the post-checkout clear.
type failingClearer struct {
	err error
}

func (f failingClearer) ClearIfVersion(context.Context, string, int64) (bool, error) {
	return false, f.err
}
