package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/fjod/go_foodcart/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog() *mockCatalog {
	c := newMockCatalog()
	c.foods["food-1"] = &domain.Food{ID: "food-1", Name: "Pho", Price: 10, StoreID: "store-1", IsAvailable: true, Thumbnail: "pho.png"}
	c.foods["food-2"] = &domain.Food{ID: "food-2", Name: "Spring roll", Price: 5, StoreID: "store-1", IsAvailable: true, Thumbnail: "roll.png"}
	c.foods["food-3"] = &domain.Food{ID: "food-3", Name: "Banh mi", Price: 3, StoreID: "store-2", IsAvailable: true}
	c.foods["sold-out"] = &domain.Food{ID: "sold-out", Name: "Bun cha", Price: 7, StoreID: "store-1", IsAvailable: false}
	return c
}

func TestGetCart_CacheMiss_LoadsRepoAndJoinsCatalog(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{
		UserID: "123",
		Items: []domain.CartItem{
			{FoodID: "food-1", Quantity: 2},
			{FoodID: "food-2", Quantity: 1},
		},
		Version: 2,
	}
	mockC := &mockCache{}

	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	ret, err := sut.GetCart(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, ret.Items, 2)
	assert.Equal(t, "food-1", ret.Items[0].FoodID)
	assert.Equal(t, "Pho", ret.Items[0].Name)
	assert.Equal(t, 10.0, ret.Items[0].Price)
	assert.Equal(t, 2, ret.Items[0].Quantity)
	assert.Equal(t, "Spring roll", ret.Items[1].Name)

	require.Eventually(t, func() bool {
		return mockC.getCart() != nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cart was not set in cache")
}

func TestGetCart_CacheHit(t *testing.T) {
	mockC := &mockCache{cart: &domain.Cart{
		UserID: "123",
		Items:  []domain.CartItem{{FoodID: "food-2", Quantity: 3}},
	}}

	// repo is empty, the view can only come from the cache
	sut := NewCartService(newMockCartRepository(), mockC, seedCatalog(), discardLogger())
	ret, err := sut.GetCart(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, "food-2", ret.Items[0].FoodID)
	assert.Equal(t, 3, ret.Items[0].Quantity)
}

func TestGetCart_CartNotFound_ReturnsEmptyCart(t *testing.T) {
	sut := NewCartService(newMockCartRepository(), &mockCache{}, seedCatalog(), discardLogger())

	ret, err := sut.GetCart(context.Background(), "123")
	require.NoError(t, err)
	require.NotNil(t, ret)
	assert.Equal(t, "123", ret.UserID)
	assert.NotNil(t, ret.Items)
	assert.Empty(t, ret.Items)
}

func TestGetCart_SkipsFoodsMissingFromCatalog(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{
		UserID: "123",
		Items: []domain.CartItem{
			{FoodID: "deleted-food", Quantity: 1},
			{FoodID: "food-1", Quantity: 4},
		},
	}

	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())
	ret, err := sut.GetCart(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, "food-1", ret.Items[0].FoodID)

	// the stored cart keeps the line
	assert.Len(t, repo.cart("123").Items, 2)
}

func TestGetCart_RepoError(t *testing.T) {
	repo := newMockCartRepository()
	repo.err = fmt.Errorf("database error")
	mockC := &mockCache{}

	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	ret, err := sut.GetCart(context.Background(), "123")
	require.ErrorContains(t, err, "database error")
	assert.Nil(t, ret)
	assert.Nil(t, mockC.getCart())
}

func TestGetCart_CacheErrorFallsBackToRepo(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{UserID: "123", Items: []domain.CartItem{{FoodID: "food-1", Quantity: 1}}}
	mockC := &mockCache{err: fmt.Errorf("redis down")}

	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	ret, err := sut.GetCart(context.Background(), "123")
	require.NoError(t, err)
	assert.Len(t, ret.Items, 1)
}

func TestGetCart_RefillRacingMutationKeepsOldCartOut(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{UserID: "123", Items: []domain.CartItem{{FoodID: "food-1", Quantity: 1}}, Version: 1}
	mockC := &mockCache{fillGate: make(chan struct{}), fillDone: make(chan bool, 2)}
	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	ctx := context.Background()

	// the refill of this read is held until after the add below
	view, err := sut.GetCart(ctx, "123")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)

	require.NoError(t, sut.AddItem(ctx, "123", "food-1", 4))
	close(mockC.fillGate)
	assert.False(t, <-mockC.fillDone, "cart read before the add was cached")
	assert.Nil(t, mockC.getCart())

	view, err = sut.GetCart(ctx, "123")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, 5, repo.cart("123").Items[0].Quantity)
}

func TestGetCart_CanceledCallerDoesNotFailSharedLoad(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{UserID: "123", Items: []domain.CartItem{{FoodID: "food-2", Quantity: 2}}}
	repo.block = make(chan struct{})
	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := sut.GetCart(firstCtx, "123")
		firstErr <- err
	}()
	require.Eventually(t, func() bool {
		return repo.getCalls() == 1
	}, time.Second, 5*time.Millisecond, "load did not start")

	type result struct {
		view *domain.CartView
		err  error
	}
	second := make(chan result, 1)
	go func() {
		view, err := sut.GetCart(context.Background(), "123")
		second <- result{view, err}
	}()
	// give the second caller time to join the running load
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(repo.block)
	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.view.Items, 1)
	assert.Equal(t, 2, res.view.Items[0].Quantity)
	assert.Equal(t, 1, repo.getCalls())
}

func TestAddItem_Success(t *testing.T) {
	repo := newMockCartRepository()
	mockC := &mockCache{cart: &domain.Cart{UserID: "123"}}

	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	err := sut.AddItem(context.Background(), "123", "food-1", 5)
	require.NoError(t, err)

	cart := repo.cart("123")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "food-1", cart.Items[0].FoodID)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, int64(1), cart.Version)

	assert.Nil(t, mockC.getCart(), "cache was not invalidated")
	assert.Equal(t, 1, mockC.invalidations())
}

func TestAddItem_MergesSameFood(t *testing.T) {
	repo := newMockCartRepository()
	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())
	ctx := context.Background()

	require.NoError(t, sut.AddItem(ctx, "123", "food-1", 2))
	require.NoError(t, sut.AddItem(ctx, "123", "food-1", 3))

	cart := repo.cart("123")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, int64(2), cart.Version)
}

func TestAddItem_ConcurrentAddsAreNotLost(t *testing.T) {
	repo := newMockCartRepository()
	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sut.AddItem(context.Background(), "123", "food-1", 1))
		}()
	}
	wg.Wait()

	cart := repo.cart("123")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 20, cart.Items[0].Quantity)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	repo := newMockCartRepository()
	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())

	for _, qty := range []int{0, -3} {
		err := sut.AddItem(context.Background(), "123", "food-1", qty)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
	assert.Nil(t, repo.cart("123"))
}

func TestAddItem_UnknownOrUnavailableFood(t *testing.T) {
	repo := newMockCartRepository()
	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())

	err := sut.AddItem(context.Background(), "123", "no-such-food", 1)
	assert.ErrorIs(t, err, domain.ErrFoodUnavailable)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = sut.AddItem(context.Background(), "123", "sold-out", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Nil(t, repo.cart("123"))
}

func TestAddItem_InvalidFoodID(t *testing.T) {
	catalog := seedCatalog()
	catalog.err = domain.ErrInvalidID
	sut := NewCartService(newMockCartRepository(), &mockCache{}, catalog, discardLogger())

	err := sut.AddItem(context.Background(), "123", "zzz", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAddItem_RepoError(t *testing.T) {
	repo := newMockCartRepository()
	repo.err = fmt.Errorf("database error")

	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())
	err := sut.AddItem(context.Background(), "123", "food-1", 5)
	require.ErrorContains(t, err, "database error")
}

func TestUpdateItemQuantity_Success(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{
		UserID: "123",
		Items: []domain.CartItem{
			{FoodID: "food-1", Quantity: 5},
			{FoodID: "food-2", Quantity: 10},
		},
	}
	mockC := &mockCache{cart: repo.carts["123"]}

	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	err := sut.UpdateItemQuantity(context.Background(), "123", "food-1", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.cart("123").Items[0].Quantity)
	assert.Nil(t, mockC.getCart(), "cache was not invalidated")
}

func TestUpdateItemQuantity_ZeroRemovesLine(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{
		UserID: "123",
		Items: []domain.CartItem{
			{FoodID: "food-1", Quantity: 5},
			{FoodID: "food-2", Quantity: 10},
		},
	}

	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())
	require.NoError(t, sut.UpdateItemQuantity(context.Background(), "123", "food-1", 0))

	cart := repo.cart("123")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "food-2", cart.Items[0].FoodID)
}

func TestUpdateItemQuantity_NotFound(t *testing.T) {
	repo := newMockCartRepository()
	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())
	ctx := context.Background()

	err := sut.UpdateItemQuantity(ctx, "123", "food-1", 2)
	assert.ErrorIs(t, err, repository.ErrCartNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	repo.carts["123"] = &domain.Cart{UserID: "123", Items: []domain.CartItem{{FoodID: "food-2", Quantity: 1}}}
	err = sut.UpdateItemQuantity(ctx, "123", "food-1", 2)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveItem_Success(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{
		UserID: "123",
		Items: []domain.CartItem{
			{FoodID: "food-1", Quantity: 5},
			{FoodID: "food-2", Quantity: 10},
		},
	}
	mockC := &mockCache{cart: repo.carts["123"]}

	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	require.NoError(t, sut.RemoveItem(context.Background(), "123", "food-1"))

	cart := repo.cart("123")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "food-2", cart.Items[0].FoodID)
	assert.Nil(t, mockC.getCart(), "cache was not invalidated")
}

func TestRemoveItem_NotInCart(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{UserID: "123", Items: []domain.CartItem{{FoodID: "food-2", Quantity: 1}}}
	mockC := &mockCache{}

	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	err := sut.RemoveItem(context.Background(), "123", "food-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, mockC.invalidations())
}

func TestClear_Success(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{UserID: "123", Items: []domain.CartItem{{FoodID: "food-1", Quantity: 5}}}
	mockC := &mockCache{cart: repo.carts["123"]}

	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	require.NoError(t, sut.Clear(context.Background(), "123"))
	assert.Empty(t, repo.cart("123").Items)
	assert.Nil(t, mockC.getCart(), "cache was not invalidated")
}

func TestClear_RepoError(t *testing.T) {
	repo := newMockCartRepository()
	repo.err = fmt.Errorf("database error")

	sut := NewCartService(repo, &mockCache{}, seedCatalog(), discardLogger())
	require.ErrorContains(t, sut.Clear(context.Background(), "123"), "database error")
}

func TestClearIfVersion(t *testing.T) {
	repo := newMockCartRepository()
	repo.carts["123"] = &domain.Cart{UserID: "123", Items: []domain.CartItem{{FoodID: "food-1", Quantity: 5}}, Version: 3}
	mockC := &mockCache{}
	sut := NewCartService(repo, mockC, seedCatalog(), discardLogger())
	ctx := context.Background()

	cleared, err := sut.ClearIfVersion(ctx, "123", 2)
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Len(t, repo.cart("123").Items, 1)
	assert.Equal(t, 0, mockC.invalidations())

	cleared, err = sut.ClearIfVersion(ctx, "123", 3)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Empty(t, repo.cart("123").Items)
	assert.Equal(t, 1, mockC.invalidations())
}
