package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_foodcart/internal/domain"
)

// CartCache holds raw carts only. Catalog data is joined on every read so that
// cached entries never carry stale prices.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Fill stores a cart read from the database only if the key is empty.
	// It reports false when an entry or a tombstone was already there.
	Fill(ctx context.Context, userID string, cart *domain.Cart) (bool, error)
	// Invalidate replaces the entry with a short-lived tombstone, so a fill
	// that read the database before the mutation cannot bring the old cart back.
	Invalidate(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
