package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxAddItemAttempts = 3

type mongoCartRepository struct {
	collection *mongo.Collection
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// AddItem never reads the cart first. The first update merges into an existing
// line; the second appends a line and creates the cart when it is missing. A
// duplicate key on the upsert means someone else created the cart or added the
// same food in between, so the merge is attempted again.
func (m *mongoCartRepository) AddItem(ctx context.Context, userID, foodID string, quantity int) error {
	for attempt := 0; attempt < maxAddItemAttempts; attempt++ {
		now := time.Now()

		merge := bson.M{
			"$inc": bson.M{"items.$.quantity": quantity, "version": 1},
			"$set": bson.M{"updated_at": now},
		}
		res, err := m.collection.UpdateOne(ctx, bson.M{"user_id": userID, "items.food_id": foodID}, merge)
		if err != nil {
			return fmt.Errorf("failed to merge cart item: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		item := domain.CartItem{FoodID: foodID, Quantity: quantity, AddedAt: now}
		appendItem := bson.M{
			"$push":        bson.M{"items": item},
			"$inc":         bson.M{"version": 1},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		}
		filter := bson.M{"user_id": userID, "items.food_id": bson.M{"$ne": foodID}}
		_, err = m.collection.UpdateOne(ctx, filter, appendItem, options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to add new item: %w", err)
		}
	}

	return ErrCartContention
}

func (m *mongoCartRepository) UpdateItemQuantity(ctx context.Context, userID, foodID string, quantity int) error {
	filter := bson.M{
		"user_id":       userID,
		"items.food_id": foodID,
	}

	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.food_id": foodID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return m.missingItemError(ctx, userID)
	}
	return nil
}

func (m *mongoCartRepository) RemoveItem(ctx context.Context, userID, foodID string) error {
	filter := bson.M{"user_id": userID, "items.food_id": foodID}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"food_id": foodID},
		},
		"$set": bson.M{"updated_at": time.Now()},
		"$inc": bson.M{"version": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	if result.MatchedCount == 0 {
		return m.missingItemError(ctx, userID)
	}

	return nil
}

func (m *mongoCartRepository) ClearCart(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set": bson.M{"items": []domain.CartItem{}, "updated_at": time.Now()},
		"$inc": bson.M{"version": 1},
	}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

func (m *mongoCartRepository) ClearCartIfVersion(ctx context.Context, userID string, version int64) (bool, error) {
	filter := bson.M{"user_id": userID, "version": version}
	update := bson.M{
		"$set": bson.M{"items": []domain.CartItem{}, "updated_at": time.Now()},
		"$inc": bson.M{"version": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to clear cart at version %d: %w", version, err)
	}

	return result.ModifiedCount > 0, nil
}

// missingItemError tells a missing cart apart from a missing line.
func (m *mongoCartRepository) missingItemError(ctx context.Context, userID string) error {
	n, err := m.collection.CountDocuments(ctx, bson.M{"user_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check cart: %w", err)
	}
	if n == 0 {
		return ErrCartNotFound
	}
	return ErrItemNotFound
}

// CreateIndexes sets up the one-cart-per-user constraint. Carts are emptied,
// never deleted, so their version keeps growing for the lifetime of the user.
func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	return nil
}

func newMongoCartRepository(db *mongo.Database) *mongoCartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return newMongoCartRepository(db)
}
