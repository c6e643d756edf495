package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_foodcart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The catalog, user and store collections are owned by other parts of the
// marketplace; this package only reads them.

type foodDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Price       float64            `bson:"price"`
	Description string             `bson:"description"`
	Thumbnail   string             `bson:"thumbnail"`
	StoreID     primitive.ObjectID `bson:"storeId"`
	IsAvailable bool               `bson:"isAvailable"`
	IsDeleted   bool               `bson:"isDeleted"`
}

func (d foodDocument) toDomain() *domain.Food {
	return &domain.Food{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Price:       d.Price,
		Description: d.Description,
		Thumbnail:   d.Thumbnail,
		StoreID:     d.StoreID.Hex(),
		IsAvailable: d.IsAvailable,
	}
}

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	FullName string             `bson:"fullName"`
	Email    string             `bson:"email"`
	Image    string             `bson:"image"`
	Address  string             `bson:"address"`
}

type storeDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	PhoneNumber string             `bson:"phoneNumber"`
}

var notDeleted = bson.M{"$ne": true}

type mongoCatalog struct {
	foods  *mongo.Collection
	users  *mongo.Collection
	stores *mongo.Collection
}

func (m *mongoCatalog) FindFood(ctx context.Context, foodID string) (*domain.Food, error) {
	oid, err := parseObjectID(foodID)
	if err != nil {
		return nil, err
	}

	var doc foodDocument
	err = m.foods.FindOne(ctx, bson.M{"_id": oid, "isDeleted": notDeleted}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFoodNotFound
		}
		return nil, fmt.Errorf("failed to get food: %w", err)
	}
	return doc.toDomain(), nil
}

func (m *mongoCatalog) FindFoods(ctx context.Context, foodIDs []string) ([]*domain.Food, error) {
	oids, err := parseObjectIDs(foodIDs)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": bson.M{"$in": oids}, "isDeleted": notDeleted}
	opts := options.Find().SetProjection(bson.M{
		"name": 1, "price": 1, "thumbnail": 1, "storeId": 1, "isAvailable": 1,
	})

	cursor, err := m.foods.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []foodDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode foods: %w", err)
	}

	foods := make([]*domain.Food, 0, len(docs))
	for _, doc := range docs {
		foods = append(foods, doc.toDomain())
	}
	return foods, nil
}

func (m *mongoCatalog) FindProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	oid, err := parseObjectID(userID)
	if err != nil {
		return nil, err
	}

	var doc userDocument
	opts := options.FindOne().SetProjection(bson.M{"fullName": 1, "email": 1, "image": 1, "address": 1})
	if err := m.users.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return &domain.UserProfile{
		ID:       doc.ID.Hex(),
		FullName: doc.FullName,
		Email:    doc.Email,
		Image:    doc.Image,
		Address:  doc.Address,
	}, nil
}

func (m *mongoCatalog) FindStore(ctx context.Context, storeID string) (*domain.StoreContact, error) {
	oid, err := parseObjectID(storeID)
	if err != nil {
		return nil, err
	}

	var doc storeDocument
	opts := options.FindOne().SetProjection(bson.M{"name": 1, "phoneNumber": 1})
	if err := m.stores.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return &domain.StoreContact{
		ID:          doc.ID.Hex(),
		Name:        doc.Name,
		PhoneNumber: doc.PhoneNumber,
	}, nil
}

// Catalog bundles the read-only lookups the cart and order services consume.
type Catalog interface {
	FoodCatalog
	ProfileDirectory
	StoreDirectory
}

func NewMongoCatalog(db *mongo.Database) Catalog {
	return &mongoCatalog{
		foods:  db.Collection("foods"),
		users:  db.Collection("users"),
		stores: db.Collection("stores"),
	}
}
