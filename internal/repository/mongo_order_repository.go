package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_foodcart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// orderDocument is the stored shape of an order. Unpublished events ride along
// in the outbox array so that order and event are written by one document update.
type orderDocument struct {
	domain.Order `bson:",inline"`
	Outbox       []domain.OrderEvent `bson:"outbox"`
}

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order, events ...domain.OrderEvent) error {
	doc := orderDocument{Order: *order, Outbox: events}
	if doc.Outbox == nil {
		doc.Outbox = []domain.OrderEvent{}
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) GetOrderForUser(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": orderID, "user_id": userID})
}

func (m *mongoOrderRepository) GetOrderForStore(ctx context.Context, orderID, storeID string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": orderID, "store_id": storeID})
}

func (m *mongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc orderDocument
	err := m.collection.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"outbox": 0})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order: %w", err)
	}
	return &doc.Order, nil
}

func (m *mongoOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	return m.find(ctx, bson.M{"user_id": userID})
}

func (m *mongoOrderRepository) ListOrdersByStoreID(ctx context.Context, storeID string, filter domain.StoreOrderFilter) ([]*domain.Order, error) {
	query := bson.M{"store_id": storeID}
	switch filter {
	case domain.StoreOrderFilterPending:
		query["status"] = domain.OrderStatusPending
	case domain.StoreOrderFilterProcessing:
		query["status"] = bson.M{"$ne": domain.OrderStatusPending}
	}
	return m.find(ctx, query)
}

func (m *mongoOrderRepository) find(ctx context.Context, filter bson.M) ([]*domain.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "order_time", Value: -1}, {Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"outbox": 0})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		order := doc.Order
		orders = append(orders, &order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}

	return orders, nil
}

func (m *mongoOrderRepository) UpdateStatusGuard(ctx context.Context, change StatusChange) error {
	filter := bson.M{
		"_id":      change.OrderID,
		"store_id": change.StoreID,
		"status":   change.From,
	}
	set := bson.M{"status": change.To, "updated_at": change.At}
	if change.DeliveryDate != nil {
		set["delivery_date"] = change.DeliveryDate
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"outbox": change.Event},
	}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrStatusMismatch
	}
	return nil
}

func (m *mongoOrderRepository) GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	opts := options.Find().
		SetProjection(bson.M{"outbox": 1}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, bson.M{"outbox.0": bson.M{"$exists": true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*domain.OrderEvent, 0)
	for cursor.Next(ctx) && len(events) < limit {
		var doc struct {
			Outbox []domain.OrderEvent `bson:"outbox"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode outbox: %w", err)
		}
		for i := range doc.Outbox {
			if len(events) == limit {
				break
			}
			events = append(events, &doc.Outbox[i])
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}

	return events, nil
}

func (m *mongoOrderRepository) MarkEventPublished(ctx context.Context, event *domain.OrderEvent) error {
	filter := bson.M{"_id": event.Payload.OrderID}
	update := bson.M{"$pull": bson.M{"outbox": bson.M{"id": event.ID}}}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("mark event %s published: %w", event.ID, err)
	}
	return nil
}

// CreateIndexes enforces a single order per cart revision and backs the list queries.
func (m *mongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "cart_version", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "order_time", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "status", Value: 1}, {Key: "order_time", Value: -1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func newMongoOrderRepository(db *mongo.Database) *mongoOrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func NewMongoOrderRepository(db *mongo.Database) OrderStore {
	return newMongoOrderRepository(db)
}
