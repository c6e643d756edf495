package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart is the per-user staging area. Version grows with every mutation and
// identifies the cart revision an order was built from.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Items     []CartItem         `bson:"items" json:"items"`
	Version   int64              `bson:"version" json:"version"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type CartItem struct {
	FoodID   string    `bson:"food_id" json:"food_id"`
	Quantity int       `bson:"quantity" json:"quantity"`
	AddedAt  time.Time `bson:"added_at" json:"added_at"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// FoodIDs returns the referenced foods in line order.
func (c *Cart) FoodIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.FoodID)
	}
	return ids
}

// CartView is the cart joined with the current catalog data.
type CartView struct {
	UserID    string     `json:"userId"`
	Items     []CartLine `json:"items"`
	CreatedAt time.Time  `json:"createdAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}

type CartLine struct {
	FoodID   string  `json:"foodId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}
