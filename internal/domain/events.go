package domain

import "time"

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order_created"
	OrderEventStatusChanged OrderEventType = "order_status_changed"
)

// OrderEvent is an outbox record written together with the order change it describes.
type OrderEvent struct {
	ID        string            `bson:"id" json:"event_id"`
	Type      OrderEventType    `bson:"type" json:"event_type"`
	Payload   OrderEventPayload `bson:"payload" json:"payload"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
}

type OrderEventPayload struct {
	EventID     string      `bson:"event_id" json:"event_id"`
	OrderID     string      `bson:"order_id" json:"order_id"`
	UserID      string      `bson:"user_id" json:"user_id"`
	StoreID     string      `bson:"store_id" json:"store_id"`
	CartVersion int64       `bson:"cart_version" json:"cart_version"`
	Status      OrderStatus `bson:"status" json:"status"`
	TotalPrice  float64     `bson:"total_price" json:"total_price"`
	OccurredAt  time.Time   `bson:"occurred_at" json:"occurred_at"`
}

func NewOrderEvent(id string, eventType OrderEventType, o *Order, at time.Time) OrderEvent {
	return OrderEvent{
		ID:   id,
		Type: eventType,
		Payload: OrderEventPayload{
			EventID:     id,
			OrderID:     o.ID,
			UserID:      o.UserID,
			StoreID:     o.StoreID,
			CartVersion: o.CartVersion,
			Status:      o.Status,
			TotalPrice:  o.TotalPrice,
			OccurredAt:  at,
		},
		CreatedAt: at,
	}
}
