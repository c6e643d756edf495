package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "COD"
	PaymentMethodVNPay PaymentMethod = "VNPAY"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodVNPay
}

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// DeliverToNotProvided is stored when the customer has no address on file.
const DeliverToNotProvided = "N/A"

// OrderItem is a frozen copy of the catalog entry at checkout time.
type OrderItem struct {
	FoodID   string  `bson:"food_id" json:"foodId"`
	Name     string  `bson:"name" json:"name"`
	Price    float64 `bson:"price" json:"price"`
	ImageURL string  `bson:"image_url" json:"imageUrl"`
	Quantity int     `bson:"quantity" json:"quantity"`
}

func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

type Order struct {
	ID                 string        `bson:"_id" json:"id"`
	UserID             string        `bson:"user_id" json:"userId"`
	StoreID            string        `bson:"store_id" json:"storeId"`
	UserName           string        `bson:"user_name" json:"userName"`
	UserImageURL       string        `bson:"user_image_url" json:"userImageUrl"`
	OrderTime          time.Time     `bson:"order_time" json:"orderTime"`
	TotalPrice         float64       `bson:"total_price" json:"totalPrice"`
	Status             OrderStatus   `bson:"status" json:"status"`
	PaymentMethod      PaymentMethod `bson:"payment_method" json:"paymentMethod"`
	PaymentStatus      PaymentStatus `bson:"payment_status" json:"paymentStatus"`
	DeliveryDate       *time.Time    `bson:"delivery_date" json:"deliveryDate"`
	DeliverTo          string        `bson:"deliver_to" json:"deliverTo"`
	FoodItems          []OrderItem   `bson:"food_items" json:"foodItems"`
	VNPayTransactionID string        `bson:"vnpay_transaction_id,omitempty" json:"vnpayTransactionId,omitempty"`
	Notes              string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CartVersion        int64         `bson:"cart_version" json:"-"`
	CreatedAt          time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time     `bson:"updated_at" json:"updatedAt"`
}

// TotalOf sums price * quantity over the snapshot items.
func TotalOf(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

type CheckoutRequest struct {
	UserID        string
	PaymentMethod PaymentMethod
	Notes         string
}

// OrderDetail is the customer's view of a single order, items flattened.
type OrderDetail struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"userId"`
	StoreID            string        `json:"storeId"`
	UserEmail          string        `json:"userEmail"`
	StorePhoneNumber   string        `json:"storePhoneNumber"`
	UserName           string        `json:"userName"`
	UserImageURL       string        `json:"userImageUrl"`
	OrderTime          time.Time     `json:"orderTime"`
	TotalPrice         float64       `json:"totalPrice"`
	Status             OrderStatus   `json:"status"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	PaymentStatus      PaymentStatus `json:"paymentStatus"`
	DeliveryDate       *time.Time    `json:"deliveryDate"`
	DeliverTo          string        `json:"deliverTo"`
	VNPayTransactionID string        `json:"vnpayTransactionId,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	Items              []OrderItem   `json:"items"`
}

func NewOrderDetail(o *Order, email string, store *StoreContact) OrderDetail {
	d := OrderDetail{
		ID:                 o.ID,
		UserID:             o.UserID,
		StoreID:            o.StoreID,
		UserEmail:          email,
		UserName:           o.UserName,
		UserImageURL:       o.UserImageURL,
		OrderTime:          o.OrderTime,
		TotalPrice:         o.TotalPrice,
		Status:             o.Status,
		PaymentMethod:      o.PaymentMethod,
		PaymentStatus:      o.PaymentStatus,
		DeliveryDate:       o.DeliveryDate,
		DeliverTo:          o.DeliverTo,
		VNPayTransactionID: o.VNPayTransactionID,
		Notes:              o.Notes,
		Items:              append([]OrderItem(nil), o.FoodItems...),
	}
	if store != nil {
		d.StorePhoneNumber = store.PhoneNumber
	}
	return d
}

// StoreOrderSummary is what a store sees in its order list.
type StoreOrderSummary struct {
	OrderID      string             `json:"orderId"`
	UserName     string             `json:"userName"`
	UserImageURL string             `json:"userImageUrl"`
	OrderTime    time.Time          `json:"orderTime"`
	TotalPrice   float64            `json:"totalPrice"`
	OrderStatus  OrderStatus        `json:"orderStatus"`
	DeliveryDate *time.Time         `json:"deliveryDate"`
	DeliverTo    string             `json:"deliverTo"`
	FoodItems    []StoreOrderedFood `json:"foodItems"`
}

type StoreOrderedFood struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
	Quantity int     `json:"quantity"`
}

func NewStoreOrderSummary(o *Order) StoreOrderSummary {
	foods := make([]StoreOrderedFood, 0, len(o.FoodItems))
	for _, item := range o.FoodItems {
		foods = append(foods, StoreOrderedFood{
			Name:     item.Name,
			Price:    item.Price,
			ImageURL: item.ImageURL,
			Quantity: item.Quantity,
		})
	}
	return StoreOrderSummary{
		OrderID:      o.ID,
		UserName:     o.UserName,
		UserImageURL: o.UserImageURL,
		OrderTime:    o.OrderTime,
		TotalPrice:   o.TotalPrice,
		OrderStatus:  o.Status,
		DeliveryDate: o.DeliveryDate,
		DeliverTo:    o.DeliverTo,
		FoodItems:    foods,
	}
}
