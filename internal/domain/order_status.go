package domain

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPreparing  OrderStatus = "PREPARING"
	OrderStatusInShipping OrderStatus = "INSHIPPING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPreparing, OrderStatusCanceled, OrderStatusFailed},
	OrderStatusPreparing:  {OrderStatusInShipping, OrderStatusCanceled, OrderStatusFailed},
	OrderStatusInShipping: {OrderStatusCompleted, OrderStatusFailed},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusInShipping,
		OrderStatusCompleted, OrderStatusCanceled, OrderStatusFailed:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled || s == OrderStatusFailed
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// StoreOrderFilter narrows a store's order list. The zero value lists everything.
type StoreOrderFilter string

const (
	StoreOrderFilterAll        StoreOrderFilter = ""
	StoreOrderFilterPending    StoreOrderFilter = "pending"
	StoreOrderFilterProcessing StoreOrderFilter = "processing"
)

func (f StoreOrderFilter) IsValid() bool {
	return f == StoreOrderFilterAll || f == StoreOrderFilterPending || f == StoreOrderFilterProcessing
}
