package domain

// Food is the catalog's view of a dish. Soft-deleted foods never leave the catalog lookup.
type Food struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	StoreID     string  `json:"storeId"`
	IsAvailable bool    `json:"isAvailable"`
}

type UserProfile struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Image    string `json:"image"`
	Address  string `json:"address"`
}

// StoreContact is what a customer sees about the store fulfilling an order.
type StoreContact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}
