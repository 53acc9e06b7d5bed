package models

import "time"

const (
	// MinItemQuantity and MaxItemQuantity bound a single cart line.
	MinItemQuantity = 1
	MaxItemQuantity = 99

	// CartTTL is how long a cart lives after its last mutation.
	CartTTL = 30 * 24 * time.Hour
)

type CartItem struct {
	ID        string    `json:"id" bson:"id"`
	ProductID string    `json:"product_id" bson:"product_id"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	Variant   Variant   `json:"variant,omitempty" bson:"variant,omitempty"`
	AddedAt   time.Time `json:"added_at" bson:"added_at"`
}

// Matches reports whether this line holds the same selection, i.e. the same
// product with the same canonical variant.
func (ci CartItem) Matches(productID string, variant Variant) bool {
	return ci.ProductID == productID && ci.Variant.Equal(variant)
}

type Cart struct {
	UserID    string     `json:"user_id" bson:"user_id"`
	Items     []CartItem `json:"items" bson:"items"`
	ExpiresAt time.Time  `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// FindLine returns the index of the line matching (productID, variant),
// or -1 if absent.
func (c *Cart) FindLine(productID string, variant Variant) int {
	for i, item := range c.Items {
		if item.Matches(productID, variant) {
			return i
		}
	}
	return -1
}

// FindItem returns the index of the line with the given item ID, or -1.
func (c *Cart) FindItem(itemID string) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// Touch refreshes the cart expiry relative to now.
func (c *Cart) Touch(now time.Time) {
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(CartTTL)
}
