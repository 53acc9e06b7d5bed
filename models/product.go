package models

import "github.com/shopspring/decimal"

// Product is owned by the catalog service. The core reads it and adjusts
// stock through the inventory guard, but never creates or deletes one.
type Product struct {
	ID            string          `json:"id" bson:"_id"`
	Name          string          `json:"name" bson:"name"`
	Price         decimal.Decimal `json:"price" bson:"-"`
	StockQuantity int             `json:"stock_quantity" bson:"stock_quantity"`
	IsActive      bool            `json:"is_active" bson:"is_active"`
}

// StockWarning is the soft add-to-cart signal that a requested quantity
// already exceeds the last known stock. The hard check happens at checkout.
type StockWarning struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
