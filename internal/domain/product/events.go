package product

import "time"

const (
	EventProductCreated = "ProductCreated"
	EventProductUpdated = "ProductUpdated"
	EventProductDeleted = "ProductDeleted"
)

type ProductCreated struct {
	ProductID int       `json:"product_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     int64     `json:"price"`
	Inventory int       `json:"inventory"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductUpdated struct {
	ProductID int       `json:"product_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     int64     `json:"price"`
	Inventory int       `json:"inventory"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProductDeleted struct {
	ProductID int       `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
