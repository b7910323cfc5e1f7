package data

import "time"

// Order ist die Sicht des Mailers auf eine Bestellung aus dem Shop-Backend.
type Order struct {
	ID              string      `json:"id" binding:"required"`
	CustomerName    string      `json:"customer_name" binding:"required"`
	CustomerEmail   string      `json:"customer_email" binding:"required,email"`
	Items           []OrderItem `json:"items" binding:"dive"`
	Total           float64     `json:"total" binding:"gte=0"`
	Currency        string      `json:"currency,omitempty"`
	Status          string      `json:"status,omitempty"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	CreatedAt       time.Time   `json:"created_at,omitempty"`
}

type OrderItem struct {
	Name      string  `json:"name" binding:"required"`
	Quantity  int     `json:"quantity" binding:"gte=1"`
	UnitPrice float64 `json:"unit_price" binding:"gte=0"`
}

// LineTotal returns quantity * unit price.
func (i OrderItem) LineTotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}
