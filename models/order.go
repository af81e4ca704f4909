package models

import (
	"time"

	"github.com/stripe/stripe-go/v79"

	"gofalre.io/storefront/models/enum"
)

// Order 代表訂單
type Order struct {
	ID         uint64           `json:"id"`
	CustomerID string           `json:"customer_id,omitempty"`
	Status     enum.OrderStatus `json:"status"`
	Currency   stripe.Currency  `json:"currency,omitempty"`
	Subtotal   float64          `json:"subtotal,omitempty"`
	Discount   float64          `json:"discount,omitempty"`
	Total      float64          `json:"total"`
	AddressID  int64            `json:"address_id,omitempty"`
	Items      []OrderItem      `json:"items,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// OrderItem 代表訂單中的單個商品項目
type OrderItem struct {
	ID        uint64    `json:"id,omitempty"`
	OrderID   uint64    `json:"order_id,omitempty"`
	ProductID ProductID `json:"product_id"`
	Name      string    `json:"name,omitempty"`
	Quantity  int64     `json:"quantity"`
	UnitPrice float64   `json:"unit_price,omitempty"`
	Subtotal  float64   `json:"subtotal,omitempty"`
}

// Address is a saved shipping address on the customer's account.
type Address struct {
	ID        int64  `json:"id"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Phone     string `json:"phone"`
	IsDefault bool   `json:"is_default"`
}

// OrderStats is the admin summary returned by /orders/stats/summary.
type OrderStats struct {
	TotalOrders  int64   `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
	Pending      int64   `json:"pending"`
	Completed    int64   `json:"completed"`
}
