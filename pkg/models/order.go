package models

import (
	"encoding/json"
	"time"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodCOD      = "COD"
)

// Payment status of a persisted order.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusCOD     = "cod"
)

const OrderStatusPlaced = "placed"

// Order is append-only: created once per successful checkout, never mutated.
// Items is a denormalized JSON snapshot of the cart lines at purchase time,
// so the order has no dependency on mutable cart state.
type Order struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CheckoutKey   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"checkout_key"`
	UserID        string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	CustomerName  string    `gorm:"type:varchar(200);not null" json:"customer_name"`
	Phone         string    `gorm:"type:varchar(20);not null" json:"phone"`
	Address       string    `gorm:"type:text;not null" json:"address"`
	Items         string    `gorm:"type:text" json:"items"` // JSON string
	Amount        float64   `gorm:"type:decimal(10,2)" json:"amount"`
	PaymentMethod string    `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus string    `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	PaymentID     string    `gorm:"type:varchar(64)" json:"payment_id,omitempty"`
	OrderStatus   string    `gorm:"type:varchar(20);default:'placed'" json:"order_status"`
	TrackingID    string    `gorm:"type:varchar(64)" json:"tracking_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// SetItems stores the line snapshot as the JSON column value.
func (o *Order) SetItems(items []OrderItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	o.Items = string(data)
	return nil
}

// ItemList decodes the JSON items column.
func (o *Order) ItemList() ([]OrderItem, error) {
	if o.Items == "" {
		return nil, nil
	}
	var items []OrderItem
	if err := json.Unmarshal([]byte(o.Items), &items); err != nil {
		return nil, err
	}
	return items, nil
}
