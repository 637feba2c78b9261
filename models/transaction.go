package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment status
const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Order status
const (
	OrderPending   = "Pending"
	OrderAccepted  = "Accepted"
	OrderCooking   = "Cooking"
	OrderReady     = "Ready"
	OrderDelivered = "Delivered"
	OrderRejected  = "Rejected"
	OrderCancelled = "Cancelled"

	// OrderPreparing is the label older clients wrote before "Cooking" existed.
	OrderPreparing = "Preparing"
)

// Transaction adalah satu order + pembayaran customer
type Transaction struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CustomerID    uint           `gorm:"index" json:"customer_id"`
	CustomerName  string         `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail string         `gorm:"type:varchar(255);index" json:"customer_email"`
	CustomerPhone string         `gorm:"type:varchar(30)" json:"customer_phone"`
	TotalAmount   float64        `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	PaymentStatus string         `gorm:"type:varchar(15);not null;default:'pending';index" json:"payment_status"`
	PaymentMethod string         `gorm:"type:varchar(20);not null;default:'cash'" json:"payment_method"`
	OrderStatus   string         `gorm:"type:varchar(20);not null;default:'Pending';index" json:"order_status"`
	OrderNumber   string         `gorm:"type:varchar(40);index" json:"order_number"`
	TokenNumber   int            `json:"token_number"`
	OTP           string         `gorm:"column:otp;type:varchar(6)" json:"otp"`
	DiningOption  string         `gorm:"type:varchar(20);default:'dine_in'" json:"dining_option"`
	Items         datatypes.JSON `json:"items,omitempty"`
	OrderItems    []OrderItem    `gorm:"foreignKey:TransactionID" json:"order_items,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

// EmbeddedItem is one element of the legacy Transaction.Items JSON array.
type EmbeddedItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
}

// IsPaid reports whether staff views should consider the row.
func (t *Transaction) IsPaid() bool {
	return t.PaymentStatus == PaymentSuccess
}

// BeforeSave stores explicit timestamps in UTC, matching the NowFunc the
// database is opened with.
func (t *Transaction) BeforeSave(*gorm.DB) error {
	if !t.CreatedAt.IsZero() {
		t.CreatedAt = t.CreatedAt.UTC()
	}
	if !t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.UpdatedAt.UTC()
	}
	return nil
}
