package models

import (
	"time"
)

type OrderItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TransactionID uint      `gorm:"not null;index" json:"transaction_id"`
	InventoryID   *uint     `json:"inventory_id,omitempty"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	Price         float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Category      string    `gorm:"type:varchar(100)" json:"category"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

// Subtotal harga x jumlah
func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
