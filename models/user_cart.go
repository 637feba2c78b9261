package models

import "time"

type UserCart struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"not null;uniqueIndex:idx_cart_user_item" json:"user_id"`
	InventoryID uint          `gorm:"not null;uniqueIndex:idx_cart_user_item" json:"inventory_id"`
	Inventory   InventoryItem `gorm:"foreignKey:InventoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"inventory"`
	Quantity    int           `gorm:"not null;default:1" json:"quantity"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (UserCart) TableName() string {
	return "user_cart"
}
