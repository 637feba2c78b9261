package repository

import (
	"context"
	"fmt"

	"github.com/yeremiapane/canteen-app/models"
	"gorm.io/gorm"
)

type OrderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

func (r *OrderItemRepository) WithTx(tx *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: tx}
}

func (r *OrderItemRepository) CreateBatch(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("create order items: %w", err)
	}
	return nil
}

func (r *OrderItemRepository) ListByTransaction(ctx context.Context, transactionID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list items of %d: %w", transactionID, err)
	}
	return items, nil
}

// DeleteOrphans removes item rows whose transaction no longer exists.
func (r *OrderItemRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("transaction_id NOT IN (?)", r.db.Model(&models.Transaction{}).Select("id")).
		Delete(&models.OrderItem{})
	return res.RowsAffected, res.Error
}

func (r *OrderItemRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).Count(&n).Error
	return n, err
}
