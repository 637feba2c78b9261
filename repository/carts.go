package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/canteen-app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) WithTx(tx *gorm.DB) *CartRepository {
	return &CartRepository{db: tx}
}

func (r *CartRepository) List(ctx context.Context, userID uint) ([]models.UserCart, error) {
	var rows []models.UserCart
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list cart of %d: %w", userID, err)
	}
	return rows, nil
}

// Upsert sets the quantity of one inventory item in the user's cart.
func (r *CartRepository) Upsert(ctx context.Context, userID, inventoryID uint, quantity int) (*models.UserCart, error) {
	row := models.UserCart{UserID: userID, InventoryID: inventoryID, Quantity: quantity}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "inventory_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}
	return &row, nil
}

func (r *CartRepository) Remove(ctx context.Context, userID, inventoryID uint) error {
	var row models.UserCart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND inventory_id = ?", userID, inventoryID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&row).Error
}

// Clear empties the cart row by row so every delete is captured.
func (r *CartRepository) Clear(ctx context.Context, userID uint) error {
	var rows []models.UserCart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		if err := r.db.WithContext(ctx).Delete(&rows[i]).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
	}
	return nil
}
