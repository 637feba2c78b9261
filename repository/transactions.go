// Package repository holds the data-access functions for the canteen tables.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// TransactionFilter narrows List. Zero values are ignored.
type TransactionFilter struct {
	PaymentStatus string
	OrderStatuses []string
	CustomerID    uint
	Since         time.Time
	Until         time.Time
	Limit         int
	WithItems     bool
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	if err := r.db.WithContext(ctx).Omit("OrderItems").Create(t).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.WithContext(ctx).Preload("OrderItems").First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return &t, nil
}

// List returns matching rows, newest first.
func (r *TransactionRepository) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if len(f.OrderStatuses) > 0 {
		q = q.Where("order_status IN ?", f.OrderStatuses)
	}
	if f.CustomerID != 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at < ?", f.Until.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.WithItems {
		q = q.Preload("OrderItems")
	}

	var rows []models.Transaction
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

// UpdateOrderStatus writes the status of one row. There is no version check:
// concurrent writers race and the last write wins.
func (r *TransactionRepository) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{ID: id}).Update("order_status", status)
	if res.Error != nil {
		return fmt.Errorf("update order status of %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) UpdatePaymentStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{ID: id}).Update("payment_status", status)
	if res.Error != nil {
		return fmt.Errorf("update payment status of %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearEmbeddedItems drops the legacy JSON once items are normalized.
func (r *TransactionRepository) ClearEmbeddedItems(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Transaction{ID: id}).Update("items", nil).Error
}

// CountSince counts transactions created at or after since (token numbers).
// The counted range is locked FOR UPDATE, so on MySQL concurrent checkouts
// inside a transaction wait for each other instead of sharing a token. SQLite
// has no row locks; its single connection serializes writers already.
func (r *TransactionRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("created_at >= ?", since.UTC()).
		Count(&n).Error
	return n, err
}

// WithEmbeddedItems lists transactions that still carry legacy JSON items.
func (r *TransactionRepository) WithEmbeddedItems(ctx context.Context) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("items IS NOT NULL").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).Count(&n).Error
	return n, err
}
