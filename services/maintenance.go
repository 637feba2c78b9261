package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

// NormalizeResult reports what NormalizeItems did.
type NormalizeResult struct {
	Scanned    int `json:"scanned"`
	Normalized int `json:"normalized"`
	Cleared    int `json:"cleared"`
	Failed     int `json:"failed"`
}

// Health is a row count per table.
type Health struct {
	Transactions int64 `json:"transactions"`
	OrderItems   int64 `json:"order_items"`
	Inventory    int64 `json:"inventory"`
	Pending      int64 `json:"pending_changes"`
}

type Maintenance struct {
	db *gorm.DB
}

func NewMaintenance(db *gorm.DB) *Maintenance {
	return &Maintenance{db: db}
}

// NormalizeItems moves embedded JSON items into order_items rows for every
// transaction that still has them, then clears the JSON column. Transactions
// that already have rows only get the JSON cleared.
func (m *Maintenance) NormalizeItems(ctx context.Context) (NormalizeResult, error) {
	var res NormalizeResult
	rows, err := repository.NewTransactionRepository(m.db).WithEmbeddedItems(ctx)
	if err != nil {
		return res, err
	}
	for i := range rows {
		res.Scanned++
		t := &rows[i]
		wrote, err := m.normalizeOne(ctx, t)
		if err != nil {
			res.Failed++
			utils.ErrorLogger.Errorf("normalize items of transaction %d: %v", t.ID, err)
			continue
		}
		if wrote {
			res.Normalized++
		} else {
			res.Cleared++
		}
	}
	utils.InfoLogger.Infof("normalize items: %+v", res)
	return res, nil
}

func (m *Maintenance) normalizeOne(ctx context.Context, t *models.Transaction) (bool, error) {
	wrote := false
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := repository.NewOrderItemRepository(tx)
		transactions := repository.NewTransactionRepository(tx)

		existing, err := items.ListByTransaction(ctx, t.ID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			embedded, err := repository.DecodeEmbedded(t.Items)
			if err != nil {
				return err
			}
			rows := make([]models.OrderItem, 0, len(embedded))
			for _, e := range embedded {
				rows = append(rows, models.OrderItem{
					TransactionID: t.ID,
					Name:          e.Name,
					Quantity:      e.Quantity,
					Price:         e.Price,
					Category:      e.Category,
				})
			}
			if err := items.CreateBatch(ctx, rows); err != nil {
				return err
			}
			wrote = len(rows) > 0
		}
		return transactions.ClearEmbeddedItems(ctx, t.ID)
	})
	return wrote, err
}

// DeleteOrphanItems removes order_items rows whose transaction is gone.
func (m *Maintenance) DeleteOrphanItems(ctx context.Context) (int64, error) {
	n, err := repository.NewOrderItemRepository(m.db).DeleteOrphans(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete orphan items: %w", err)
	}
	if n > 0 {
		utils.InfoLogger.Infof("deleted %d orphaned order items", n)
	}
	return n, nil
}

func (m *Maintenance) Health(ctx context.Context) (Health, error) {
	var h Health
	var errs []error
	var err error
	h.Transactions, err = repository.NewTransactionRepository(m.db).Count(ctx)
	errs = append(errs, err)
	h.OrderItems, err = repository.NewOrderItemRepository(m.db).Count(ctx)
	errs = append(errs, err)
	h.Inventory, err = repository.NewInventoryRepository(m.db).Count(ctx)
	errs = append(errs, err)
	err = m.db.WithContext(ctx).Model(&models.DBChange{}).Where("processed = ?", false).Count(&h.Pending).Error
	errs = append(errs, err)
	return h, errors.Join(errs...)
}
