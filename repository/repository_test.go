package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteen-app/database/dbtest"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
)

func TestTransactionListFilters(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := repository.NewTransactionRepository(db)

	now := time.Now()
	rows := []models.Transaction{
		{OrderNumber: "A", PaymentStatus: models.PaymentSuccess, OrderStatus: models.OrderPending, CreatedAt: now.Add(-2 * time.Hour)},
		{OrderNumber: "B", PaymentStatus: models.PaymentSuccess, OrderStatus: models.OrderReady, CreatedAt: now.Add(-1 * time.Hour)},
		{OrderNumber: "C", PaymentStatus: models.PaymentPending, OrderStatus: models.OrderPending, CreatedAt: now},
		{OrderNumber: "D", PaymentStatus: models.PaymentSuccess, OrderStatus: models.OrderPending, CreatedAt: now.Add(-48 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}

	paid, err := repo.List(ctx, repository.TransactionFilter{PaymentStatus: models.PaymentSuccess})
	require.NoError(t, err)
	require.Len(t, paid, 3)
	assert.Equal(t, "B", paid[0].OrderNumber, "newest first")

	pendingToday, err := repo.List(ctx, repository.TransactionFilter{
		PaymentStatus: models.PaymentSuccess,
		OrderStatuses: []string{models.OrderPending},
		Since:         now.Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, pendingToday, 1)
	assert.Equal(t, "A", pendingToday[0].OrderNumber)

	limited, err := repo.List(ctx, repository.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestUpdateOrderStatusLastWriteWins(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := repository.NewTransactionRepository(db)

	tx := models.Transaction{OrderNumber: "X", PaymentStatus: models.PaymentSuccess, OrderStatus: models.OrderPending}
	require.NoError(t, repo.Create(ctx, &tx))

	require.NoError(t, repo.UpdateOrderStatus(ctx, tx.ID, models.OrderAccepted))
	require.NoError(t, repo.UpdateOrderStatus(ctx, tx.ID, models.OrderRejected))

	got, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderRejected, got.OrderStatus)

	assert.ErrorIs(t, repo.UpdateOrderStatus(ctx, 9999, models.OrderAccepted), repository.ErrNotFound)
}

func TestCartUpsertAndClear(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	inv := repository.NewInventoryRepository(db)
	carts := repository.NewCartRepository(db)

	tea := models.InventoryItem{Name: "Tea", Price: 10, Quantity: 50, IsAvailable: true}
	require.NoError(t, inv.Create(ctx, &tea))

	_, err := carts.Upsert(ctx, 1, tea.ID, 2)
	require.NoError(t, err)
	_, err = carts.Upsert(ctx, 1, tea.ID, 5)
	require.NoError(t, err)

	rows, err := carts.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Quantity)
	assert.Equal(t, "Tea", rows[0].Inventory.Name)

	require.NoError(t, carts.Clear(ctx, 1))
	rows, err = carts.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.ErrorIs(t, carts.Remove(ctx, 1, tea.ID), repository.ErrNotFound)
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	inv := repository.NewInventoryRepository(db)

	vada := models.InventoryItem{Name: "Vada", Price: 20, Quantity: 3, IsAvailable: true}
	require.NoError(t, inv.Create(ctx, &vada))

	require.NoError(t, inv.DecrementStock(ctx, vada.ID, 2))
	assert.Error(t, inv.DecrementStock(ctx, vada.ID, 2))

	got, err := inv.GetByID(ctx, vada.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
}

func TestDeleteOrphans(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	items := repository.NewOrderItemRepository(db)

	tx := models.Transaction{OrderNumber: "O1"}
	require.NoError(t, db.Create(&tx).Error)
	require.NoError(t, items.CreateBatch(ctx, []models.OrderItem{
		{TransactionID: tx.ID, Name: "Tea", Quantity: 1, Price: 10},
		{TransactionID: tx.ID + 100, Name: "Ghost", Quantity: 1, Price: 10},
	}))

	removed, err := items.DeleteOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := items.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)
}

func TestDayWindowsInNonUTCZone(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := repository.NewTransactionRepository(db)
	ist := time.FixedZone("IST", 5*3600+1800)

	rows := []models.Transaction{
		// 00:30 on 6 March in IST.
		{OrderNumber: "EARLY", PaymentStatus: models.PaymentSuccess, CreatedAt: time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)},
		// 23:45 on 5 March in IST, written with an IST timestamp.
		{OrderNumber: "LATE", PaymentStatus: models.PaymentSuccess, CreatedAt: time.Date(2024, 3, 5, 23, 45, 0, 0, ist)},
	}
	for i := range rows {
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}

	midnight := time.Date(2024, 3, 6, 0, 0, 0, 0, ist)
	today, err := repo.List(ctx, repository.TransactionFilter{Since: midnight})
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "EARLY", today[0].OrderNumber)

	yesterday, err := repo.List(ctx, repository.TransactionFilter{Since: midnight.AddDate(0, 0, -1), Until: midnight})
	require.NoError(t, err)
	require.Len(t, yesterday, 1)
	assert.Equal(t, "LATE", yesterday[0].OrderNumber)

	n, err := repo.CountSince(ctx, midnight)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
