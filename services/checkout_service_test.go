package services_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteen-app/database/dbtest"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/services"
	"github.com/yeremiapane/canteen-app/session"
)

func timeNow() time.Time { return time.Now() }

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)

func TestCheckoutFromCart(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	inv := repository.NewInventoryRepository(db)
	carts := repository.NewCartRepository(db)

	tea := models.InventoryItem{Name: "Tea", Category: "Beverages", Price: 10, Quantity: 20, IsAvailable: true}
	dosa := models.InventoryItem{Name: "Dosa", Category: "Breakfast", Price: 45, Quantity: 5, IsAvailable: true}
	require.NoError(t, inv.Create(ctx, &tea))
	require.NoError(t, inv.Create(ctx, &dosa))

	sess := &session.Session{ID: 7, Name: "Asha", Email: "asha@college.edu"}
	_, err := carts.Upsert(ctx, sess.ID, tea.ID, 2)
	require.NoError(t, err)
	_, err = carts.Upsert(ctx, sess.ID, dosa.ID, 1)
	require.NoError(t, err)

	svc := services.NewCheckoutService(db, time.Local)
	order, err := svc.Checkout(ctx, sess, services.CheckoutRequest{PaymentMethod: "UPI"})
	require.NoError(t, err)

	assert.Equal(t, 65.0, order.TotalAmount)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, models.OrderPending, order.OrderStatus)
	assert.Equal(t, "upi", order.PaymentMethod)
	assert.Equal(t, "dine_in", order.DiningOption)
	assert.Equal(t, 1, order.TokenNumber)
	assert.Len(t, order.OTP, 4)
	assert.Regexp(t, orderNumberPattern, order.OrderNumber)
	assert.Equal(t, "asha@college.edu", order.CustomerEmail)

	rows, err := repository.NewOrderItemRepository(db).ListByTransaction(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	left, err := carts.List(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	got, err := inv.GetByID(ctx, tea.ID)
	require.NoError(t, err)
	assert.Equal(t, 18, got.Quantity)

	second, err := svc.Checkout(ctx, sess, services.CheckoutRequest{
		Items: []services.CheckoutLine{{InventoryID: tea.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.TokenNumber)
}

func TestCheckoutRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	inv := repository.NewInventoryRepository(db)
	svc := services.NewCheckoutService(db, time.Local)
	sess := &session.Session{ID: 1, Email: "a@b.c"}

	_, err := svc.Checkout(ctx, nil, services.CheckoutRequest{})
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = svc.Checkout(ctx, sess, services.CheckoutRequest{})
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	vada := models.InventoryItem{Name: "Vada", Price: 15, Quantity: 1, IsAvailable: true}
	require.NoError(t, inv.Create(ctx, &vada))

	_, err = svc.Checkout(ctx, sess, services.CheckoutRequest{Items: []services.CheckoutLine{{InventoryID: vada.ID, Quantity: 3}}})
	assert.ErrorIs(t, err, services.ErrItemUnavailable)

	_, err = svc.Checkout(ctx, sess, services.CheckoutRequest{
		Items:         []services.CheckoutLine{{InventoryID: vada.ID, Quantity: 1}},
		PaymentMethod: "barter",
	})
	assert.ErrorIs(t, err, services.ErrUnsupportedInput)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count, "failed checkouts leave nothing behind")

	got, err := inv.GetByID(ctx, vada.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
}

func TestPaymentConfirmAndFail(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	svc := services.NewPaymentService(db)

	a := &models.Transaction{OrderNumber: "A", PaymentStatus: models.PaymentPending}
	b := &models.Transaction{OrderNumber: "B", PaymentStatus: models.PaymentPending}
	require.NoError(t, db.Create(a).Error)
	require.NoError(t, db.Create(b).Error)

	got, err := svc.Confirm(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, got.PaymentStatus)
	assert.Equal(t, models.OrderPending, got.OrderStatus)

	_, err = svc.Confirm(ctx, a.ID)
	assert.ErrorIs(t, err, services.ErrPaymentSettled)

	got, err = svc.Fail(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, models.OrderCancelled, got.OrderStatus)
}

func TestExpirePending(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	svc := services.NewPaymentService(db)

	stale := &models.Transaction{OrderNumber: "OLD", PaymentStatus: models.PaymentPending, CreatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := &models.Transaction{OrderNumber: "NEW", PaymentStatus: models.PaymentPending}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Create(fresh).Error)

	n, err := svc.ExpirePending(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got models.Transaction
	require.NoError(t, db.First(&got, fresh.ID).Error)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestCanteenHours(t *testing.T) {
	hours := services.NewCanteenHours(time.UTC)
	at := func(h, m int) time.Time { return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC) }

	assert.False(t, hours.IsOpen(at(5, 59)))
	assert.True(t, hours.IsOpen(at(6, 0)))
	assert.True(t, hours.IsOpen(at(18, 59)))
	assert.False(t, hours.IsOpen(at(19, 0)))

	status := hours.Status(at(12, 30))
	assert.True(t, status.Open)
	assert.Equal(t, "12:30", status.LocalTime)
}

func TestConcurrentCheckoutsGetDistinctTokens(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	tea := models.InventoryItem{Name: "Tea", Price: 10, Quantity: 50, IsAvailable: true}
	require.NoError(t, repository.NewInventoryRepository(db).Create(ctx, &tea))
	svc := services.NewCheckoutService(db, time.UTC)

	const buyers = 8
	tokens := make(chan int, buyers)
	var wg sync.WaitGroup
	for i := 1; i <= buyers; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			order, err := svc.Checkout(ctx, &session.Session{ID: id}, services.CheckoutRequest{
				Items: []services.CheckoutLine{{InventoryID: tea.ID, Quantity: 1}},
			})
			if assert.NoError(t, err) {
				tokens <- order.TokenNumber
			}
		}(uint(i))
	}
	wg.Wait()
	close(tokens)

	seen := make(map[int]bool)
	for tok := range tokens {
		assert.False(t, seen[tok], "token %d issued twice", tok)
		seen[tok] = true
	}
	assert.Len(t, seen, buyers)
}
