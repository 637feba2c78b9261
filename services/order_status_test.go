package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteen-app/database/dbtest"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/services"
	"gorm.io/gorm"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		from     string
		want     string
		advanced bool
	}{
		{models.OrderPending, models.OrderAccepted, true},
		{models.OrderAccepted, models.OrderCooking, true},
		{models.OrderCooking, models.OrderReady, true},
		{models.OrderReady, models.OrderDelivered, true},
		{models.OrderDelivered, models.OrderDelivered, false},
		{models.OrderRejected, models.OrderRejected, false},
		{models.OrderCancelled, models.OrderCancelled, false},
		{models.OrderPreparing, models.OrderPreparing, false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got, ok := services.NextStatus(tt.from)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.advanced, ok)
		})
	}
}

func TestCanReject(t *testing.T) {
	assert.True(t, services.CanReject(models.OrderPending))
	for _, s := range []string{models.OrderAccepted, models.OrderCooking, models.OrderReady, models.OrderDelivered, models.OrderRejected, "pending"} {
		assert.False(t, services.CanReject(s), s)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, services.CanTransition(models.OrderPending, models.OrderAccepted))
	assert.True(t, services.CanTransition(models.OrderCooking, models.OrderCancelled))
	assert.True(t, services.CanTransition(models.OrderPending, models.OrderRejected))
	assert.False(t, services.CanTransition(models.OrderAccepted, models.OrderRejected))
	assert.False(t, services.CanTransition(models.OrderPending, models.OrderReady))
	assert.False(t, services.CanTransition(models.OrderDelivered, models.OrderCancelled))
	assert.False(t, services.CanTransition(models.OrderPending, "Teleported"))
}

func paidOrder(t *testing.T, db *gorm.DB, status string) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		OrderNumber:   services.NewOrderNumber(timeNow()),
		PaymentStatus: models.PaymentSuccess,
		OrderStatus:   status,
		TotalAmount:   40,
	}
	require.NoError(t, db.Create(tx).Error)
	return tx
}

func TestOrderServiceAdvanceWalksTheFlow(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	svc := services.NewOrderService(db)
	order := paidOrder(t, db, models.OrderPending)

	for _, want := range []string{models.OrderAccepted, models.OrderCooking, models.OrderReady, models.OrderDelivered} {
		got, err := svc.Advance(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.OrderStatus)
	}

	got, err := svc.Advance(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, got.OrderStatus, "delivered is terminal")
}

func TestOrderServiceRejectOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	svc := services.NewOrderService(db)

	pending := paidOrder(t, db, models.OrderPending)
	got, err := svc.Reject(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderRejected, got.OrderStatus)

	got, err = svc.Advance(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderRejected, got.OrderStatus, "rejected cannot be advanced")

	cooking := paidOrder(t, db, models.OrderCooking)
	got, err = svc.Reject(ctx, cooking.ID)
	assert.ErrorIs(t, err, services.ErrNotRejectable)
	assert.Equal(t, models.OrderCooking, got.OrderStatus)
}

func TestOrderServiceAdvanceRequiresPayment(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	svc := services.NewOrderService(db)

	unpaid := &models.Transaction{OrderNumber: "ORD-UNPAID", PaymentStatus: models.PaymentPending}
	require.NoError(t, db.Create(unpaid).Error)

	got, err := svc.Advance(ctx, unpaid.ID)
	assert.ErrorIs(t, err, services.ErrNotPaid)
	assert.Equal(t, models.OrderPending, got.OrderStatus)
}

func TestOrderServiceSetStatus(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	svc := services.NewOrderService(db)
	order := paidOrder(t, db, models.OrderAccepted)

	_, err := svc.SetStatus(ctx, order.ID, models.OrderDelivered)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	got, err := svc.SetStatus(ctx, order.ID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.OrderStatus)
}
