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

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotRejectable     = errors.New("only pending orders can be rejected")
	ErrNotPaid           = errors.New("order is not paid")
)

// nextStatus is the linear kitchen flow.
var nextStatus = map[string]string{
	models.OrderPending:  models.OrderAccepted,
	models.OrderAccepted: models.OrderCooking,
	models.OrderCooking:  models.OrderReady,
	models.OrderReady:    models.OrderDelivered,
}

var knownStatus = map[string]bool{
	models.OrderPending:   true,
	models.OrderAccepted:  true,
	models.OrderCooking:   true,
	models.OrderReady:     true,
	models.OrderDelivered: true,
	models.OrderRejected:  true,
	models.OrderCancelled: true,
}

// NextStatus returns the status that follows s. For Delivered, Rejected,
// Cancelled and anything unknown it returns s and false.
func NextStatus(s string) (string, bool) {
	next, ok := nextStatus[s]
	if !ok {
		return s, false
	}
	return next, true
}

// CanReject is true only for Pending.
func CanReject(s string) bool {
	return s == models.OrderPending
}

// IsTerminal reports whether no further transition is allowed from s.
func IsTerminal(s string) bool {
	return s == models.OrderDelivered || s == models.OrderRejected || s == models.OrderCancelled
}

// CanTransition reports whether a staff member may move an order from one
// status to another by setting it explicitly.
func CanTransition(from, to string) bool {
	if !knownStatus[to] || IsTerminal(from) {
		return false
	}
	switch to {
	case models.OrderCancelled:
		return true
	case models.OrderRejected:
		return CanReject(from)
	}
	next, ok := NextStatus(from)
	return ok && next == to
}

type OrderService struct {
	transactions *repository.TransactionRepository
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{transactions: repository.NewTransactionRepository(db)}
}

// Advance moves a paid order one step forward. Orders with no next step are
// returned unchanged. The read and the write are not guarded against a
// concurrent writer; the later write wins.
func (s *OrderService) Advance(ctx context.Context, id uint) (*models.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsPaid() {
		return t, ErrNotPaid
	}
	next, ok := NextStatus(t.OrderStatus)
	if !ok {
		return t, nil
	}
	return s.write(ctx, t, next)
}

// Reject marks a pending order as Rejected.
func (s *OrderService) Reject(ctx context.Context, id uint) (*models.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanReject(t.OrderStatus) {
		return t, ErrNotRejectable
	}
	return s.write(ctx, t, models.OrderRejected)
}

// SetStatus applies an explicit status after checking CanTransition.
func (s *OrderService) SetStatus(ctx context.Context, id uint, status string) (*models.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(t.OrderStatus, status) {
		return t, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.OrderStatus, status)
	}
	return s.write(ctx, t, status)
}

// write issues the single-row update and re-reads the row. On failure the
// error is logged and the old row is returned as is; nothing is retried.
func (s *OrderService) write(ctx context.Context, t *models.Transaction, status string) (*models.Transaction, error) {
	if err := s.transactions.UpdateOrderStatus(ctx, t.ID, status); err != nil {
		utils.ErrorLogger.Errorf("order %d: update %s -> %s failed: %v", t.ID, t.OrderStatus, status, err)
		return t, err
	}
	utils.InfoLogger.Infof("order %d (%s): %s -> %s", t.ID, t.OrderNumber, t.OrderStatus, status)
	return s.transactions.GetByID(ctx, t.ID)
}
