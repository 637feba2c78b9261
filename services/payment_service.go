package services

import (
	"context"
	"errors"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

var ErrPaymentSettled = errors.New("payment already settled")

// PaymentService settles the payment of a transaction.
type PaymentService struct {
	db           *gorm.DB
	transactions *repository.TransactionRepository
	now          func() time.Time
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{
		db:           db,
		transactions: repository.NewTransactionRepository(db),
		now:          time.Now,
	}
}

// Confirm marks a pending payment as successful, which makes the order
// visible to staff.
func (s *PaymentService) Confirm(ctx context.Context, id uint) (*models.Transaction, error) {
	return s.settle(ctx, id, models.PaymentSuccess)
}

// Fail marks a pending payment as failed and cancels the order.
func (s *PaymentService) Fail(ctx context.Context, id uint) (*models.Transaction, error) {
	return s.settle(ctx, id, models.PaymentFailed)
}

func (s *PaymentService) settle(ctx context.Context, id uint, status string) (*models.Transaction, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.transactions.WithTx(tx)
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.PaymentStatus != models.PaymentPending {
			return ErrPaymentSettled
		}
		if err := repo.UpdatePaymentStatus(ctx, id, status); err != nil {
			return err
		}
		if status == models.PaymentFailed {
			return repo.UpdateOrderStatus(ctx, id, models.OrderCancelled)
		}
		return nil
	})
	if err != nil {
		utils.ErrorLogger.Errorf("payment %d -> %s failed: %v", id, status, err)
		return nil, err
	}
	utils.InfoLogger.Infof("payment %d settled as %s", id, status)
	return s.transactions.GetByID(ctx, id)
}

// ExpirePending fails every payment still pending after timeout and returns
// how many were expired.
func (s *PaymentService) ExpirePending(ctx context.Context, timeout time.Duration) (int, error) {
	stale, err := s.transactions.List(ctx, repository.TransactionFilter{
		PaymentStatus: models.PaymentPending,
		Until:         s.now().Add(-timeout),
	})
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, t := range stale {
		if _, err := s.Fail(ctx, t.ID); err != nil {
			continue
		}
		expired++
	}
	if expired > 0 {
		utils.InfoLogger.Infof("expired %d pending payments older than %s", expired, timeout)
	}
	return expired, nil
}

// StartTimeoutChecker runs ExpirePending every interval until ctx is done.
func (s *PaymentService) StartTimeoutChecker(ctx context.Context, interval, timeout time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.ExpirePending(ctx, timeout); err != nil {
					utils.ErrorLogger.Errorf("checking expired payments: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	utils.InfoLogger.Println("Payment timeout checker started")
}
