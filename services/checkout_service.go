package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/session"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrItemUnavailable  = errors.New("item is not available")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrUnsupportedInput = errors.New("unsupported value")
)

var (
	paymentMethods = map[string]bool{"cash": true, "upi": true, "card": true}
	diningOptions  = map[string]bool{"dine_in": true, "takeaway": true}
)

// CheckoutLine is one explicitly requested item.
type CheckoutLine struct {
	InventoryID uint `json:"inventory_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"required"`
}

// CheckoutRequest places an order. When Items is empty the user's cart is used.
type CheckoutRequest struct {
	Items         []CheckoutLine `json:"items"`
	PaymentMethod string         `json:"payment_method"`
	DiningOption  string         `json:"dining_option"`
}

type CheckoutService struct {
	db       *gorm.DB
	now      func() time.Time
	location *time.Location
}

func NewCheckoutService(db *gorm.DB, loc *time.Location) *CheckoutService {
	if loc == nil {
		loc = time.Local
	}
	return &CheckoutService{db: db, now: time.Now, location: loc}
}

// Checkout turns the request (or the cart) into a pending transaction with
// normalized item rows. Stock is taken and the cart is emptied in the same
// database transaction.
func (s *CheckoutService) Checkout(ctx context.Context, sess *session.Session, req CheckoutRequest) (*models.Transaction, error) {
	if sess == nil {
		return nil, session.ErrNoSession
	}
	now := s.now().In(s.location)

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = "cash"
	}
	if !paymentMethods[method] {
		return nil, fmt.Errorf("%w: payment method %q", ErrUnsupportedInput, req.PaymentMethod)
	}
	dining := strings.ToLower(strings.TrimSpace(req.DiningOption))
	if dining == "" {
		dining = "dine_in"
	}
	if !diningOptions[dining] {
		return nil, fmt.Errorf("%w: dining option %q", ErrUnsupportedInput, req.DiningOption)
	}

	var created models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := repository.NewCartRepository(tx)
		inventory := repository.NewInventoryRepository(tx)
		transactions := repository.NewTransactionRepository(tx)
		items := repository.NewOrderItemRepository(tx)

		lines := req.Items
		fromCart := len(lines) == 0
		if fromCart {
			rows, err := carts.List(ctx, sess.ID)
			if err != nil {
				return err
			}
			for _, row := range rows {
				lines = append(lines, CheckoutLine{InventoryID: row.InventoryID, Quantity: row.Quantity})
			}
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		var (
			orderItems []models.OrderItem
			total      float64
		)
		for _, line := range lines {
			if line.Quantity <= 0 {
				return ErrInvalidQuantity
			}
			inv, err := inventory.GetByID(ctx, line.InventoryID)
			if err != nil {
				return fmt.Errorf("inventory %d: %w", line.InventoryID, err)
			}
			if !inv.IsAvailable {
				return fmt.Errorf("%w: %s", ErrItemUnavailable, inv.Name)
			}
			if err := inventory.DecrementStock(ctx, inv.ID, line.Quantity); err != nil {
				return fmt.Errorf("%w: %s", ErrItemUnavailable, inv.Name)
			}
			id := inv.ID
			orderItems = append(orderItems, models.OrderItem{
				InventoryID: &id,
				Name:        inv.Name,
				Quantity:    line.Quantity,
				Price:       inv.Price,
				Category:    inv.Category,
			})
			total += inv.Price * float64(line.Quantity)
		}

		today, err := transactions.CountSince(ctx, startOfDay(now))
		if err != nil {
			return err
		}

		created = models.Transaction{
			CustomerID:    sess.ID,
			CustomerName:  sess.Name,
			CustomerEmail: sess.Email,
			CustomerPhone: sess.Phone,
			TotalAmount:   total,
			PaymentStatus: models.PaymentPending,
			PaymentMethod: method,
			OrderStatus:   models.OrderPending,
			OrderNumber:   NewOrderNumber(now),
			TokenNumber:   int(today) + 1,
			OTP:           NewOTP(),
			DiningOption:  dining,
		}
		if err := transactions.Create(ctx, &created); err != nil {
			return err
		}
		for i := range orderItems {
			orderItems[i].TransactionID = created.ID
		}
		if err := items.CreateBatch(ctx, orderItems); err != nil {
			return err
		}
		created.OrderItems = orderItems

		if fromCart {
			return carts.Clear(ctx, sess.ID)
		}
		return nil
	})
	if err != nil {
		utils.ErrorLogger.Errorf("checkout for user %d failed: %v", sess.ID, err)
		return nil, err
	}

	utils.InfoLogger.Infof("checkout: %s token %d total %s", created.OrderNumber, created.TokenNumber, utils.FormatINR(created.TotalAmount))
	return &created, nil
}

// NewOrderNumber formats ORD-YYYYMMDD-xxxxxxxx.
func NewOrderNumber(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%s-%s", t.Format("20060102"), strings.ToUpper(suffix))
}

// NewOTP returns the 4 digit pickup code.
func NewOTP() string {
	return fmt.Sprintf("%04d", rand.Intn(10000))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
