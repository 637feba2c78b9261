package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/middlewares"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/services"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

const maxListLimit = 200

type TransactionController struct {
	DB           *gorm.DB
	transactions *repository.TransactionRepository
	checkout     *services.CheckoutService
	orders       *services.OrderService
	payments     *services.PaymentService
	location     *time.Location
}

func NewTransactionController(db *gorm.DB, loc *time.Location) *TransactionController {
	if loc == nil {
		loc = time.Local
	}
	return &TransactionController{
		DB:           db,
		transactions: repository.NewTransactionRepository(db),
		checkout:     services.NewCheckoutService(db, loc),
		orders:       services.NewOrderService(db),
		payments:     services.NewPaymentService(db),
		location:     loc,
	}
}

// Checkout places an order from the request items or the caller's cart.
func (tc *TransactionController) Checkout(c *gin.Context) {
	sess, err := middlewares.CurrentSession(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	var req services.CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
	}
	t, err := tc.checkout.Checkout(c.Request.Context(), sess, req)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order placed", t)
}

// MyTransactions lists the caller's own orders, newest first.
func (tc *TransactionController) MyTransactions(c *gin.Context) {
	sess, err := middlewares.CurrentSession(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	rows, err := tc.transactions.List(c.Request.Context(), repository.TransactionFilter{
		CustomerID: sess.ID,
		WithItems:  true,
		Limit:      listLimit(c),
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", rows)
}

// ownTransaction loads the :id transaction; customers only see their own.
func (tc *TransactionController) ownTransaction(c *gin.Context) (*models.Transaction, bool) {
	sess, err := middlewares.CurrentSession(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return nil, false
	}
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return nil, false
	}
	t, err := tc.transactions.GetByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return nil, false
	}
	if t.CustomerID != sess.ID && !sess.IsStaff() {
		utils.RespondError(c, http.StatusNotFound, repository.ErrNotFound)
		return nil, false
	}
	return t, true
}

func (tc *TransactionController) GetTransaction(c *gin.Context) {
	t, ok := tc.ownTransaction(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", t)
}

// Pay confirms the payment of the caller's pending order.
func (tc *TransactionController) Pay(c *gin.Context) {
	t, ok := tc.ownTransaction(c)
	if !ok {
		return
	}
	paid, err := tc.payments.Confirm(c.Request.Context(), t.ID)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment successful", paid)
}

// StaffTransactions lists orders for the kitchen. By default only paid
// orders are returned; ?payment_status= and ?status=a,b narrow the list.
func (tc *TransactionController) StaffTransactions(c *gin.Context) {
	filter := repository.TransactionFilter{
		PaymentStatus: c.DefaultQuery("payment_status", models.PaymentSuccess),
		WithItems:     true,
		Limit:         listLimit(c),
	}
	if filter.PaymentStatus == "all" {
		filter.PaymentStatus = ""
	}
	if s := c.Query("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.OrderStatuses = append(filter.OrderStatuses, part)
			}
		}
	}
	if d := c.Query("date"); d != "" {
		day, err := time.ParseInLocation("2006-01-02", d, tc.location)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		filter.Since = day
		filter.Until = day.AddDate(0, 0, 1)
	}

	rows, err := tc.transactions.List(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", rows)
}

func (tc *TransactionController) Advance(c *gin.Context) {
	tc.staffAction(c, "Order status updated", tc.orders.Advance)
}

func (tc *TransactionController) Reject(c *gin.Context) {
	tc.staffAction(c, "Order rejected", tc.orders.Reject)
}

func (tc *TransactionController) PaymentFailed(c *gin.Context) {
	tc.staffAction(c, "Payment marked as failed", tc.payments.Fail)
}

// SetStatus moves an order to an explicit status when the move is allowed.
func (tc *TransactionController) SetStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	t, err := tc.orders.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", t)
}

func (tc *TransactionController) staffAction(c *gin.Context, message string, action func(ctx context.Context, id uint) (*models.Transaction, error)) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	t, err := action(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, t)
}

func listLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return 50
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
