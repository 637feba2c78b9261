package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/middlewares"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

type CartController struct {
	DB        *gorm.DB
	carts     *repository.CartRepository
	inventory *repository.InventoryRepository
}

func NewCartController(db *gorm.DB) *CartController {
	return &CartController{
		DB:        db,
		carts:     repository.NewCartRepository(db),
		inventory: repository.NewInventoryRepository(db),
	}
}

// GetCart returns the caller's cart with its menu items.
func (cc *CartController) GetCart(c *gin.Context) {
	sess, err := middlewares.CurrentSession(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	rows, err := cc.carts.List(c.Request.Context(), sess.ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	var total float64
	for _, r := range rows {
		total += r.Inventory.Price * float64(r.Quantity)
	}
	utils.RespondJSON(c, http.StatusOK, "Cart", gin.H{
		"items":       rows,
		"total":       total,
		"total_label": utils.FormatINR(total),
	})
}

// SetCartItem sets the quantity of one menu item in the cart.
func (cc *CartController) SetCartItem(c *gin.Context) {
	sess, err := middlewares.CurrentSession(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	var req struct {
		InventoryID uint `json:"inventory_id" binding:"required"`
		Quantity    int  `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Quantity <= 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("quantity must be positive"))
		return
	}

	item, err := cc.inventory.GetByID(c.Request.Context(), req.InventoryID)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	if !item.IsAvailable {
		utils.RespondError(c, http.StatusBadRequest, errors.New("item is not available"))
		return
	}

	row, err := cc.carts.Upsert(c.Request.Context(), sess.ID, item.ID, req.Quantity)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart updated", row)
}

func (cc *CartController) RemoveCartItem(c *gin.Context) {
	sess, err := middlewares.CurrentSession(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	id, err := paramID(c, "inventory_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := cc.carts.Remove(c.Request.Context(), sess.ID, id); err != nil {
		respondRepoError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed from cart", nil)
}
