package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/middlewares"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/upload"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

type InventoryController struct {
	DB       *gorm.DB
	items    *repository.InventoryRepository
	uploader *upload.Uploader
}

func NewInventoryController(db *gorm.DB, uploader *upload.Uploader) *InventoryController {
	return &InventoryController{DB: db, items: repository.NewInventoryRepository(db), uploader: uploader}
}

type inventoryInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	IsAvailable *bool    `json:"is_available"`
}

func (in inventoryInput) apply(item *models.InventoryItem) error {
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Category != nil {
		item.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		item.Price = *in.Price
	}
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	switch {
	case item.Name == "":
		return errors.New("name is required")
	case item.Price < 0:
		return errors.New("invalid price")
	case item.Quantity < 0:
		return errors.New("invalid quantity")
	}
	return nil
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}

// ListMenu returns the menu. Staff may pass ?all=true to include hidden items.
func (ic *InventoryController) ListMenu(c *gin.Context) {
	availableOnly := true
	if c.Query("all") == "true" {
		if sess, err := middlewares.CurrentSession(c); err == nil && sess.IsStaff() {
			availableOnly = false
		}
	}
	items, err := ic.items.List(c.Request.Context(), availableOnly)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

func (ic *InventoryController) GetItem(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item, err := ic.items.GetByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item detail", item)
}

func (ic *InventoryController) CreateItem(c *gin.Context) {
	var in inventoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item := models.InventoryItem{IsAvailable: true}
	if err := in.apply(&item); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := ic.items.Create(c.Request.Context(), &item); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

// UpdateItem applies a partial update; absent fields are left alone.
func (ic *InventoryController) UpdateItem(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var in inventoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item, err := ic.items.GetByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	if err := in.apply(item); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := ic.items.Save(c.Request.Context(), item); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

func (ic *InventoryController) DeleteItem(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := ic.items.Delete(c.Request.Context(), id); err != nil {
		respondRepoError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}

// UploadImage stores the "image" form file and points the item at it.
func (ic *InventoryController) UploadImage(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	sess, err := middlewares.CurrentSession(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	if _, err := ic.items.GetByID(c.Request.Context(), id); err != nil {
		respondRepoError(c, err)
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("image file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()

	res, err := ic.uploader.Upload(c.Request.Context(), sess, upload.FileHeader{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	}, f)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, upload.ErrNotImage), errors.Is(err, upload.ErrTooLarge):
			code = http.StatusBadRequest
		case errors.Is(err, upload.ErrNotStaff):
			code = http.StatusForbidden
		}
		utils.ErrorLogger.Errorf("image upload for item %d failed: %v", id, err)
		c.JSON(code, gin.H{"status": false, "message": upload.Hint(err)})
		return
	}

	if err := ic.items.SetImageURL(c.Request.Context(), id, res.URL); err != nil {
		respondRepoError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Image uploaded", res)
}
