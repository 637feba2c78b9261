package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/services"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

type SystemController struct {
	DB          *gorm.DB
	hours       *services.CanteenHours
	maintenance *services.Maintenance
	now         func() time.Time
}

func NewSystemController(db *gorm.DB, loc *time.Location) *SystemController {
	return &SystemController{
		DB:          db,
		hours:       services.NewCanteenHours(loc),
		maintenance: services.NewMaintenance(db),
		now:         time.Now,
	}
}

func (sc *SystemController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (sc *SystemController) CanteenStatus(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Canteen status", sc.hours.Status(sc.now()))
}

// Health reports row counts. Partial counts are returned with 500 when a
// table could not be counted.
func (sc *SystemController) Health(c *gin.Context) {
	h, err := sc.maintenance.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": err.Error(), "data": h})
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Database healthy", h)
}

func (sc *SystemController) NormalizeItems(c *gin.Context) {
	res, err := sc.maintenance.NormalizeItems(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "message": err.Error(), "data": res})
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Items normalized", res)
}

func (sc *SystemController) DeleteOrphans(c *gin.Context) {
	n, err := sc.maintenance.DeleteOrphanItems(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orphan items removed", gin.H{"deleted": n})
}
