package controllers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/dashboard"
	"github.com/yeremiapane/canteen-app/services"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB       *gorm.DB
	board    *dashboard.Board
	reports  *services.ReportService
	location *time.Location
	now      func() time.Time
}

func NewDashboardController(db *gorm.DB, board *dashboard.Board, loc *time.Location) *DashboardController {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardController{
		DB:       db,
		board:    board,
		reports:  services.NewReportService(db, loc),
		location: loc,
		now:      time.Now,
	}
}

func (dc *DashboardController) Metrics(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Dashboard metrics", dc.board.Metrics.Snapshot())
}

func (dc *DashboardController) MostOrdered(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Most ordered items", dc.board.MostOrdered.Snapshot())
}

// Gauge returns every period, or only ?period= when given.
func (dc *DashboardController) Gauge(c *gin.Context) {
	if p := c.Query("period"); p != "" {
		utils.RespondJSON(c, http.StatusOK, "Sales gauge", dc.board.Gauge.Reading(dashboard.ParsePeriod(p)))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sales gauge", dc.board.Gauge.Snapshot())
}

func (dc *DashboardController) Heatmap(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Visitor heatmap", dc.board.Heatmap.Snapshot())
}

// Transactions returns the newest paid orders, optionally ?status=a,b.
func (dc *DashboardController) Transactions(c *gin.Context) {
	var statuses []string
	if s := c.Query("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, part)
			}
		}
	}
	utils.RespondJSON(c, http.StatusOK, "Recent transactions", dc.board.Transactions.Snapshot(statuses...))
}

func (dc *DashboardController) Performance(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Weekly performance", dc.board.Performance.Snapshot())
}

func (dc *DashboardController) GaugeChart(c *gin.Context) {
	dc.chart(c, func() (string, error) {
		return dashboard.GaugeHTML(dc.board.Gauge.Reading(dashboard.ParsePeriod(c.Query("period"))))
	})
}

func (dc *DashboardController) HeatmapChart(c *gin.Context) {
	dc.chart(c, func() (string, error) {
		return dashboard.HeatmapHTML(dc.board.Heatmap.Snapshot())
	})
}

func (dc *DashboardController) PerformanceChart(c *gin.Context) {
	dc.chart(c, func() (string, error) {
		return dashboard.PerformanceHTML(dc.board.Performance.Snapshot())
	})
}

func (dc *DashboardController) chart(c *gin.Context, render func() (string, error)) {
	html, err := render()
	if err != nil {
		utils.ErrorLogger.Errorf("render chart %s: %v", c.FullPath(), err)
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// SalesReport renders the daily sales PDF for ?date=YYYY-MM-DD (default today).
func (dc *DashboardController) SalesReport(c *gin.Context) {
	day := dc.now().In(dc.location)
	if d := c.Query("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, dc.location)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	var buf bytes.Buffer
	if err := dc.reports.WritePDF(c.Request.Context(), day, &buf); err != nil {
		utils.ErrorLogger.Errorf("sales report %s: %v", day.Format("2006-01-02"), err)
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="sales-`+day.Format("2006-01-02")+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
