package router

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/config"
	"github.com/yeremiapane/canteen-app/controllers"
	"github.com/yeremiapane/canteen-app/dashboard"
	"github.com/yeremiapane/canteen-app/middlewares"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/upload"
	"gorm.io/gorm"
)

// Deps are the long-lived objects the handlers share.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Hub      *realtime.Hub
	Board    *dashboard.Board
	Uploader *upload.Uploader
	Location *time.Location
}

var imageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// onlyImages blocks anything under /uploads that is not an image file.
func onlyImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") &&
			!imageExt[strings.ToLower(path.Ext(c.Request.URL.Path))] {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.AllowedOrigin))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())
	r.Use(onlyImages())

	r.Static("/uploads", cfg.UploadDir)

	// Inisialisasi controller
	systemCtrl := controllers.NewSystemController(d.DB, d.Location)
	authCtrl := controllers.NewAuthController(d.DB, cfg.ServiceKey)
	inventoryCtrl := controllers.NewInventoryController(d.DB, d.Uploader)
	cartCtrl := controllers.NewCartController(d.DB)
	txCtrl := controllers.NewTransactionController(d.DB, d.Location)
	dashCtrl := controllers.NewDashboardController(d.DB, d.Board, d.Location)
	realtimeCtrl := controllers.NewRealtimeController(d.Hub)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", systemCtrl.Ping)

	api := r.Group("/api")
	api.Use(middlewares.APIKeyMiddleware(cfg.AnonKey, cfg.ServiceKey))

	api.GET("/canteen/status", systemCtrl.CanteenStatus)
	api.GET("/inventory", inventoryCtrl.ListMenu)

	// Rate limiter untuk login/register
	public := api.Group("/auth")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", authCtrl.Register)
		public.POST("/login", authCtrl.Login)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := api.Group("")
	auth.Use(middlewares.AuthMiddleware())

	auth.POST("/auth/logout", authCtrl.Logout)
	auth.GET("/auth/session", authCtrl.Session)

	auth.GET("/cart", cartCtrl.GetCart)
	auth.POST("/cart", cartCtrl.SetCartItem)
	auth.DELETE("/cart/:inventory_id", cartCtrl.RemoveCartItem)

	payment := auth.Group("")
	payment.Use(middlewares.PaymentRateLimiter(), middlewares.LogPaymentRequest())
	{
		payment.POST("/checkout", txCtrl.Checkout)
		payment.POST("/transactions/:id/pay", txCtrl.Pay)
	}
	auth.GET("/transactions/mine", txCtrl.MyTransactions)
	auth.GET("/transactions/:id", txCtrl.GetTransaction)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	staff := auth.Group("/staff")
	staff.Use(middlewares.RequireStaff())

	staff.GET("/inventory", inventoryCtrl.ListMenu)
	staff.POST("/inventory", inventoryCtrl.CreateItem)
	staff.GET("/inventory/:id", inventoryCtrl.GetItem)
	staff.PATCH("/inventory/:id", inventoryCtrl.UpdateItem)
	staff.DELETE("/inventory/:id", inventoryCtrl.DeleteItem)
	staff.POST("/inventory/:id/image", inventoryCtrl.UploadImage)

	orders := staff.Group("/transactions")
	orders.Use(middlewares.StaffActionLogger())
	{
		orders.GET("", txCtrl.StaffTransactions)
		orders.POST("/:id/advance", txCtrl.Advance)
		orders.POST("/:id/reject", txCtrl.Reject)
		orders.PATCH("/:id/status", txCtrl.SetStatus)
		orders.POST("/:id/payment-failed", txCtrl.PaymentFailed)
	}

	staff.GET("/dashboard/metrics", dashCtrl.Metrics)
	staff.GET("/dashboard/most-ordered", dashCtrl.MostOrdered)
	staff.GET("/dashboard/gauge", dashCtrl.Gauge)
	staff.GET("/dashboard/heatmap", dashCtrl.Heatmap)
	staff.GET("/dashboard/transactions", dashCtrl.Transactions)
	staff.GET("/dashboard/performance", dashCtrl.Performance)
	staff.GET("/reports/sales.pdf", dashCtrl.SalesReport)

	chartsGroup := staff.Group("/dashboard/charts")
	chartsGroup.Use(middlewares.ChartHeaders())
	{
		chartsGroup.GET("/gauge", dashCtrl.GaugeChart)
		chartsGroup.GET("/heatmap", dashCtrl.HeatmapChart)
		chartsGroup.GET("/performance", dashCtrl.PerformanceChart)
	}

	// ----------------------------------------------------------------
	//                      MAINTENANCE (service key)
	// ----------------------------------------------------------------
	maintenance := r.Group("/api/maintenance")
	maintenance.Use(middlewares.ServiceKeyMiddleware(cfg.ServiceKey))
	{
		maintenance.GET("/health", systemCtrl.Health)
		maintenance.POST("/normalize-items", systemCtrl.NormalizeItems)
		maintenance.POST("/orphans", systemCtrl.DeleteOrphans)
	}

	// WebSocket: browsers cannot set headers, so the token comes as ?token=
	ws := r.Group("/realtime")
	ws.Use(middlewares.AuthMiddleware(), middlewares.RequireStaff())
	{
		ws.GET("", realtimeCtrl.Stream)
	}

	return r
}
