package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/config"
	"github.com/yeremiapane/canteen-app/dashboard"
	"github.com/yeremiapane/canteen-app/database"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/router"
	"github.com/yeremiapane/canteen-app/services"
	"github.com/yeremiapane/canteen-app/upload"
	"github.com/yeremiapane/canteen-app/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.SetLevel(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid TIMEZONE %q: %v", cfg.Timezone, err)
	}

	// Initialize DB
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()

	monitor := services.NewChangeMonitor(db, hub, cfg.ChangePollInterval)
	monitor.Start()
	defer monitor.Stop()

	transactions := repository.NewTransactionRepository(db)
	items := repository.NewItemReader(repository.NewOrderItemRepository(db))
	board := dashboard.NewBoard(transactions, items, dashboard.MatchMode(cfg.HeatmapMatch), dashboard.Options{Location: loc})
	board.Start(ctx, hub)

	// Pembayaran pending yang kedaluwarsa dibatalkan tiap menit
	services.NewPaymentService(db).StartTimeoutChecker(ctx, time.Minute, cfg.PaymentTimeout)

	go pruneBlacklist(ctx)

	uploader := upload.NewUploader(upload.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL), cfg.UploadBucket)

	r := router.SetupRouter(router.Deps{
		DB:       db,
		Config:   cfg,
		Hub:      hub,
		Board:    board,
		Uploader: uploader,
		Location: loc,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			utils.ErrorLogger.Errorf("Shutdown: %v", err)
		}
	}()

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		utils.ErrorLogger.Fatal(err)
	}
	board.Wait()
	utils.InfoLogger.Println("Server stopped")
}

func pruneBlacklist(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := utils.PruneBlacklist(); n > 0 {
				utils.InfoLogger.Infof("pruned %d expired tokens from blacklist", n)
			}
		}
	}
}
