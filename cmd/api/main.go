package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skincare-scanner/internal/api"
	"skincare-scanner/internal/core/cache"
	"skincare-scanner/internal/core/scan"
	"skincare-scanner/internal/core/vision"
	"skincare-scanner/internal/infrastructure/config"
	"skincare-scanner/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("vision_mode", cfg.Vision.Mode),
		zap.Bool("remote_enabled", cfg.Remote.Enabled),
		zap.String("storage_path", cfg.Storage.Path),
	)

	// 初始化快取
	cacheManager := cache.NewManager(cfg)
	if cfg.Cache.Enabled && cacheManager == nil {
		common.LogFatal("Failed to initialize cache manager")
	}
	defer cacheManager.Close()

	// 本地掃描儲存：離線時的唯一真相來源，開不起來就不啟動
	store, err := scan.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		common.LogFatal("Failed to open local scan store",
			zap.String("path", cfg.Storage.Path),
			zap.Error(err),
		)
	}
	defer store.Close()

	// 產品快取（Redis），未啟用時為 no-op
	productCache, err := scan.NewProductCache(cfg)
	if err != nil {
		common.LogWarn("Redis 連線失敗，產品快取停用",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err),
		)
	}
	defer productCache.Close()

	// 視覺後端
	visionBackend := vision.NewBackend(cfg)
	defer visionBackend.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		CacheManager: cacheManager,
		VisionBack:   visionBackend,
		Store:        store,
		ProductCache: productCache,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
