package api

import (
	"context"
	"net/http"
	"time"

	"skincare-scanner/internal/api/handlers/health"
	scanHandler "skincare-scanner/internal/api/handlers/scan"
	"skincare-scanner/internal/api/middleware"
	"skincare-scanner/internal/core/cache"
	"skincare-scanner/internal/core/conflict"
	"skincare-scanner/internal/core/image"
	"skincare-scanner/internal/core/recognition"
	scanService "skincare-scanner/internal/core/scan"
	"skincare-scanner/internal/core/vision"
	"skincare-scanner/internal/infrastructure/config"
	"skincare-scanner/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 60 * time.Second
	// 請求體大小限制 (10MB)，base64 影像上傳要吃掉約 1.37 倍
	maxBodySize = 10 << 20
)

// Dependencies 由 main 建構並持有生命週期的外部資源
type Dependencies struct {
	CacheManager *cache.Manager
	VisionBack   vision.Backend
	Store        scanService.LocalStore
	ProductCache *scanService.ProductCache
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 重複提交去重
	router.Use(middleware.Deduplication(cfg))

	// 速率限制
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("remote_enabled", cfg.Remote.Enabled),
		zap.String("vision_mode", cfg.Vision.Mode),
		zap.Duration("timeout", timeoutDuration),
	)

	// 遠端掃描服務：未啟用時 repository 走純離線模式
	var remote scanService.RemoteService
	if cfg.Remote.Enabled {
		remote = scanService.NewClient(cfg)
	}

	repo := scanService.NewRepository(deps.Store, remote, deps.ProductCache)

	// 衝突分析器共用遠端客戶端；remote 為 nil 時直接落在本地資料集
	var remoteAnalyzer conflict.RemoteAnalyzer
	if remote != nil {
		remoteAnalyzer = remote
	}
	analyzer := conflict.NewAnalyzer(remoteAnalyzer, deps.CacheManager)

	imageService := image.NewService(cfg.Image.MaxSizeBytes)
	engine := recognition.NewEngine(deps.VisionBack, repo, analyzer, imageService)

	// 全局中間件：設置超時與服務
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("scan_repository", repo)
		c.Set("cache_manager", deps.CacheManager)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		handler := scanHandler.NewHandler(engine, repo, analyzer)

		// 辨識流程
		scanGroup := api.Group("/scan")
		{
			scanGroup.POST("/recognize", handler.HandleRecognize)
			scanGroup.POST("/barcode", handler.HandleBarcode)
			scanGroup.POST("/text", handler.HandleText)
			scanGroup.POST("/retry", handler.HandleRetry)
			scanGroup.POST("/clear", handler.HandleClear)
			scanGroup.GET("/state", handler.HandleState)
		}

		// 成分衝突分析
		api.POST("/ingredients/analyze", handler.HandleAnalyze)

		// 掃描歷史
		scansGroup := api.Group("/scans")
		{
			scansGroup.GET("", handler.HandleGetHistory)
			scansGroup.DELETE("", handler.HandleClearHistory)
			scansGroup.GET("/favorites", handler.HandleGetFavorites)
			scansGroup.GET("/search", handler.HandleSearch)
			scansGroup.GET("/:barcode", handler.HandleGetScan)
			scansGroup.PUT("/:barcode", handler.HandleUpdateScan)
			scansGroup.DELETE("/:barcode", handler.HandleDeleteScan)
			scansGroup.POST("/:barcode/favorite", handler.HandleToggleFavorite)
			scansGroup.PUT("/:barcode/notes", handler.HandleUpdateNotes)
			scansGroup.POST("/:barcode/tags", handler.HandleAddTag)
			scansGroup.DELETE("/:barcode/tags", handler.HandleRemoveTag)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("remote_enabled", cfg.Remote.Enabled),
		zap.String("vision_mode", cfg.Vision.Mode),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
