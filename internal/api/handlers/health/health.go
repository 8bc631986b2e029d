package health

import (
	"net/http"
	"runtime"
	"time"

	"skincare-scanner/internal/core/cache"
	"skincare-scanner/internal/core/scan"
	"skincare-scanner/internal/infrastructure/config"
	"skincare-scanner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Sync      *SyncStatus            `json:"sync,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// SyncStatus 本地與遠端的同步狀態
type SyncStatus struct {
	PendingSync int64 `json:"pending_sync"` // 遠端同步失敗待重送的筆數
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	cfg, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Configuration not found",
		})
		return
	}
	config, ok := cfg.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid configuration type",
		})
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if repoVal, exists := c.Get("scan_repository"); exists {
		if repo, ok := repoVal.(*scan.Repository); ok {
			response.Sync = &SyncStatus{PendingSync: repo.PendingSync()}
		}
	}
	if cacheVal, exists := c.Get("cache_manager"); exists {
		if manager, ok := cacheVal.(*cache.Manager); ok {
			response.Cache = manager.Stats()
		}
	}

	common.LogInfo("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器
func ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
