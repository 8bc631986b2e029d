package scan

import (
	"strings"

	"skincare-scanner/internal/core/conflict"
	"skincare-scanner/internal/core/recognition"
	scanService "skincare-scanner/internal/core/scan"
	"skincare-scanner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler 掃描處理程序
type Handler struct {
	engine   *recognition.Engine
	repo     *scanService.Repository
	analyzer *conflict.Analyzer
}

// NewHandler 創建新的掃描處理程序
func NewHandler(engine *recognition.Engine, repo *scanService.Repository, analyzer *conflict.Analyzer) *Handler {
	return &Handler{
		engine:   engine,
		repo:     repo,
		analyzer: analyzer,
	}
}

// requestID 取出或補上請求 ID
func requestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.New().String()
		c.Header("X-Request-ID", id)
	}
	return id
}

// respondError 依錯誤類型映射 HTTP 狀態碼與錯誤碼
func respondError(c *gin.Context, err error) {
	c.JSON(common.ErrorStatus(err), gin.H{
		"error": err.Error(),
		"code":  common.ErrorCode(err),
	})
}

// getImageType 獲取圖片類型（用於日誌記錄，絕不記原始資料）
func getImageType(image string) string {
	if image == "" {
		return "empty"
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return "url"
	}
	if strings.HasPrefix(image, "data:image/") {
		parts := strings.Split(image, ";base64,")
		if len(parts) == 2 {
			return "base64_data_uri_" + strings.TrimPrefix(parts[0], "data:image/")
		}
		return "invalid_data_uri"
	}
	return "unknown_format"
}
