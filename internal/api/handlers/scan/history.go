package scan

import (
	"net/http"
	"strings"

	"skincare-scanner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotesRequest 更新筆記請求
type NotesRequest struct {
	Notes string `json:"notes"`
}

// TagRequest 標籤請求
type TagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// UpdateScanRequest 整筆更新掃描紀錄請求
type UpdateScanRequest struct {
	Record common.ScanRecord `json:"record" binding:"required"`
}

// HandleGetHistory 取得掃描歷史
func (h *Handler) HandleGetHistory(c *gin.Context) {
	records, err := h.repo.GetScanHistory(c.Request.Context())
	if err != nil {
		common.LogError("掃描歷史查詢失敗",
			zap.Error(err),
			zap.String("request_id", requestID(c)),
		)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": records, "count": len(records)})
}

// HandleGetFavorites 取得收藏清單
func (h *Handler) HandleGetFavorites(c *gin.Context) {
	records, err := h.repo.GetFavorites(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": records, "count": len(records)})
}

// HandleSearch 搜尋掃描歷史
func (h *Handler) HandleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter"})
		return
	}

	records, err := h.repo.SearchScanHistory(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": records, "count": len(records), "query": query})
}

// HandleGetScan 取得單筆掃描紀錄
func (h *Handler) HandleGetScan(c *gin.Context) {
	record, err := h.repo.GetScanByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": record})
}

// HandleUpdateScan 整筆更新掃描紀錄
func (h *Handler) HandleUpdateScan(c *gin.Context) {
	var req UpdateScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	// 路徑上的 barcode 是權威鍵，body 裡的覆寫無效
	req.Record.Barcode = c.Param("barcode")
	if err := h.repo.UpdateScan(c.Request.Context(), &req.Record); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": req.Record})
}

// HandleDeleteScan 刪除單筆掃描紀錄
func (h *Handler) HandleDeleteScan(c *gin.Context) {
	barcode := c.Param("barcode")
	if err := h.repo.DeleteScan(c.Request.Context(), barcode); err != nil {
		respondError(c, err)
		return
	}

	common.LogInfo("掃描紀錄已刪除",
		zap.String("request_id", requestID(c)),
		zap.String("barcode", barcode),
	)
	c.JSON(http.StatusOK, gin.H{"deleted": barcode})
}

// HandleClearHistory 清除全部掃描歷史
func (h *Handler) HandleClearHistory(c *gin.Context) {
	if err := h.repo.ClearHistory(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	common.LogInfo("掃描歷史已清除",
		zap.String("request_id", requestID(c)),
	)
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// HandleToggleFavorite 切換收藏狀態
func (h *Handler) HandleToggleFavorite(c *gin.Context) {
	record, err := h.repo.ToggleFavorite(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": record})
}

// HandleUpdateNotes 更新筆記
func (h *Handler) HandleUpdateNotes(c *gin.Context) {
	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	record, err := h.repo.UpdateNotes(c.Request.Context(), c.Param("barcode"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": record})
}

// HandleAddTag 加標籤
func (h *Handler) HandleAddTag(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	record, err := h.repo.AddTag(c.Request.Context(), c.Param("barcode"), req.Tag)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": record})
}

// HandleRemoveTag 移除標籤
func (h *Handler) HandleRemoveTag(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	record, err := h.repo.RemoveTag(c.Request.Context(), c.Param("barcode"), req.Tag)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": record})
}
