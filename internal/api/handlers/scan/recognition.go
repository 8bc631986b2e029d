package scan

import (
	"net/http"
	"strings"

	"skincare-scanner/internal/core/conflict"
	"skincare-scanner/internal/core/recognition"
	"skincare-scanner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecognizeRequest 影像辨識請求
type RecognizeRequest struct {
	Image string `json:"image" binding:"required"`
}

// BarcodeRequest 條碼辨識請求
type BarcodeRequest struct {
	Barcode string `json:"barcode" binding:"required"`
}

// TextRequest 成分文字辨識請求
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// RecognizeResponse 辨識結果響應：結果加上會話狀態快照
type RecognizeResponse struct {
	Outcome *recognition.Outcome `json:"outcome"`
	State   recognition.State    `json:"state"`
}

// HandleRecognize 處理影像辨識請求
func (h *Handler) HandleRecognize(c *gin.Context) {
	reqID := requestID(c)

	var req RecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if !strings.HasPrefix(req.Image, "data:image/") &&
		!strings.HasPrefix(req.Image, "http://") &&
		!strings.HasPrefix(req.Image, "https://") {
		common.LogError("影像格式無效",
			zap.String("request_id", reqID),
			zap.String("image_type", getImageType(req.Image)),
			zap.Int("image_length", len(req.Image)),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format"})
		return
	}

	common.LogInfo("開始處理影像辨識請求",
		zap.String("request_id", reqID),
		zap.String("client_ip", c.ClientIP()),
		zap.String("image_type", getImageType(req.Image)),
	)

	outcome, err := h.engine.RecognizeProduct(c.Request.Context(), req.Image)
	if err != nil {
		common.LogError("影像辨識失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		respondError(c, err)
		return
	}

	common.LogInfo("影像辨識完成",
		zap.String("request_id", reqID),
		zap.String("kind", string(outcome.Kind)),
		zap.String("barcode", outcome.Scan.Barcode),
	)
	c.JSON(http.StatusOK, RecognizeResponse{Outcome: outcome, State: h.engine.State()})
}

// HandleBarcode 處理手動條碼辨識請求
func (h *Handler) HandleBarcode(c *gin.Context) {
	reqID := requestID(c)

	var req BarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	outcome, err := h.engine.ProcessBarcode(c.Request.Context(), req.Barcode)
	if err != nil {
		common.LogWarn("條碼辨識失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
			zap.String("barcode", req.Barcode),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecognizeResponse{Outcome: outcome, State: h.engine.State()})
}

// HandleText 處理成分文字辨識請求
func (h *Handler) HandleText(c *gin.Context) {
	reqID := requestID(c)

	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	outcome, err := h.engine.ProcessText(c.Request.Context(), req.Text)
	if err != nil {
		common.LogWarn("成分文字辨識失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecognizeResponse{Outcome: outcome, State: h.engine.State()})
}

// HandleRetry 以最後一次輸入重試辨識
func (h *Handler) HandleRetry(c *gin.Context) {
	reqID := requestID(c)

	outcome, err := h.engine.RetryLastRecognition(c.Request.Context())
	if err != nil {
		common.LogWarn("辨識重試失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecognizeResponse{Outcome: outcome, State: h.engine.State()})
}

// HandleClear 清除辨識會話狀態
func (h *Handler) HandleClear(c *gin.Context) {
	h.engine.ClearRecognition()
	c.JSON(http.StatusOK, gin.H{"state": h.engine.State()})
}

// HandleState 回傳目前會話狀態快照
func (h *Handler) HandleState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.engine.State()})
}

// AnalyzeRequest 成分衝突分析請求
type AnalyzeRequest struct {
	Ingredients []string `json:"ingredients" binding:"required"`
}

// AnalyzeResponse 成分衝突分析響應
type AnalyzeResponse struct {
	Conflicts   []common.Conflict `json:"conflicts"`
	SafetyScore int               `json:"safety_score"`
}

// HandleAnalyze 處理成分衝突分析請求
func (h *Handler) HandleAnalyze(c *gin.Context) {
	reqID := requestID(c)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conflicts, err := h.analyzer.Analyze(c.Request.Context(), req.Ingredients)
	if err != nil {
		common.LogError("成分衝突分析失敗",
			zap.Error(err),
			zap.String("request_id", reqID),
			zap.Int("ingredient_count", len(req.Ingredients)),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Conflicts:   conflicts,
		SafetyScore: conflict.SafetyScore(conflicts),
	})
}
