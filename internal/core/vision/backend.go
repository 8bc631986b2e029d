package vision

import (
	"context"

	"skincare-scanner/internal/infrastructure/config"
	"skincare-scanner/internal/pkg/common"
)

// BarcodeResult 條碼解碼結果
type BarcodeResult struct {
	Value  string `json:"value"`
	Format string `json:"format"`
}

// TextResult OCR 文字辨識結果
type TextResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Backend 定義視覺後端介面
// 條碼解碼與 OCR 由外部能力提供，核心只透過這個窄介面呼叫
type Backend interface {
	// DecodeBarcode 從圖片解碼條碼，找不到條碼時回傳 (nil, nil)
	DecodeBarcode(ctx context.Context, imageData string) (*BarcodeResult, error)

	// RecognizeText 對圖片執行 OCR 文字辨識
	RecognizeText(ctx context.Context, imageData string) (*TextResult, error)

	// Close 關閉後端連接
	Close() error
}

// NewBackend 依設定選擇視覺後端：mock 模式供沒有真實後端的平台部署使用
func NewBackend(cfg *config.Config) Backend {
	if cfg.Vision.Mode == "mock" {
		common.LogInfo("使用 mock 視覺後端")
		return NewMockBackend()
	}
	return NewRemoteBackend(cfg)
}
