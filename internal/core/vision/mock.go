package vision

import (
	"context"
)

// MockBackend 假視覺後端：正式的部署模式之一，供沒有條碼解碼器或 OCR 引擎的平台使用
// 欄位可逐一覆寫，預設行為是「找不到條碼、辨識不到文字」
type MockBackend struct {
	Barcode       string  // 固定回傳的條碼值，空字串代表找不到
	BarcodeFormat string  // 條碼格式
	Text          string  // 固定回傳的 OCR 文字
	Confidence    float64 // OCR 信心分數
	DecodeErr     error   // 解碼時要回傳的錯誤
	RecognizeErr  error   // OCR 時要回傳的錯誤
}

// NewMockBackend 創建假視覺後端
func NewMockBackend() *MockBackend {
	return &MockBackend{Confidence: 1.0}
}

// DecodeBarcode 回傳設定好的條碼結果
func (b *MockBackend) DecodeBarcode(ctx context.Context, imageData string) (*BarcodeResult, error) {
	if b.DecodeErr != nil {
		return nil, b.DecodeErr
	}
	if b.Barcode == "" {
		return nil, nil
	}
	format := b.BarcodeFormat
	if format == "" {
		format = "EAN-13"
	}
	return &BarcodeResult{Value: b.Barcode, Format: format}, nil
}

// RecognizeText 回傳設定好的 OCR 結果
func (b *MockBackend) RecognizeText(ctx context.Context, imageData string) (*TextResult, error) {
	if b.RecognizeErr != nil {
		return nil, b.RecognizeErr
	}
	return &TextResult{Text: b.Text, Confidence: b.Confidence}, nil
}

// Close 關閉後端連接
func (b *MockBackend) Close() error {
	return nil
}
