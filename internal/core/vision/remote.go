package vision

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"skincare-scanner/internal/infrastructure/config"
	"skincare-scanner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// RemoteBackend 遠端視覺服務後端
type RemoteBackend struct {
	config *config.Config
	client *resty.Client
}

// NewRemoteBackend 創建遠端視覺後端
func NewRemoteBackend(cfg *config.Config) *RemoteBackend {
	client := resty.New().
		SetBaseURL(cfg.Vision.BaseURL).
		SetTimeout(cfg.Vision.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.Vision.APIKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Vision.APIKey))
	}

	return &RemoteBackend{
		config: cfg,
		client: client,
	}
}

// DecodeBarcode 呼叫遠端條碼解碼端點，服務回報找不到條碼時回傳 (nil, nil)
func (b *RemoteBackend) DecodeBarcode(ctx context.Context, imageData string) (*BarcodeResult, error) {
	start := time.Now()

	var result struct {
		Found  bool   `json:"found"`
		Value  string `json:"value"`
		Format string `json:"format"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"image": imageData}).
		SetResult(&result).
		Post("/v1/barcode/decode")

	common.LogVisionCall("decode_barcode", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to call barcode decoder: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("barcode decoder returned status %d", resp.StatusCode())
	}

	if !result.Found || result.Value == "" {
		return nil, nil
	}
	return &BarcodeResult{
		Value:  result.Value,
		Format: result.Format,
	}, nil
}

// RecognizeText 呼叫遠端 OCR 端點
func (b *RemoteBackend) RecognizeText(ctx context.Context, imageData string) (*TextResult, error) {
	start := time.Now()

	var result struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"image": imageData}).
		SetResult(&result).
		Post("/v1/ocr/recognize")

	common.LogVisionCall("recognize_text", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to call OCR service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("OCR service returned status %d", resp.StatusCode())
	}

	return &TextResult{
		Text:       result.Text,
		Confidence: result.Confidence,
	}, nil
}

// Close 關閉後端連接
func (b *RemoteBackend) Close() error {
	b.client.GetClient().CloseIdleConnections()
	return nil
}
