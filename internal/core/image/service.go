package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	_ "golang.org/x/image/webp" // 支援 WebP

	"skincare-scanner/internal/pkg/common"

	"go.uber.org/zap"
)

// jpegQuality 統一轉出的 JPEG 品質，掃描影像再壓會影響條碼與文字辨識
const jpegQuality = 85

// Service 掃描影像前處理服務：接受 URL 或 data URI，統一轉成 JPEG data URI
type Service struct {
	maxSizeBytes int64
	httpClient   *http.Client
}

// NewService 創建影像前處理服務
func NewService(maxSizeBytes int64) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProcessImage 讀入掃描影像並正規化為 JPEG base64 data URI
func (s *Service) ProcessImage(imageData string) (string, error) {
	raw, err := s.loadBytes(imageData)
	if err != nil {
		return "", err
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return "", fmt.Errorf("unsupported image format: %s", format)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	common.LogImageProcessing("debug", "掃描影像正規化完成",
		zap.String("source_format", format),
		zap.Int("bytes", buf.Len()),
	)
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ValidateImage 僅驗證影像可解碼且格式、大小合規，不做轉換
func (s *Service) ValidateImage(imageData string) error {
	raw, err := s.loadBytes(imageData)
	if err != nil {
		return err
	}

	_, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return fmt.Errorf("unsupported image format: %s", format)
	}
	return nil
}

// loadBytes 取得影像原始位元組：URL 走下載，其餘要求 data URI
func (s *Service) loadBytes(imageData string) ([]byte, error) {
	if strings.HasPrefix(imageData, "http://") || strings.HasPrefix(imageData, "https://") {
		return s.download(imageData)
	}

	if !strings.HasPrefix(imageData, "data:image/") {
		return nil, fmt.Errorf("invalid image data format")
	}
	parts := strings.Split(imageData, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid base64 data format")
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 data: %w", err)
	}
	return s.checkSize(decoded)
}

func (s *Service) download(url string) ([]byte, error) {
	resp, err := s.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status code %d", resp.StatusCode)
	}

	// 限制讀取量，避免超大回應吃光記憶體
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return s.checkSize(body)
}

func (s *Service) checkSize(data []byte) ([]byte, error) {
	if int64(len(data)) > s.maxSizeBytes {
		return nil, fmt.Errorf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes)
	}
	return data, nil
}

// isSupportedFormat 檢查影像格式是否支援
func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	}
	return false
}
