package common

import (
	"fmt"
	"strings"
	"time"
)

// ScanKind 掃描類型
type ScanKind string

const (
	ScanKindBarcode ScanKind = "barcode" // 條碼掃描
	ScanKindImage   ScanKind = "image"   // 圖片辨識（OCR）
	ScanKindText    ScanKind = "text"    // 手動輸入成分文字
	ScanKindManual  ScanKind = "manual"  // 手動建立
)

// Severity 衝突嚴重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Product 產品資訊
type Product struct {
	Name        string   `json:"name"`
	Brand       string   `json:"brand,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// Conflict 成分衝突
type Conflict struct {
	Name        string   `json:"name"`        // 成分名稱
	Severity    Severity `json:"severity"`    // 嚴重程度
	Description string   `json:"description"` // 說明
}

// ScanRecord 一筆掃描紀錄
// Barcode 是持久化的天然鍵：非條碼掃描會產生合成鍵（見 SyntheticBarcode）
type ScanRecord struct {
	ID          string     `json:"id"`
	Barcode     string     `json:"barcode"`
	Product     *Product   `json:"product,omitempty"`
	Ingredients []string   `json:"ingredients"`
	Conflicts   []Conflict `json:"conflicts"`
	ScanKind    ScanKind   `json:"scan_kind"`
	IsFavorite  bool       `json:"is_favorite"`
	Notes       string     `json:"notes,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	SafetyScore int        `json:"safety_score"`
	Confidence  float64    `json:"confidence,omitempty"` // OCR 路徑的信心分數
}

// SyntheticBarcode 為非條碼掃描產生合成鍵，例如 "text_scan_1714712345678"
func SyntheticBarcode(kind ScanKind, captured time.Time) string {
	return fmt.Sprintf("%s_scan_%d", kind, captured.UnixMilli())
}

// HasTag 檢查紀錄是否帶有指定標籤（不分大小寫）
func (r *ScanRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ConflictNames 取出衝突成分名稱列表
func (r *ScanRecord) ConflictNames() []string {
	names := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		names = append(names, c.Name)
	}
	return names
}

// DisplayName 取得紀錄的顯示名稱
func (r *ScanRecord) DisplayName() string {
	if r.Product != nil && r.Product.Name != "" {
		return r.Product.Name
	}
	return r.Barcode
}
