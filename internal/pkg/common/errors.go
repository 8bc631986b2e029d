package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤：不合法的輸入在抵達後端前就被擋下，不會自動重試
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RecognitionError 表示辨識錯誤：條碼與 OCR 路徑都沒有產生可用結果，可透過 retry 重試
type RecognitionError struct {
	Reason string
}

// Error 實現 error 介面
func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed: %s", e.Reason)
}

// NewRecognitionError 創建新的辨識錯誤
func NewRecognitionError(reason string) error {
	return &RecognitionError{Reason: reason}
}

// IsRecognitionError 檢查是否為辨識錯誤
func IsRecognitionError(err error) bool {
	var re *RecognitionError
	return errors.As(err, &re)
}

// NotFoundError 表示點查詢未命中：更新或刪除指向不存在的鍵，不可重試
type NotFoundError struct {
	Key string
}

// Error 實現 error 介面
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scan not found: %s", e.Key)
}

// NewNotFoundError 創建新的未找到錯誤
func NewNotFoundError(key string) error {
	return &NotFoundError{Key: key}
}

// IsNotFoundError 檢查是否為未找到錯誤
func IsNotFoundError(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// StorageError 表示本地儲存層失敗：本地之下沒有更底層的後援，對當前操作而言是致命的
type StorageError struct {
	Op  string
	Err error
}

// Error 實現 error 介面
func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s failed", e.Op)
}

// Unwrap 回傳原始錯誤
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError 創建新的儲存錯誤
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError 檢查是否為儲存錯誤
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"   // 400
	ErrCodeNotFound         = "NOT_FOUND"         // 404
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"   // 408
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS" // 429
	ErrCodeValidationFailed = "VALIDATION_FAILED" // 400

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// 業務錯誤
	ErrCodeRecognitionFailed = "RECOGNITION_FAILED" // 條碼與 OCR 皆無結果
	ErrCodeStorageFailed     = "STORAGE_FAILED"     // 本地儲存失敗
	ErrCodeScanNotFound      = "SCAN_NOT_FOUND"     // 指定鍵不存在
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "請求超時", http.StatusRequestTimeout, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrInvalidImageFormat = NewError("INVALID_IMAGE_FORMAT", "無效的圖片格式", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError("INVALID_IMAGE_SIZE", "圖片大小超出限制", http.StatusBadRequest, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheDisabled      = NewError("CACHE_DISABLED", "緩存已禁用", http.StatusServiceUnavailable, nil)
)

// ErrorStatus 對應錯誤類型到 HTTP 狀態碼，未知錯誤一律 500
func ErrorStatus(err error) int {
	switch {
	case IsValidationError(err):
		return http.StatusBadRequest
	case IsNotFoundError(err):
		return http.StatusNotFound
	case IsRecognitionError(err):
		return http.StatusUnprocessableEntity
	case IsStorageError(err):
		return http.StatusInternalServerError
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// ErrorCode 對應錯誤類型到錯誤代碼
func ErrorCode(err error) string {
	switch {
	case IsValidationError(err):
		return ErrCodeValidationFailed
	case IsNotFoundError(err):
		return ErrCodeScanNotFound
	case IsRecognitionError(err):
		return ErrCodeRecognitionFailed
	case IsStorageError(err):
		return ErrCodeStorageFailed
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternalError
}
