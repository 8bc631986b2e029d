package recognition

import (
	"context"
	"strings"
	"time"

	"skincare-scanner/internal/core/barcode"
	"skincare-scanner/internal/core/conflict"
	"skincare-scanner/internal/core/image"
	"skincare-scanner/internal/core/ingredient"
	"skincare-scanner/internal/core/scan"
	"skincare-scanner/internal/core/vision"
	"skincare-scanner/internal/pkg/common"

	"go.uber.org/zap"
)

// 動作名稱，retry 依此重新派發
const (
	actionRecognizeProduct = "recognize_product"
	actionProcessBarcode   = "process_barcode"
	actionProcessText      = "process_text"
)

// Engine 辨識引擎：條碼優先、OCR 後援的產品辨識協調者
// 同一會話不支援並行辨識，入口一律經過會話的載入守衛
type Engine struct {
	session  *Session
	vision   vision.Backend
	repo     *scan.Repository
	analyzer *conflict.Analyzer
	imageSvc *image.Service // nil 代表不做影像前處理
}

// NewEngine 創建辨識引擎
func NewEngine(visionBackend vision.Backend, repo *scan.Repository, analyzer *conflict.Analyzer, imageSvc *image.Service) *Engine {
	return &Engine{
		session:  NewSession(),
		vision:   visionBackend,
		repo:     repo,
		analyzer: analyzer,
		imageSvc: imageSvc,
	}
}

// State 取得目前會話狀態快照
func (e *Engine) State() State {
	return e.session.State()
}

// ClearRecognition 清除會話狀態，進行中的嘗試結果將被丟棄
func (e *Engine) ClearRecognition() {
	e.session.Clear()
}

// RecognizeProduct 對圖片執行產品辨識
// 先走條碼路徑（解碼 → 校驗 → 查產品）；該路徑任何失敗都視為「繼續」而非錯誤，
// 靜默落入 OCR 後援路徑。兩條路徑嚴格循序，成功者先贏；兩者皆敗時回報 OCR 路徑的錯誤
func (e *Engine) RecognizeProduct(ctx context.Context, imageData string) (*Outcome, error) {
	gen, ok := e.session.begin(actionRecognizeProduct, imageData)
	if !ok {
		return nil, common.NewValidationError("辨識進行中，忽略重入呼叫")
	}

	outcome, err := e.recognize(ctx, imageData)
	return e.commit(ctx, gen, outcome, err)
}

// recognize 實際的兩段式辨識流程
func (e *Engine) recognize(ctx context.Context, imageData string) (*Outcome, error) {
	processed := imageData
	if e.imageSvc != nil {
		normalized, err := e.imageSvc.ProcessImage(imageData)
		if err != nil {
			return nil, common.NewValidationError(err.Error())
		}
		processed = normalized
	}

	// 條碼優先路徑：任何失敗都不外洩，落入 OCR 後援
	if outcome := e.tryBarcodePath(ctx, processed); outcome != nil {
		return outcome, nil
	}

	// OCR 後援路徑
	return e.tryOcrPath(ctx, processed)
}

// tryBarcodePath 條碼路徑：解碼失敗、校驗失敗或查無產品都回傳 nil 表示「繼續」
func (e *Engine) tryBarcodePath(ctx context.Context, imageData string) *Outcome {
	decoded, err := e.vision.DecodeBarcode(ctx, imageData)
	if err != nil {
		common.LogDebug("條碼解碼失敗，改走 OCR 路徑",
			zap.Error(err),
		)
		return nil
	}
	if decoded == nil {
		return nil
	}
	if !barcode.Validate(decoded.Value) {
		common.LogDebug("條碼校驗失敗，改走 OCR 路徑",
			zap.String("barcode", decoded.Value),
			zap.String("format", string(barcode.DetectFormat(decoded.Value))),
		)
		return nil
	}

	product, err := e.repo.LookupProduct(ctx, decoded.Value)
	if err != nil {
		common.LogDebug("產品查詢未命中，改走 OCR 路徑",
			zap.String("barcode", decoded.Value),
			zap.Error(err),
		)
		return nil
	}

	record := e.buildRecord(ctx, common.ScanKindBarcode, decoded.Value, product, product.Ingredients, 0)
	return &Outcome{Kind: OutcomeBarcodeMatch, Scan: record}
}

// tryOcrPath OCR 路徑：這裡的失敗才是對呼叫端可見的辨識錯誤
func (e *Engine) tryOcrPath(ctx context.Context, imageData string) (*Outcome, error) {
	text, err := e.vision.RecognizeText(ctx, imageData)
	if err != nil {
		return nil, common.NewRecognitionError("text recognition unavailable")
	}
	if strings.TrimSpace(text.Text) == "" {
		return nil, common.NewRecognitionError("no text")
	}

	parsed := ingredient.Extract(text.Text)
	if len(parsed.Ingredients) == 0 {
		return nil, common.NewRecognitionError("no ingredients")
	}
	if !parsed.MarkerFound {
		common.LogWarn("成分區段標記未找到，解析結果為降級模式",
			zap.Int("ingredients", len(parsed.Ingredients)),
		)
	}

	record := e.buildRecord(ctx, common.ScanKindImage, "", nil, parsed.Ingredients, text.Confidence)
	return &Outcome{Kind: OutcomeOcrMatch, Scan: record}, nil
}

// ProcessBarcode 處理手動輸入或外部掃描器給的條碼
func (e *Engine) ProcessBarcode(ctx context.Context, code string) (*Outcome, error) {
	gen, ok := e.session.begin(actionProcessBarcode, code)
	if !ok {
		return nil, common.NewValidationError("辨識進行中，忽略重入呼叫")
	}

	outcome, err := e.processBarcode(ctx, code)
	return e.commit(ctx, gen, outcome, err)
}

func (e *Engine) processBarcode(ctx context.Context, code string) (*Outcome, error) {
	code = strings.TrimSpace(code)
	if !barcode.Validate(code) {
		return nil, common.NewValidationError("invalid barcode")
	}

	product, err := e.repo.LookupProduct(ctx, code)
	if err != nil {
		return nil, common.NewRecognitionError("product not found")
	}

	record := e.buildRecord(ctx, common.ScanKindBarcode, code, product, product.Ingredients, 0)
	return &Outcome{Kind: OutcomeBarcodeMatch, Scan: record}, nil
}

// ProcessText 處理手動輸入的成分文字
func (e *Engine) ProcessText(ctx context.Context, text string) (*Outcome, error) {
	gen, ok := e.session.begin(actionProcessText, text)
	if !ok {
		return nil, common.NewValidationError("辨識進行中，忽略重入呼叫")
	}

	outcome, err := e.processText(ctx, text)
	return e.commit(ctx, gen, outcome, err)
}

func (e *Engine) processText(ctx context.Context, text string) (*Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.NewValidationError("empty text")
	}

	parsed := ingredient.Extract(text)
	if len(parsed.Ingredients) == 0 {
		return nil, common.NewRecognitionError("no ingredients")
	}

	record := e.buildRecord(ctx, common.ScanKindText, "", nil, parsed.Ingredients, 0)
	return &Outcome{Kind: OutcomeOcrMatch, Scan: record}, nil
}

// RetryLastRecognition 以最後一次的輸入重跑同一個動作
func (e *Engine) RetryLastRecognition(ctx context.Context) (*Outcome, error) {
	action, input, ok := e.session.lastAttempt()
	if !ok {
		return nil, common.NewRecognitionError("no previous scan")
	}

	switch action {
	case actionRecognizeProduct:
		return e.RecognizeProduct(ctx, input)
	case actionProcessBarcode:
		return e.ProcessBarcode(ctx, input)
	case actionProcessText:
		return e.ProcessText(ctx, input)
	}
	return nil, common.NewRecognitionError("no previous scan")
}

// buildRecord 建構掃描紀錄：成分衝突分析 → 安全分數 → 持久化
func (e *Engine) buildRecord(ctx context.Context, kind common.ScanKind, barcodeKey string, product *common.Product, ingredients []string, confidence float64) *common.ScanRecord {
	conflicts, err := e.analyzer.Analyze(ctx, ingredients)
	if err != nil {
		// 分析器雙路徑皆敗才會走到這，紀錄仍然成立，只是衝突未知
		common.LogWarn("衝突分析失敗，紀錄不含衝突資訊",
			zap.Error(err),
		)
		conflicts = nil
	}

	now := time.Now()
	record := &common.ScanRecord{
		ID:          common.GenerateUUID(),
		Barcode:     barcodeKey,
		Product:     product,
		Ingredients: ingredients,
		Conflicts:   conflicts,
		ScanKind:    kind,
		Timestamp:   now,
		SafetyScore: conflict.SafetyScore(conflicts),
		Confidence:  confidence,
	}
	if record.Barcode == "" {
		record.Barcode = common.SyntheticBarcode(kind, now)
	}

	if err := e.repo.AddScanToHistory(ctx, record); err != nil {
		// 本地儲存失敗不推翻已完成的辨識，但必須留下紀錄
		common.LogError("掃描紀錄持久化失敗",
			zap.String("barcode", record.Barcode),
			zap.Error(err),
		)
	}
	return record
}

// commit 落地最終狀態轉移：會話已被清除或呼叫端已放棄時，結果靜默丟棄
func (e *Engine) commit(ctx context.Context, gen int64, outcome *Outcome, err error) (*Outcome, error) {
	if ctx.Err() != nil {
		// 呼叫端已不在乎結果，讓會話留在可重試的錯誤狀態
		e.session.fail(gen, common.NewRecognitionError("attempt abandoned"))
		return nil, common.NewRecognitionError("attempt abandoned")
	}

	if err != nil {
		e.session.fail(gen, err)
		return nil, err
	}
	e.session.complete(gen, outcome)
	return outcome, nil
}
