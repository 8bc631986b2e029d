package recognition

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"skincare-scanner/internal/core/conflict"
	"skincare-scanner/internal/core/scan"
	"skincare-scanner/internal/core/vision"
	"skincare-scanner/internal/pkg/common"
)

// memStore 記憶體版本地儲存
type memStore struct {
	mu      sync.Mutex
	records map[string]*common.ScanRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*common.ScanRecord)}
}

func (s *memStore) Put(ctx context.Context, record *common.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.Barcode] = &clone
	return nil
}

func (s *memStore) Get(ctx context.Context, barcode string) (*common.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[barcode]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (s *memStore) Delete(ctx context.Context, barcode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, barcode)
	return nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*common.ScanRecord)
	return nil
}

func (s *memStore) All(ctx context.Context) ([]*common.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*common.ScanRecord, 0, len(s.records))
	for _, record := range s.records {
		clone := *record
		out = append(out, &clone)
	}
	return out, nil
}

var errRemoteDown = errors.New("remote down")

// productRemote 只提供產品目錄，其餘遠端操作一律失敗（離線情境）
type productRemote struct {
	products map[string]*common.Product
}

func (r *productRemote) GetProductByBarcode(ctx context.Context, barcode string) (*common.Product, error) {
	if p, ok := r.products[barcode]; ok {
		return p, nil
	}
	return nil, common.NewNotFoundError(barcode)
}

func (r *productRemote) GetScanHistory(ctx context.Context) ([]*common.ScanRecord, error) {
	return nil, errRemoteDown
}

func (r *productRemote) GetFavorites(ctx context.Context) ([]*common.ScanRecord, error) {
	return nil, errRemoteDown
}

func (r *productRemote) SearchScans(ctx context.Context, query string) ([]*common.ScanRecord, error) {
	return nil, errRemoteDown
}

func (r *productRemote) GetScan(ctx context.Context, barcode string) (*common.ScanRecord, error) {
	return nil, errRemoteDown
}

func (r *productRemote) UpsertScan(ctx context.Context, record *common.ScanRecord) error {
	return errRemoteDown
}

func (r *productRemote) DeleteScan(ctx context.Context, barcode string) error {
	return errRemoteDown
}

func (r *productRemote) ClearHistory(ctx context.Context) error {
	return errRemoteDown
}

func (r *productRemote) AnalyzeConflicts(ctx context.Context, ingredients []string) ([]common.Conflict, error) {
	return nil, errRemoteDown
}

// blockingBackend 解碼時卡住，直到 release 被關閉，用來驗證載入守衛
type blockingBackend struct {
	vision.MockBackend
	started chan struct{}
	release chan struct{}
}

func (b *blockingBackend) DecodeBarcode(ctx context.Context, imageData string) (*vision.BarcodeResult, error) {
	close(b.started)
	<-b.release
	return b.MockBackend.DecodeBarcode(ctx, imageData)
}

const knownBarcode = "5901234123457"

func newTestEngine(backend vision.Backend) (*Engine, *memStore) {
	store := newMemStore()
	remote := &productRemote{products: map[string]*common.Product{
		knownBarcode: {
			Name:        "Hydra Serum",
			Brand:       "DermaLab",
			Ingredients: []string{"Water", "Glycerin", "Retinol"},
		},
	}}
	repo := scan.NewRepository(store, remote, nil)
	analyzer := conflict.NewAnalyzer(nil, nil)
	return NewEngine(backend, repo, analyzer, nil), store
}

func TestRecognizeProductBarcodeTakesPrecedence(t *testing.T) {
	backend := vision.NewMockBackend()
	backend.Barcode = knownBarcode
	backend.Text = "INGREDIENTS: Water, Fragrance" // OCR 也有結果，但不該被用到
	engine, _ := newTestEngine(backend)

	outcome, err := engine.RecognizeProduct(context.Background(), "data:image/jpeg;base64,xxx")
	if err != nil {
		t.Fatalf("RecognizeProduct: %v", err)
	}
	if outcome.Kind != OutcomeBarcodeMatch {
		t.Fatalf("expected barcode match, got %s", outcome.Kind)
	}
	if outcome.Scan.Barcode != knownBarcode {
		t.Fatalf("unexpected barcode %q", outcome.Scan.Barcode)
	}
	if outcome.Scan.Product == nil || outcome.Scan.Product.Name != "Hydra Serum" {
		t.Fatalf("product not attached: %+v", outcome.Scan.Product)
	}
	// 成分來自產品目錄，而非 OCR 文字
	for _, ing := range outcome.Scan.Ingredients {
		if strings.EqualFold(ing, "Fragrance") {
			t.Fatal("OCR ingredients leaked into barcode match")
		}
	}
	if state := engine.State(); state.Phase != PhaseSuccess {
		t.Fatalf("expected success phase, got %s", state.Phase)
	}
}

func TestRecognizeProductFallsBackToOcr(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(b *vision.MockBackend)
	}{
		{"no barcode found", func(b *vision.MockBackend) {
			b.Barcode = ""
		}},
		{"decode error", func(b *vision.MockBackend) {
			b.DecodeErr = errors.New("decoder crashed")
		}},
		{"checksum invalid", func(b *vision.MockBackend) {
			b.Barcode = "5901234123450"
		}},
		{"product unknown", func(b *vision.MockBackend) {
			b.Barcode = "96385074" // 校驗通過但目錄沒有
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := vision.NewMockBackend()
			backend.Text = "INGREDIENTS: Water, Retinol, Niacinamide."
			backend.Confidence = 0.9
			tc.prepare(backend)
			engine, _ := newTestEngine(backend)

			outcome, err := engine.RecognizeProduct(context.Background(), "data:image/jpeg;base64,xxx")
			if err != nil {
				t.Fatalf("expected OCR fallback, got error: %v", err)
			}
			if outcome.Kind != OutcomeOcrMatch {
				t.Fatalf("expected ocr match, got %s", outcome.Kind)
			}
			if !strings.HasPrefix(outcome.Scan.Barcode, "image_scan_") {
				t.Fatalf("expected synthetic key, got %q", outcome.Scan.Barcode)
			}
			if len(outcome.Scan.Ingredients) != 3 {
				t.Fatalf("ingredients = %v", outcome.Scan.Ingredients)
			}
			if outcome.Scan.Confidence != 0.9 {
				t.Fatalf("confidence = %v", outcome.Scan.Confidence)
			}
		})
	}
}

func TestRecognizeProductOcrConflictsAnalyzed(t *testing.T) {
	backend := vision.NewMockBackend()
	backend.Text = "INGREDIENTS: Water, Retinol, Glycolic Acid."
	engine, _ := newTestEngine(backend)

	outcome, err := engine.RecognizeProduct(context.Background(), "data:image/jpeg;base64,xxx")
	if err != nil {
		t.Fatalf("RecognizeProduct: %v", err)
	}
	names := outcome.Scan.ConflictNames()
	if len(names) != 2 {
		t.Fatalf("conflicts = %v", names)
	}
	// high 30 + medium 15
	if outcome.Scan.SafetyScore != 55 {
		t.Fatalf("safety score = %d", outcome.Scan.SafetyScore)
	}
}

func TestRecognizeProductBothPathsFail(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"no text", "   "},
		{"no ingredients", "ab, cd"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := vision.NewMockBackend()
			backend.Text = tc.text
			engine, _ := newTestEngine(backend)

			_, err := engine.RecognizeProduct(context.Background(), "data:image/jpeg;base64,xxx")
			if !common.IsRecognitionError(err) {
				t.Fatalf("expected recognition error, got %v", err)
			}
			state := engine.State()
			if state.Phase != PhaseError {
				t.Fatalf("expected error phase, got %s", state.Phase)
			}
			if state.ErrCode != common.ErrCodeRecognitionFailed {
				t.Fatalf("error code = %q", state.ErrCode)
			}
		})
	}
}

func TestRecognizeProductPersistsScan(t *testing.T) {
	backend := vision.NewMockBackend()
	backend.Barcode = knownBarcode
	engine, store := newTestEngine(backend)

	outcome, err := engine.RecognizeProduct(context.Background(), "data:image/jpeg;base64,xxx")
	if err != nil {
		t.Fatalf("RecognizeProduct: %v", err)
	}

	saved, err := store.Get(context.Background(), outcome.Scan.Barcode)
	if err != nil || saved == nil {
		t.Fatalf("scan not persisted locally: %v, %v", saved, err)
	}
	if saved.ID != outcome.Scan.ID {
		t.Fatalf("persisted record mismatch: %q vs %q", saved.ID, outcome.Scan.ID)
	}
}

func TestProcessBarcode(t *testing.T) {
	engine, _ := newTestEngine(vision.NewMockBackend())

	t.Run("invalid checksum", func(t *testing.T) {
		_, err := engine.ProcessBarcode(context.Background(), "5901234123450")
		if !common.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := engine.ProcessBarcode(context.Background(), "96385074")
		if !common.IsRecognitionError(err) {
			t.Fatalf("expected recognition error, got %v", err)
		}
	})

	t.Run("known product", func(t *testing.T) {
		outcome, err := engine.ProcessBarcode(context.Background(), "  "+knownBarcode+" ")
		if err != nil {
			t.Fatalf("ProcessBarcode: %v", err)
		}
		if outcome.Kind != OutcomeBarcodeMatch || outcome.Scan.Barcode != knownBarcode {
			t.Fatalf("unexpected outcome: %+v", outcome)
		}
		if outcome.Scan.ScanKind != common.ScanKindBarcode {
			t.Fatalf("scan kind = %s", outcome.Scan.ScanKind)
		}
	})
}

func TestProcessText(t *testing.T) {
	engine, _ := newTestEngine(vision.NewMockBackend())

	t.Run("empty input", func(t *testing.T) {
		_, err := engine.ProcessText(context.Background(), "  \n ")
		if !common.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("ingredient list", func(t *testing.T) {
		outcome, err := engine.ProcessText(context.Background(), "INGREDIENTS: Water, Glycerin, and, Niacinamide.")
		if err != nil {
			t.Fatalf("ProcessText: %v", err)
		}
		if outcome.Kind != OutcomeOcrMatch {
			t.Fatalf("expected ocr match, got %s", outcome.Kind)
		}
		want := []string{"Water", "Glycerin", "Niacinamide"}
		if len(outcome.Scan.Ingredients) != len(want) {
			t.Fatalf("ingredients = %v", outcome.Scan.Ingredients)
		}
		for i, ing := range want {
			if outcome.Scan.Ingredients[i] != ing {
				t.Fatalf("ingredients = %v, want %v", outcome.Scan.Ingredients, want)
			}
		}
		if !strings.HasPrefix(outcome.Scan.Barcode, "text_scan_") {
			t.Fatalf("expected synthetic key, got %q", outcome.Scan.Barcode)
		}
	})
}

func TestRetryLastRecognition(t *testing.T) {
	backend := vision.NewMockBackend()
	backend.RecognizeErr = errors.New("ocr offline")
	engine, _ := newTestEngine(backend)

	if _, err := engine.RecognizeProduct(context.Background(), "data:image/jpeg;base64,xxx"); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	// OCR 恢復後用同一份輸入重試
	backend.RecognizeErr = nil
	backend.Text = "INGREDIENTS: Water, Retinol"

	outcome, err := engine.RetryLastRecognition(context.Background())
	if err != nil {
		t.Fatalf("RetryLastRecognition: %v", err)
	}
	if outcome.Kind != OutcomeOcrMatch {
		t.Fatalf("expected ocr match, got %s", outcome.Kind)
	}
}

func TestRetryWithoutPreviousAttempt(t *testing.T) {
	engine, _ := newTestEngine(vision.NewMockBackend())

	if _, err := engine.RetryLastRecognition(context.Background()); !common.IsRecognitionError(err) {
		t.Fatalf("expected recognition error, got %v", err)
	}
}

func TestClearRecognitionDropsAttempt(t *testing.T) {
	engine, _ := newTestEngine(vision.NewMockBackend())

	if _, err := engine.ProcessText(context.Background(), "INGREDIENTS: Water"); err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	engine.ClearRecognition()

	if state := engine.State(); state.Phase != PhaseInitial || state.Outcome != nil {
		t.Fatalf("state after clear: %+v", state)
	}
	if _, err := engine.RetryLastRecognition(context.Background()); err == nil {
		t.Fatal("retry after clear should fail")
	}
}

func TestEngineRejectsConcurrentAttempts(t *testing.T) {
	backend := &blockingBackend{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	backend.Text = "INGREDIENTS: Water"
	engine, _ := newTestEngine(backend)

	done := make(chan error, 1)
	go func() {
		_, err := engine.RecognizeProduct(context.Background(), "data:image/jpeg;base64,xxx")
		done <- err
	}()

	<-backend.started
	if _, err := engine.ProcessText(context.Background(), "Water"); !common.IsValidationError(err) {
		t.Fatalf("expected busy rejection, got %v", err)
	}

	close(backend.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first attempt failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first attempt did not finish")
	}
}

func TestAbandonedContextLeavesRetryableError(t *testing.T) {
	backend := vision.NewMockBackend()
	backend.Text = "INGREDIENTS: Water"
	engine, _ := newTestEngine(backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.RecognizeProduct(ctx, "data:image/jpeg;base64,xxx"); !common.IsRecognitionError(err) {
		t.Fatalf("expected recognition error, got %v", err)
	}
	if state := engine.State(); state.Phase != PhaseError {
		t.Fatalf("expected error phase, got %s", state.Phase)
	}
}
