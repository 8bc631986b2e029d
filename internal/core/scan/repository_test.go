package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"skincare-scanner/internal/pkg/common"
)

// --- 測試用 mock ---

// memStore 測試用的記憶體本地儲存
type memStore struct {
	records map[string]*common.ScanRecord
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*common.ScanRecord)}
}

func (s *memStore) Put(_ context.Context, record *common.ScanRecord) error {
	if s.putErr != nil {
		return s.putErr
	}
	clone := *record
	s.records[record.Barcode] = &clone
	return nil
}

func (s *memStore) Get(_ context.Context, barcode string) (*common.ScanRecord, error) {
	record, ok := s.records[barcode]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (s *memStore) Delete(_ context.Context, barcode string) error {
	delete(s.records, barcode)
	return nil
}

func (s *memStore) Clear(_ context.Context) error {
	s.records = make(map[string]*common.ScanRecord)
	return nil
}

func (s *memStore) All(_ context.Context) ([]*common.ScanRecord, error) {
	out := make([]*common.ScanRecord, 0, len(s.records))
	for _, record := range s.records {
		clone := *record
		out = append(out, &clone)
	}
	return out, nil
}

// failingRemote 一律失敗的遠端服務
type failingRemote struct{}

var errRemoteDown = errors.New("remote unreachable")

func (failingRemote) GetProductByBarcode(context.Context, string) (*common.Product, error) {
	return nil, errRemoteDown
}
func (failingRemote) GetScanHistory(context.Context) ([]*common.ScanRecord, error) {
	return nil, errRemoteDown
}
func (failingRemote) GetFavorites(context.Context) ([]*common.ScanRecord, error) {
	return nil, errRemoteDown
}
func (failingRemote) SearchScans(context.Context, string) ([]*common.ScanRecord, error) {
	return nil, errRemoteDown
}
func (failingRemote) GetScan(context.Context, string) (*common.ScanRecord, error) {
	return nil, errRemoteDown
}
func (failingRemote) UpsertScan(context.Context, *common.ScanRecord) error { return errRemoteDown }
func (failingRemote) DeleteScan(context.Context, string) error             { return errRemoteDown }
func (failingRemote) ClearHistory(context.Context) error                   { return errRemoteDown }
func (failingRemote) AnalyzeConflicts(context.Context, []string) ([]common.Conflict, error) {
	return nil, errRemoteDown
}

// stubRemote 可設定回應的遠端服務
type stubRemote struct {
	failingRemote
	history []*common.ScanRecord
	product *common.Product
	upserts []*common.ScanRecord
}

func (s *stubRemote) GetScanHistory(context.Context) ([]*common.ScanRecord, error) {
	return s.history, nil
}

func (s *stubRemote) GetProductByBarcode(context.Context, string) (*common.Product, error) {
	if s.product == nil {
		return nil, common.NewNotFoundError("missing")
	}
	return s.product, nil
}

func (s *stubRemote) UpsertScan(_ context.Context, record *common.ScanRecord) error {
	s.upserts = append(s.upserts, record)
	return nil
}

func record(barcode, notes string) *common.ScanRecord {
	return &common.ScanRecord{
		ID:        common.GenerateUUID(),
		Barcode:   barcode,
		ScanKind:  common.ScanKindBarcode,
		Notes:     notes,
		Timestamp: time.Now(),
	}
}

// --- 測試 ---

func TestAddScanUpsertsByBarcode(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store, nil, nil)
	ctx := context.Background()

	if err := repo.AddScanToHistory(ctx, record("111", "first")); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := repo.AddScanToHistory(ctx, record("111", "second")); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(store.records) != 1 {
		t.Fatalf("store has %d records, want 1", len(store.records))
	}
	if got := store.records["111"].Notes; got != "second" {
		t.Errorf("notes = %q, want %q", got, "second")
	}
}

func TestAddScanGeneratesSyntheticKey(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store, nil, nil)

	rec := &common.ScanRecord{ScanKind: common.ScanKindText}
	if err := repo.AddScanToHistory(context.Background(), rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.Barcode == "" {
		t.Fatal("expected synthetic barcode")
	}
	if rec.ID == "" {
		t.Fatal("expected generated id")
	}
	if want := "text_scan_"; rec.Barcode[:len(want)] != want {
		t.Errorf("barcode = %q, want prefix %q", rec.Barcode, want)
	}
}

func TestGetScanHistoryFallsBackToLocal(t *testing.T) {
	store := newMemStore()
	store.records["111"] = record("111", "cached")
	repo := NewRepository(store, failingRemote{}, nil)

	records, err := repo.GetScanHistory(context.Background())
	if err != nil {
		t.Fatalf("expected silent fallback, got error: %v", err)
	}
	if len(records) != 1 || records[0].Barcode != "111" {
		t.Errorf("records = %v, want the local record", records)
	}
}

func TestGetScanByBarcodeOfflineRead(t *testing.T) {
	store := newMemStore()
	rec := record("111", "")
	rec.Product = &common.Product{Name: "A"}
	store.records["111"] = rec
	repo := NewRepository(store, failingRemote{}, nil)

	got, err := repo.GetScanByBarcode(context.Background(), "111")
	if err != nil {
		t.Fatalf("expected local fallback, got error: %v", err)
	}
	if got.Product == nil || got.Product.Name != "A" {
		t.Errorf("got %+v, want product A", got)
	}
}

func TestGetScanByBarcodeMissReturnsNotFound(t *testing.T) {
	repo := NewRepository(newMemStore(), failingRemote{}, nil)

	_, err := repo.GetScanByBarcode(context.Background(), "999")
	if !common.IsNotFoundError(err) {
		t.Errorf("err = %v, want NotFoundError", err)
	}
}

func TestGetScanHistoryRemoteWinsAndRefreshesLocal(t *testing.T) {
	store := newMemStore()
	remote := &stubRemote{history: []*common.ScanRecord{record("222", "remote")}}
	repo := NewRepository(store, remote, nil)

	records, err := repo.GetScanHistory(context.Background())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 || records[0].Notes != "remote" {
		t.Fatalf("records = %v, want remote result", records)
	}
	if _, ok := store.records["222"]; !ok {
		t.Error("expected remote result written back to local store")
	}
}

func TestGetFavoritesLocalFilter(t *testing.T) {
	store := newMemStore()
	fav := record("111", "")
	fav.IsFavorite = true
	store.records["111"] = fav
	store.records["222"] = record("222", "")
	repo := NewRepository(store, failingRemote{}, nil)

	favorites, err := repo.GetFavorites(context.Background())
	if err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(favorites) != 1 || favorites[0].Barcode != "111" {
		t.Errorf("favorites = %v, want only 111", favorites)
	}
}

func TestRemoteWriteFailureIsSwallowed(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store, failingRemote{}, nil)

	if err := repo.AddScanToHistory(context.Background(), record("111", "")); err != nil {
		t.Fatalf("local write should succeed despite remote failure: %v", err)
	}
	if got := repo.PendingSync(); got != 1 {
		t.Errorf("PendingSync = %d, want 1", got)
	}
}

func TestRemoteWriteBestEffortSucceeds(t *testing.T) {
	store := newMemStore()
	remote := &stubRemote{}
	repo := NewRepository(store, remote, nil)

	if err := repo.AddScanToHistory(context.Background(), record("111", "")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(remote.upserts) != 1 {
		t.Errorf("remote upserts = %d, want 1", len(remote.upserts))
	}
	if got := repo.PendingSync(); got != 0 {
		t.Errorf("PendingSync = %d, want 0", got)
	}
}

func TestToggleFavoritePersists(t *testing.T) {
	store := newMemStore()
	store.records["111"] = record("111", "")
	repo := NewRepository(store, nil, nil)
	ctx := context.Background()

	got, err := repo.ToggleFavorite(ctx, "111")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !got.IsFavorite {
		t.Error("expected favorite after first toggle")
	}
	if !store.records["111"].IsFavorite {
		t.Error("toggle not persisted to local store")
	}

	got, err = repo.ToggleFavorite(ctx, "111")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if got.IsFavorite {
		t.Error("expected not favorite after second toggle")
	}
}

func TestMutationsOnMissingKey(t *testing.T) {
	repo := NewRepository(newMemStore(), nil, nil)
	ctx := context.Background()

	if _, err := repo.ToggleFavorite(ctx, "999"); !common.IsNotFoundError(err) {
		t.Errorf("ToggleFavorite err = %v, want NotFoundError", err)
	}
	if _, err := repo.UpdateNotes(ctx, "999", "x"); !common.IsNotFoundError(err) {
		t.Errorf("UpdateNotes err = %v, want NotFoundError", err)
	}
	if err := repo.DeleteScan(ctx, "999"); !common.IsNotFoundError(err) {
		t.Errorf("DeleteScan err = %v, want NotFoundError", err)
	}
}

func TestTagMutations(t *testing.T) {
	store := newMemStore()
	store.records["111"] = record("111", "")
	repo := NewRepository(store, nil, nil)
	ctx := context.Background()

	if _, err := repo.AddTag(ctx, "111", "morning"); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	// 重複加入不生效
	got, err := repo.AddTag(ctx, "111", "Morning")
	if err != nil {
		t.Fatalf("duplicate tag: %v", err)
	}
	if len(got.Tags) != 1 {
		t.Errorf("tags = %v, want 1 entry", got.Tags)
	}

	got, err = repo.RemoveTag(ctx, "111", "MORNING")
	if err != nil {
		t.Fatalf("remove tag: %v", err)
	}
	if len(got.Tags) != 0 {
		t.Errorf("tags = %v, want empty", got.Tags)
	}
}

func TestSearchScanHistoryLocalFallback(t *testing.T) {
	store := newMemStore()
	rec := record("111", "")
	rec.Product = &common.Product{Name: "Hydra Serum", Brand: "Acme"}
	rec.Ingredients = []string{"Water", "Retinol"}
	store.records["111"] = rec
	store.records["222"] = record("222", "")
	repo := NewRepository(store, failingRemote{}, nil)
	ctx := context.Background()

	matched, err := repo.SearchScanHistory(ctx, "retinol")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matched) != 1 || matched[0].Barcode != "111" {
		t.Errorf("matched = %v, want record 111", matched)
	}
}

func TestLookupProductFallsBackToLocalRecord(t *testing.T) {
	store := newMemStore()
	rec := record("111", "")
	rec.Product = &common.Product{Name: "A"}
	store.records["111"] = rec
	repo := NewRepository(store, failingRemote{}, nil)

	product, err := repo.LookupProduct(context.Background(), "111")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if product.Name != "A" {
		t.Errorf("product = %+v, want name A", product)
	}
}

func TestClearHistory(t *testing.T) {
	store := newMemStore()
	store.records["111"] = record("111", "")
	store.records["222"] = record("222", "")
	repo := NewRepository(store, nil, nil)

	if err := repo.ClearHistory(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(store.records) != 0 {
		t.Errorf("store has %d records after clear, want 0", len(store.records))
	}
}

func TestLocalStorageFailureSurfaces(t *testing.T) {
	store := newMemStore()
	store.putErr = common.NewStorageError("put", errors.New("disk full"))
	repo := NewRepository(store, nil, nil)

	err := repo.AddScanToHistory(context.Background(), record("111", ""))
	if !common.IsStorageError(err) {
		t.Errorf("err = %v, want StorageError", err)
	}
}
