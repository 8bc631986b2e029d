package scan

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"skincare-scanner/internal/pkg/common"

	"go.uber.org/zap"
)

// Repository 掃描資料的唯一入口，介於本地儲存與遠端服務之間
// 政策：本地為準、遠端盡力而為——讀取先問遠端、失敗靜默回退本地；
// 寫入以本地為成敗依據，遠端寫入失敗只記錄不外洩（尚無重送佇列，見 PendingSync）
type Repository struct {
	store  LocalStore
	remote RemoteService // nil 代表離線部署
	cache  *ProductCache

	mu          sync.Mutex // 序列化同鍵的 read-modify-write 變更
	pendingSync int64
}

// NewRepository 創建掃描儲存庫
func NewRepository(store LocalStore, remote RemoteService, cache *ProductCache) *Repository {
	return &Repository{
		store:  store,
		remote: remote,
		cache:  cache,
	}
}

// GetScanHistory 取得掃描歷史：遠端優先，遠端為空或失敗時回退本地
func (r *Repository) GetScanHistory(ctx context.Context) ([]*common.ScanRecord, error) {
	if r.remote != nil {
		records, err := r.remote.GetScanHistory(ctx)
		if err == nil && len(records) > 0 {
			r.refreshLocal(ctx, records)
			return records, nil
		}
		if err != nil {
			common.LogWarn("遠端掃描歷史讀取失敗，回退本地",
				zap.Error(err),
			)
		}
	}
	return r.store.All(ctx)
}

// GetFavorites 取得收藏列表
func (r *Repository) GetFavorites(ctx context.Context) ([]*common.ScanRecord, error) {
	if r.remote != nil {
		records, err := r.remote.GetFavorites(ctx)
		if err == nil && len(records) > 0 {
			r.refreshLocal(ctx, records)
			return records, nil
		}
		if err != nil {
			common.LogWarn("遠端收藏列表讀取失敗，回退本地",
				zap.Error(err),
			)
		}
	}

	all, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	favorites := make([]*common.ScanRecord, 0)
	for _, record := range all {
		if record.IsFavorite {
			favorites = append(favorites, record)
		}
	}
	return favorites, nil
}

// SearchScanHistory 搜尋掃描歷史
func (r *Repository) SearchScanHistory(ctx context.Context, query string) ([]*common.ScanRecord, error) {
	if r.remote != nil {
		records, err := r.remote.SearchScans(ctx, query)
		if err == nil && len(records) > 0 {
			return records, nil
		}
		if err != nil {
			common.LogWarn("遠端搜尋失敗，回退本地",
				zap.Error(err),
			)
		}
	}

	all, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]*common.ScanRecord, 0)
	for _, record := range all {
		if matchesQuery(record, query) {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

// GetScanByBarcode 以條碼取得單筆紀錄：遠端失敗只要本地有資料就不回傳錯誤
func (r *Repository) GetScanByBarcode(ctx context.Context, barcode string) (*common.ScanRecord, error) {
	if r.remote != nil {
		record, err := r.remote.GetScan(ctx, barcode)
		if err == nil && record != nil {
			r.refreshLocal(ctx, []*common.ScanRecord{record})
			return record, nil
		}
		if err != nil && !common.IsNotFoundError(err) {
			common.LogWarn("遠端單筆查詢失敗，回退本地",
				zap.String("barcode", barcode),
				zap.Error(err),
			)
		}
	}

	record, err := r.store.Get(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, common.NewNotFoundError(barcode)
	}
	return record, nil
}

// LookupProduct 以條碼查詢產品：快取 → 遠端 → 本地紀錄
func (r *Repository) LookupProduct(ctx context.Context, barcode string) (*common.Product, error) {
	if product, err := r.cache.Get(ctx, barcode); err == nil && product != nil {
		return product, nil
	}

	if r.remote != nil {
		product, err := r.remote.GetProductByBarcode(ctx, barcode)
		if err == nil && product != nil {
			if cacheErr := r.cache.Set(ctx, barcode, product); cacheErr != nil {
				common.LogDebug("產品快取寫入失敗",
					zap.Error(cacheErr),
				)
			}
			return product, nil
		}
		if err != nil && !common.IsNotFoundError(err) {
			common.LogWarn("遠端產品查詢失敗，回退本地",
				zap.String("barcode", barcode),
				zap.Error(err),
			)
		}
	}

	record, err := r.store.Get(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Product == nil {
		return nil, common.NewNotFoundError(barcode)
	}
	return record.Product, nil
}

// AddScanToHistory 新增掃描紀錄：同鍵 upsert 覆蓋，不產生重複
func (r *Repository) AddScanToHistory(ctx context.Context, record *common.ScanRecord) error {
	if record.ID == "" {
		record.ID = common.GenerateUUID()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if record.Barcode == "" {
		record.Barcode = common.SyntheticBarcode(record.ScanKind, record.Timestamp)
	}

	if err := r.store.Put(ctx, record); err != nil {
		return err
	}

	r.syncRemote(ctx, "upsert", func() error {
		return r.remote.UpsertScan(ctx, record)
	})
	return nil
}

// UpdateScan 更新既有紀錄，鍵不存在時回傳 NotFoundError
func (r *Repository) UpdateScan(ctx context.Context, record *common.ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.Get(ctx, record.Barcode)
	if err != nil {
		return err
	}
	if existing == nil {
		return common.NewNotFoundError(record.Barcode)
	}

	if err := r.store.Put(ctx, record); err != nil {
		return err
	}

	r.syncRemote(ctx, "upsert", func() error {
		return r.remote.UpsertScan(ctx, record)
	})
	return nil
}

// ToggleFavorite 切換收藏狀態
func (r *Repository) ToggleFavorite(ctx context.Context, barcode string) (*common.ScanRecord, error) {
	return r.mutate(ctx, barcode, func(record *common.ScanRecord) {
		record.IsFavorite = !record.IsFavorite
	})
}

// UpdateNotes 更新備註
func (r *Repository) UpdateNotes(ctx context.Context, barcode, notes string) (*common.ScanRecord, error) {
	return r.mutate(ctx, barcode, func(record *common.ScanRecord) {
		record.Notes = notes
	})
}

// AddTag 加入標籤，重複標籤不生效
func (r *Repository) AddTag(ctx context.Context, barcode, tag string) (*common.ScanRecord, error) {
	return r.mutate(ctx, barcode, func(record *common.ScanRecord) {
		if !record.HasTag(tag) {
			record.Tags = append(record.Tags, tag)
		}
	})
}

// RemoveTag 移除標籤
func (r *Repository) RemoveTag(ctx context.Context, barcode, tag string) (*common.ScanRecord, error) {
	return r.mutate(ctx, barcode, func(record *common.ScanRecord) {
		tags := record.Tags[:0]
		for _, t := range record.Tags {
			if !strings.EqualFold(t, tag) {
				tags = append(tags, t)
			}
		}
		record.Tags = tags
	})
}

// DeleteScan 刪除一筆紀錄，鍵不存在時回傳 NotFoundError
func (r *Repository) DeleteScan(ctx context.Context, barcode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.Get(ctx, barcode)
	if err != nil {
		return err
	}
	if existing == nil {
		return common.NewNotFoundError(barcode)
	}

	if err := r.store.Delete(ctx, barcode); err != nil {
		return err
	}

	r.syncRemote(ctx, "delete", func() error {
		return r.remote.DeleteScan(ctx, barcode)
	})
	return nil
}

// ClearHistory 清空全部掃描歷史
func (r *Repository) ClearHistory(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Clear(ctx); err != nil {
		return err
	}

	r.syncRemote(ctx, "clear", func() error {
		return r.remote.ClearHistory(ctx)
	})
	return nil
}

// PendingSync 回傳遠端同步失敗的累計次數
// 重送佇列尚未實作，這個計數讓缺口保持可觀測
func (r *Repository) PendingSync() int64 {
	return atomic.LoadInt64(&r.pendingSync)
}

// mutate 鎖定後讀-改-寫一筆紀錄，成功後盡力同步遠端
func (r *Repository) mutate(ctx context.Context, barcode string, apply func(*common.ScanRecord)) (*common.ScanRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.store.Get(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, common.NewNotFoundError(barcode)
	}

	apply(record)

	if err := r.store.Put(ctx, record); err != nil {
		return nil, err
	}

	r.syncRemote(ctx, "upsert", func() error {
		return r.remote.UpsertScan(ctx, record)
	})
	return record, nil
}

// syncRemote 本地寫入成功後的遠端同步：失敗只記錄並累計，永不外洩給呼叫端
func (r *Repository) syncRemote(ctx context.Context, op string, fn func() error) {
	if r.remote == nil {
		return
	}
	if err := fn(); err != nil {
		atomic.AddInt64(&r.pendingSync, 1)
		common.LogWarn("遠端同步失敗（待重送）",
			zap.String("op", op),
			zap.Int64("pending_sync", atomic.LoadInt64(&r.pendingSync)),
			zap.Error(err),
		)
	}
}

// refreshLocal 把遠端結果回寫本地快取；整筆 upsert 覆蓋，不做欄位級局部更新
func (r *Repository) refreshLocal(ctx context.Context, records []*common.ScanRecord) {
	for _, record := range records {
		if record.Barcode == "" {
			continue
		}
		if err := r.store.Put(ctx, record); err != nil {
			common.LogWarn("本地快取回寫失敗",
				zap.String("barcode", record.Barcode),
				zap.Error(err),
			)
			return
		}
	}
}

// matchesQuery 本地搜尋的比對條件：條碼、產品名、品牌、成分、標籤、備註
func matchesQuery(record *common.ScanRecord, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}

	if strings.Contains(strings.ToLower(record.Barcode), q) {
		return true
	}
	if record.Product != nil {
		if strings.Contains(strings.ToLower(record.Product.Name), q) ||
			strings.Contains(strings.ToLower(record.Product.Brand), q) {
			return true
		}
	}
	for _, ing := range record.Ingredients {
		if strings.Contains(strings.ToLower(ing), q) {
			return true
		}
	}
	for _, tag := range record.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(record.Notes), q)
}
