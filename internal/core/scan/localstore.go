package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skincare-scanner/internal/pkg/common"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// LocalStore 本地持久化儲存介面：以 barcode 為鍵的 KV 存取
// Get 未命中時回傳 (nil, nil)，錯誤只代表儲存層本身失敗
type LocalStore interface {
	Put(ctx context.Context, record *common.ScanRecord) error
	Get(ctx context.Context, barcode string) (*common.ScanRecord, error)
	Delete(ctx context.Context, barcode string) error
	Clear(ctx context.Context) error
	All(ctx context.Context) ([]*common.ScanRecord, error)
}

// scanRow 掃描紀錄的資料表列：完整紀錄存 JSON，常用欄位拉出來建索引
type scanRow struct {
	Barcode    string    `gorm:"primaryKey;size:64"`
	RecordID   string    `gorm:"size:36"`
	Kind       string    `gorm:"size:16"`
	IsFavorite bool      `gorm:"index"`
	ScannedAt  time.Time `gorm:"index"`
	Payload    string    `gorm:"type:text"` // ScanRecord 的 JSON
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定資料表名稱
func (scanRow) TableName() string {
	return "scan_records"
}

// SQLiteStore 以 SQLite 實作的本地儲存
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore 開啟（必要時建立）本地資料庫
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if err := db.AutoMigrate(&scanRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close 關閉底層資料庫連線
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Put 寫入或覆蓋一筆紀錄（以 barcode 為鍵 upsert，不產生重複）
func (s *SQLiteStore) Put(ctx context.Context, record *common.ScanRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return common.NewStorageError("put", err)
	}

	row := scanRow{
		Barcode:    record.Barcode,
		RecordID:   record.ID,
		Kind:       string(record.ScanKind),
		IsFavorite: record.IsFavorite,
		ScannedAt:  record.Timestamp,
		Payload:    string(payload),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "barcode"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return common.NewStorageError("put", err)
	}
	return nil
}

// Get 以 barcode 讀取一筆紀錄，未命中回傳 (nil, nil)
func (s *SQLiteStore) Get(ctx context.Context, barcode string) (*common.ScanRecord, error) {
	var row scanRow
	err := s.db.WithContext(ctx).First(&row, "barcode = ?", barcode).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewStorageError("get", err)
	}
	return decodeRow(&row)
}

// Delete 刪除一筆紀錄，鍵不存在時視為成功
func (s *SQLiteStore) Delete(ctx context.Context, barcode string) error {
	if err := s.db.WithContext(ctx).Delete(&scanRow{}, "barcode = ?", barcode).Error; err != nil {
		return common.NewStorageError("delete", err)
	}
	return nil
}

// Clear 清空全部紀錄
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&scanRow{}).Error; err != nil {
		return common.NewStorageError("clear", err)
	}
	return nil
}

// All 讀出全部紀錄，依掃描時間新到舊排序
func (s *SQLiteStore) All(ctx context.Context) ([]*common.ScanRecord, error) {
	var rows []scanRow
	if err := s.db.WithContext(ctx).Order("scanned_at DESC").Find(&rows).Error; err != nil {
		return nil, common.NewStorageError("all", err)
	}

	records := make([]*common.ScanRecord, 0, len(rows))
	for i := range rows {
		record, err := decodeRow(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// decodeRow 還原出完整紀錄
func decodeRow(row *scanRow) (*common.ScanRecord, error) {
	var record common.ScanRecord
	if err := common.ParseJSON(row.Payload, &record); err != nil {
		return nil, common.NewStorageError("decode", err)
	}
	return &record, nil
}
