package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"skincare-scanner/internal/infrastructure/config"
	"skincare-scanner/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// ProductCache 產品查詢的讀穿快取：擋在遠端產品查詢前面，快取失效不影響查詢結果
type ProductCache struct {
	client *redis.Client
	config *config.Config
}

// NewProductCache 創建產品快取，未啟用時回傳停用實例
func NewProductCache(cfg *config.Config) (*ProductCache, error) {
	if !cfg.Redis.Enabled {
		return &ProductCache{config: cfg}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ProductCache{
		client: client,
		config: cfg,
	}, nil
}

// Get 獲取快取的產品
func (c *ProductCache) Get(ctx context.Context, barcode string) (*common.Product, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("cache is disabled")
	}

	data, err := c.client.Get(ctx, c.key(barcode)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("cache miss")
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var product common.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	return &product, nil
}

// Set 快取產品查詢結果
func (c *ProductCache) Set(ctx context.Context, barcode string, product *common.Product) error {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	if err := c.client.Set(ctx, c.key(barcode), data, c.config.Cache.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// key 生成快取鍵
func (c *ProductCache) key(barcode string) string {
	return fmt.Sprintf("product:barcode:%s", barcode)
}

// Close 關閉快取連接
func (c *ProductCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
