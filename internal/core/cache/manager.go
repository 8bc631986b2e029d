package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"skincare-scanner/internal/infrastructure/config"
	"skincare-scanner/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 快取管理器：帶 TTL 與 LRU 淘汰的行程內快取
type Manager struct {
	config *config.Config
	mu     sync.Mutex
	store  map[string]entry
	stats  stats
}

// entry 快取條目
type entry struct {
	value       string
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// stats 快取統計
type stats struct {
	hits      int64
	misses    int64
	evictions int64
	errors    int64
}

// NewManager 創建新的快取管理器
func NewManager(cfg *config.Config) *Manager {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := &Manager{
		config: cfg,
		store:  make(map[string]entry),
	}

	// 啟動清理過期快取的協程
	go m.startCleanup()

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", cfg.Cache.MaxSize),
		zap.Duration("存活時間", cfg.Cache.TTL),
		zap.Duration("清理間隔", cfg.Cache.CleanupInterval),
	)

	return m
}

// Get 獲取快取值，kind 用來區隔不同用途的鍵空間
func (m *Manager) Get(ctx context.Context, kind, key string) (string, error) {
	if m == nil || !m.config.Cache.Enabled {
		return "", common.ErrCacheDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.generateKey(kind, key)

	e, exists := m.store[k]
	if !exists {
		m.stats.misses++
		common.LogCacheMiss(kind, k)
		return "", common.ErrCacheDisabled
	}

	// 過期條目直接淘汰
	if time.Now().After(e.expiresAt) {
		delete(m.store, k)
		m.stats.evictions++
		m.stats.misses++
		common.LogCacheMiss(kind, k)
		return "", common.ErrCacheDisabled
	}

	// 更新訪問統計
	e.lastAccess = time.Now()
	e.accessCount++
	m.store[k] = e
	m.stats.hits++

	common.LogCacheHit(kind, k)
	return e.value, nil
}

// Set 設置快取值
func (m *Manager) Set(ctx context.Context, kind, key, value string) error {
	if m == nil || !m.config.Cache.Enabled {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 容量滿時先清過期，再做 LRU 淘汰
	if len(m.store) >= m.config.Cache.MaxSize {
		m.cleanup()
		if len(m.store) >= m.config.Cache.MaxSize {
			m.evictLRU()
		}
		if len(m.store) >= m.config.Cache.MaxSize {
			m.stats.errors++
			common.LogWarn("快取已滿",
				zap.Int("目前容量", len(m.store)),
			)
			return common.ErrCacheFull
		}
	}

	now := time.Now()
	m.store[m.generateKey(kind, key)] = entry{
		value:      value,
		expiresAt:  now.Add(m.config.Cache.TTL),
		createdAt:  now,
		lastAccess: now,
	}

	return nil
}

// generateKey 生成快取鍵
func (m *Manager) generateKey(kind, key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%s", kind, hex.EncodeToString(hash[:]))
}

// startCleanup 啟動清理過期快取的協程
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.Cache.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		m.cleanup()
		m.mu.Unlock()
	}
}

// cleanup 清理過期的快取，呼叫端須持有鎖
func (m *Manager) cleanup() int {
	now := time.Now()
	count := 0

	for key, e := range m.store {
		if now.After(e.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}

	if count > 0 {
		common.LogInfo("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.stats.evictions),
			zap.Int("remaining_size", len(m.store)),
		)
	}

	return count
}

// evictLRU 淘汰最少使用的條目，呼叫端須持有鎖
func (m *Manager) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, e := range m.store {
		if oldestKey == "" ||
			e.accessCount < lowestAccessCount ||
			(e.accessCount == lowestAccessCount && e.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = e.lastAccess
			lowestAccessCount = e.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
		common.LogInfo("快取已淘汰(LRU)",
			zap.String("鍵", oldestKey),
		)
	}
}

// Stats 獲取快取統計信息
func (m *Manager) Stats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"enabled": false}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.stats.hits + m.stats.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(m.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"size":      len(m.store),
		"max_size":  m.config.Cache.MaxSize,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"errors":    m.stats.errors,
		"hit_ratio": ratio,
	}
}

// Close 關閉快取管理器
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]entry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}
