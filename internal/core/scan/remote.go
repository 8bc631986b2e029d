package scan

import (
	"context"
	"fmt"
	"net/http"

	"skincare-scanner/internal/infrastructure/config"
	"skincare-scanner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// RemoteService 遠端掃描服務介面
// 所有方法的錯誤都會被儲存庫吸收成本地回退，不會外洩給呼叫端
type RemoteService interface {
	GetProductByBarcode(ctx context.Context, barcode string) (*common.Product, error)
	GetScanHistory(ctx context.Context) ([]*common.ScanRecord, error)
	GetFavorites(ctx context.Context) ([]*common.ScanRecord, error)
	SearchScans(ctx context.Context, query string) ([]*common.ScanRecord, error)
	GetScan(ctx context.Context, barcode string) (*common.ScanRecord, error)
	UpsertScan(ctx context.Context, record *common.ScanRecord) error
	DeleteScan(ctx context.Context, barcode string) error
	ClearHistory(ctx context.Context) error
	AnalyzeConflicts(ctx context.Context, ingredients []string) ([]common.Conflict, error)
}

// Client 遠端掃描服務客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 創建遠端掃描服務客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Remote.BaseURL).
		SetTimeout(cfg.Remote.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.Remote.APIKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Remote.APIKey))
	}

	return &Client{
		config: cfg,
		client: client,
	}
}

// GetProductByBarcode 以條碼查詢產品
func (c *Client) GetProductByBarcode(ctx context.Context, barcode string) (*common.Product, error) {
	var product common.Product
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&product).
		Get(fmt.Sprintf("/v1/products/%s", barcode))
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, common.NewNotFoundError(barcode)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("product lookup returned status %d", resp.StatusCode())
	}
	return &product, nil
}

// GetScanHistory 取得掃描歷史
func (c *Client) GetScanHistory(ctx context.Context) ([]*common.ScanRecord, error) {
	return c.listScans(ctx, "/v1/scans", nil)
}

// GetFavorites 取得收藏列表
func (c *Client) GetFavorites(ctx context.Context) ([]*common.ScanRecord, error) {
	return c.listScans(ctx, "/v1/scans/favorites", nil)
}

// SearchScans 搜尋掃描歷史
func (c *Client) SearchScans(ctx context.Context, query string) ([]*common.ScanRecord, error) {
	return c.listScans(ctx, "/v1/scans/search", map[string]string{"q": query})
}

// listScans 掃描列表端點的共用請求
func (c *Client) listScans(ctx context.Context, path string, params map[string]string) ([]*common.ScanRecord, error) {
	var result struct {
		Scans []*common.ScanRecord `json:"scans"`
	}
	req := c.client.R().SetContext(ctx).SetResult(&result)
	if params != nil {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("scan list returned status %d", resp.StatusCode())
	}
	return result.Scans, nil
}

// GetScan 以條碼取得單筆掃描紀錄
func (c *Client) GetScan(ctx context.Context, barcode string) (*common.ScanRecord, error) {
	var record common.ScanRecord
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&record).
		Get(fmt.Sprintf("/v1/scans/%s", barcode))
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, common.NewNotFoundError(barcode)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("scan lookup returned status %d", resp.StatusCode())
	}
	return &record, nil
}

// UpsertScan 寫入或覆蓋一筆掃描紀錄
func (c *Client) UpsertScan(ctx context.Context, record *common.ScanRecord) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(record).
		Put(fmt.Sprintf("/v1/scans/%s", record.Barcode))
	if err != nil {
		return fmt.Errorf("failed to upsert scan: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("scan upsert returned status %d", resp.StatusCode())
	}
	return nil
}

// DeleteScan 刪除一筆掃描紀錄
func (c *Client) DeleteScan(ctx context.Context, barcode string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/v1/scans/%s", barcode))
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("scan delete returned status %d", resp.StatusCode())
	}
	return nil
}

// ClearHistory 清空遠端掃描歷史
func (c *Client) ClearHistory(ctx context.Context) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Delete("/v1/scans")
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("history clear returned status %d", resp.StatusCode())
	}
	return nil
}

// AnalyzeConflicts 呼叫遠端成分衝突分析
func (c *Client) AnalyzeConflicts(ctx context.Context, ingredients []string) ([]common.Conflict, error) {
	var result struct {
		Conflicts []common.Conflict `json:"conflicts"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string][]string{"ingredients": ingredients}).
		SetResult(&result).
		Post("/v1/conflicts/analyze")
	if err != nil {
		return nil, fmt.Errorf("failed to analyze conflicts: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("conflict analysis returned status %d", resp.StatusCode())
	}
	return result.Conflicts, nil
}
