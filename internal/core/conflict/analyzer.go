package conflict

import (
	"context"
	"strings"

	"skincare-scanner/internal/core/cache"
	"skincare-scanner/internal/pkg/common"

	"go.uber.org/zap"
)

// RemoteAnalyzer 遠端衝突分析能力，由遠端掃描服務客戶端實作
type RemoteAnalyzer interface {
	AnalyzeConflicts(ctx context.Context, ingredients []string) ([]common.Conflict, error)
}

// Analyzer 成分衝突分析器：遠端優先，任何遠端失敗都回退內建衝突表
type Analyzer struct {
	remote       RemoteAnalyzer // nil 代表純離線部署
	cacheManager *cache.Manager
}

// NewAnalyzer 創建衝突分析器
func NewAnalyzer(remote RemoteAnalyzer, cacheManager *cache.Manager) *Analyzer {
	return &Analyzer{
		remote:       remote,
		cacheManager: cacheManager,
	}
}

// Analyze 找出成分列表中被標記的衝突成分
// 空結果是正常輸出，不是錯誤；回傳的衝突永遠是輸入成分的子集
func (a *Analyzer) Analyze(ctx context.Context, ingredients []string) ([]common.Conflict, error) {
	if len(ingredients) == 0 {
		return []common.Conflict{}, nil
	}

	cacheKey := strings.ToLower(strings.Join(ingredients, "|"))

	// 檢查快取
	if cached, err := a.cacheManager.Get(ctx, "conflict", cacheKey); err == nil && cached != "" {
		var conflicts []common.Conflict
		if err := common.ParseJSON(cached, &conflicts); err == nil {
			return conflicts, nil
		}
	}

	conflicts := a.analyzeRemoteOrLocal(ctx, ingredients)

	if data, err := common.ToJSON(conflicts); err == nil {
		_ = a.cacheManager.Set(ctx, "conflict", cacheKey, data)
	}

	common.LogInfo("成分衝突分析完成",
		zap.Int("ingredients", len(ingredients)),
		zap.Int("conflicts", len(conflicts)),
	)
	return conflicts, nil
}

// analyzeRemoteOrLocal 先問遠端，失敗時回退本地衝突表
func (a *Analyzer) analyzeRemoteOrLocal(ctx context.Context, ingredients []string) []common.Conflict {
	if a.remote != nil {
		remote, err := a.remote.AnalyzeConflicts(ctx, ingredients)
		if err == nil {
			return restrictToInput(remote, ingredients)
		}
		common.LogWarn("遠端衝突分析失敗，回退本地衝突表",
			zap.Error(err),
		)
	}
	return analyzeLocal(ingredients)
}

// analyzeLocal 以內建衝突表做不分大小寫的精確匹配，保留輸入順序與原始寫法
func analyzeLocal(ingredients []string) []common.Conflict {
	conflicts := make([]common.Conflict, 0)
	for _, ing := range ingredients {
		if known, ok := localDataset[strings.ToLower(strings.TrimSpace(ing))]; ok {
			conflicts = append(conflicts, common.Conflict{
				Name:        ing,
				Severity:    known.Severity,
				Description: known.Description,
			})
		}
	}
	return conflicts
}

// restrictToInput 過濾遠端結果，確保衝突是輸入成分的子集，名稱採輸入的原始寫法
func restrictToInput(conflicts []common.Conflict, ingredients []string) []common.Conflict {
	byName := make(map[string]string, len(ingredients))
	for _, ing := range ingredients {
		byName[strings.ToLower(strings.TrimSpace(ing))] = ing
	}

	out := make([]common.Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		if surface, ok := byName[strings.ToLower(strings.TrimSpace(c.Name))]; ok {
			c.Name = surface
			out = append(out, c)
		}
	}
	return out
}

// 安全分數的嚴重度扣分權重
var severityPenalty = map[common.Severity]int{
	common.SeverityHigh:   30,
	common.SeverityMedium: 15,
	common.SeverityLow:    5,
}

// SafetyScore 以衝突嚴重度聚合出 0–100 的安全分數，無衝突為滿分
func SafetyScore(conflicts []common.Conflict) int {
	score := 100
	for _, c := range conflicts {
		penalty, ok := severityPenalty[c.Severity]
		if !ok {
			penalty = severityPenalty[common.SeverityMedium]
		}
		score -= penalty
	}
	if score < 0 {
		return 0
	}
	return score
}
