package ingredient

import (
	"regexp"
	"strings"
)

// Result 成分解析結果
// MarkerFound 為 false 代表降級模式：整段文字都被當成成分區段，誤判率較高，呼叫端應自行斟酌
type Result struct {
	Ingredients []string `json:"ingredients"`
	MarkerFound bool     `json:"marker_found"`
}

// 成分區段標記，依序嘗試，先命中者優先
var sectionMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ingredients\s*[:：]`),
	regexp.MustCompile(`(?i)inci\s*[:：]`),
	regexp.MustCompile(`(?i)contains\s*[:：]`),
	regexp.MustCompile(`(?i)composition\s*[:：]`),
}

// 分隔符：逗號、分號、斜線、換行
var tokenSplitter = regexp.MustCompile(`[,;/\n]`)

// 括號內的百分比標註，例如 "(75%)"
var percentAnnotation = regexp.MustCompile(`\(\s*\d+(\.\d+)?\s*%\s*\)`)

// 停用詞：連接詞與說明文字常見的指示用語，不可能是成分名稱
var stopWords = map[string]bool{
	"and":          true,
	"or":           true,
	"with":         true,
	"the":          true,
	"may":          true,
	"contain":      true,
	"contains":     true,
	"ingredients":  true,
	"directions":   true,
	"direction":    true,
	"warning":      true,
	"warnings":     true,
	"caution":      true,
	"avoid":        true,
	"discontinue":  true,
	"apply":        true,
	"usage":        true,
	"instructions": true,
	"for external use only": true,
	"keep out of reach":     true,
}

const (
	minTokenLen = 3
	maxTokenLen = 50
)

// Extract 從 OCR 原始文字中抽出乾淨、去重後的成分列表
func Extract(rawText string) Result {
	working := rawText
	markerFound := false

	// 定位成分區段，取標記之後的文字；找不到就退回整段輸入
	for _, marker := range sectionMarkers {
		if loc := marker.FindStringIndex(rawText); loc != nil {
			working = rawText[loc[1]:]
			markerFound = true
			break
		}
	}

	var ingredients []string
	seen := make(map[string]bool)

	for _, token := range tokenSplitter.Split(working, -1) {
		cleaned := cleanToken(token)
		if cleaned == "" {
			continue
		}

		// 不分大小寫去重，保留首次出現的原始寫法
		key := strings.ToLower(cleaned)
		if seen[key] {
			continue
		}
		seen[key] = true
		ingredients = append(ingredients, cleaned)
	}

	return Result{
		Ingredients: ingredients,
		MarkerFound: markerFound,
	}
}

// ExtractIngredients 便利包裝，只回傳成分列表
func ExtractIngredients(rawText string) []string {
	return Extract(rawText).Ingredients
}

// cleanToken 清理單一候選 token，不合格時回傳空字串
func cleanToken(token string) string {
	t := strings.TrimSpace(token)

	// 移除百分比標註
	t = percentAnnotation.ReplaceAllString(t, "")

	// 移除前導項目符號與尾端標點
	t = strings.TrimLeft(t, "•·*-– \t")
	t = strings.TrimRight(t, ".。:：!?*•·-– \t")
	t = strings.TrimSpace(t)

	if len(t) < minTokenLen || len(t) > maxTokenLen {
		return ""
	}
	if stopWords[strings.ToLower(t)] {
		return ""
	}
	return t
}
