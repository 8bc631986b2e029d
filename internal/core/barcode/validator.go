package barcode

// Format 條碼格式
type Format string

const (
	FormatEAN8    Format = "EAN-8"
	FormatUPCA    Format = "UPC-A"
	FormatEAN13   Format = "EAN-13"
	FormatISBN13  Format = "ISBN-13"
	FormatEAN14   Format = "EAN-14"
	FormatUnknown Format = "unknown"
)

// 允許的條碼長度
var validLengths = map[int]bool{
	8:  true,
	12: true,
	13: true,
	14: true,
}

// Validate 驗證條碼：長度須為 8/12/13/14 的純數字字串，且通過標準 1/3 交替加權校驗
// 任何非數字字元、錯誤長度或校驗失敗一律回傳 false，不拋錯
func Validate(raw string) bool {
	if !validLengths[len(raw)] {
		return false
	}

	digits := make([]int, len(raw))
	for i, c := range raw {
		if c < '0' || c > '9' {
			return false
		}
		digits[i] = int(c - '0')
	}

	payload := digits[:len(digits)-1]
	check := digits[len(digits)-1]

	return checksum(payload) == check
}

// checksum 計算校驗碼：權重 1/3 交替，與同位（從右數第二位起權重 3）
func checksum(payload []int) int {
	sum := 0
	for i, d := range payload {
		if i%2 != len(payload)%2 {
			sum += d * 3
		} else {
			sum += d
		}
	}
	return (10 - sum%10) % 10
}

// DetectFormat 判斷條碼格式，僅供日誌與顯示用，不做校驗
func DetectFormat(raw string) Format {
	switch len(raw) {
	case 8:
		return FormatEAN8
	case 12:
		return FormatUPCA
	case 13:
		if raw[:3] == "978" || raw[:3] == "979" {
			return FormatISBN13
		}
		return FormatEAN13
	case 14:
		return FormatEAN14
	}
	return FormatUnknown
}
