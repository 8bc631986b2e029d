package recognition

import (
	"sync"

	"skincare-scanner/internal/pkg/common"
)

// Phase 會話階段
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// OutcomeKind 辨識結果類型
type OutcomeKind string

const (
	OutcomeBarcodeMatch OutcomeKind = "barcode_match" // 條碼路徑命中
	OutcomeOcrMatch     OutcomeKind = "ocr_match"     // OCR 路徑命中
)

// Outcome 帶類型標記的辨識結果：成功時必有掃描紀錄，不存在「成功但無結果」的狀態
type Outcome struct {
	Kind OutcomeKind        `json:"kind"`
	Scan *common.ScanRecord `json:"scan"`
}

// State 會話狀態快照：每次轉移整包替換，絕不逐欄位修補，避免殘留上一輪的結果
type State struct {
	Phase      Phase    `json:"phase"`
	Outcome    *Outcome `json:"outcome,omitempty"`
	ErrCode    string   `json:"error_code,omitempty"`
	ErrMessage string   `json:"error_message,omitempty"`
	LastAction string   `json:"last_action,omitempty"`
}

// Session 單一辨識會話的狀態機
// Initial → Loading → Success | Error；Error 可經 retry 回到 Loading，
// Success 也可直接被新的辨識呼叫帶回 Loading，沒有終止狀態
type Session struct {
	mu         sync.Mutex
	state      State
	lastInput  string
	generation int64 // 每次開始或清除遞增，舊世代的結果不得落地
}

// NewSession 創建新的辨識會話
func NewSession() *Session {
	return &Session{
		state: State{Phase: PhaseInitial},
	}
}

// State 取得目前狀態快照，觀察者輪詢用，不觸發任何工作
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// begin 嘗試進入 Loading：已在載入中時回傳 false（入口守衛，忽略重入呼叫）
func (s *Session) begin(action, input string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase == PhaseLoading {
		return 0, false
	}

	s.generation++
	s.lastInput = input
	s.state = State{
		Phase:      PhaseLoading,
		LastAction: action,
	}
	return s.generation, true
}

// complete 以成功結果結束本輪；世代不符代表會話已被清除或重啟，結果靜默丟棄
func (s *Session) complete(generation int64, outcome *Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.state.Phase != PhaseLoading {
		return false
	}
	s.state = State{
		Phase:      PhaseSuccess,
		Outcome:    outcome,
		LastAction: s.state.LastAction,
	}
	return true
}

// fail 以錯誤結束本輪；同樣受世代守衛保護
func (s *Session) fail(generation int64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.state.Phase != PhaseLoading {
		return false
	}
	s.state = State{
		Phase:      PhaseError,
		ErrCode:    common.ErrorCode(err),
		ErrMessage: err.Error(),
		LastAction: s.state.LastAction,
	}
	return true
}

// lastAttempt 取出最後一次嘗試的動作與輸入，供 retry 使用
func (s *Session) lastAttempt() (action, input string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.LastAction == "" {
		return "", "", false
	}
	return s.state.LastAction, s.lastInput, true
}

// Clear 重置會話回初始狀態，進行中的嘗試結果將被丟棄
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.lastInput = ""
	s.state = State{Phase: PhaseInitial}
}
