package conflict

import (
	"context"
	"errors"
	"testing"

	"skincare-scanner/internal/pkg/common"
)

// failingAnalyzer 一律失敗的遠端分析
type failingAnalyzer struct{}

func (failingAnalyzer) AnalyzeConflicts(context.Context, []string) ([]common.Conflict, error) {
	return nil, errors.New("remote unreachable")
}

// stubAnalyzer 回傳固定結果的遠端分析
type stubAnalyzer struct {
	conflicts []common.Conflict
}

func (s stubAnalyzer) AnalyzeConflicts(context.Context, []string) ([]common.Conflict, error) {
	return s.conflicts, nil
}

func TestAnalyzeLocalFallback(t *testing.T) {
	a := NewAnalyzer(failingAnalyzer{}, nil)

	conflicts, err := a.Analyze(context.Background(), []string{"Water", "Retinol"})
	if err != nil {
		t.Fatalf("expected silent fallback, got error: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].Name != "Retinol" {
		t.Fatalf("conflicts = %v, want only Retinol", conflicts)
	}
	if conflicts[0].Severity != common.SeverityHigh {
		t.Errorf("severity = %v, want high", conflicts[0].Severity)
	}
}

func TestAnalyzeCaseInsensitiveExactMatch(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	ctx := context.Background()

	conflicts, err := a.Analyze(ctx, []string{"RETINOL", "salicylic acid"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(conflicts) != 2 {
		t.Fatalf("conflicts = %v, want 2 entries", conflicts)
	}
	// 保留輸入的原始寫法
	if conflicts[0].Name != "RETINOL" {
		t.Errorf("name = %q, want input surface form", conflicts[0].Name)
	}

	// 不做部分比對
	conflicts, err = a.Analyze(ctx, []string{"Retinol Palmitate Extract Blend"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("conflicts = %v, want none for partial match", conflicts)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewAnalyzer(failingAnalyzer{}, nil)

	conflicts, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty input should not error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("conflicts = %v, want empty", conflicts)
	}
}

func TestAnalyzeRemoteResultRestrictedToInput(t *testing.T) {
	// 遠端回報了輸入中不存在的成分，必須被過濾掉
	remote := stubAnalyzer{conflicts: []common.Conflict{
		{Name: "retinol", Severity: common.SeverityHigh},
		{Name: "Hydroquinone", Severity: common.SeverityHigh},
	}}
	a := NewAnalyzer(remote, nil)

	conflicts, err := a.Analyze(context.Background(), []string{"Water", "Retinol"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].Name != "Retinol" {
		t.Errorf("conflicts = %v, want only Retinol with input surface form", conflicts)
	}
}

func TestSafetyScore(t *testing.T) {
	cases := []struct {
		name      string
		conflicts []common.Conflict
		want      int
	}{
		{"無衝突", nil, 100},
		{"一個高風險", []common.Conflict{{Severity: common.SeverityHigh}}, 70},
		{"混合", []common.Conflict{
			{Severity: common.SeverityHigh},
			{Severity: common.SeverityMedium},
			{Severity: common.SeverityLow},
		}, 50},
		{"下限為零", []common.Conflict{
			{Severity: common.SeverityHigh},
			{Severity: common.SeverityHigh},
			{Severity: common.SeverityHigh},
			{Severity: common.SeverityHigh},
		}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SafetyScore(tc.conflicts); got != tc.want {
				t.Errorf("SafetyScore = %d, want %d", got, tc.want)
			}
		})
	}
}
