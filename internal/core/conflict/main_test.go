package conflict

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"skincare-scanner/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	os.Exit(m.Run())
}
