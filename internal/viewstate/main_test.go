package viewstate

import (
	"log/slog"
	"testing"

	"go.uber.org/goleak"

	"github.com/hitoshi/socialdemo/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func degradedErr(op string, kind model.ErrorKind) error {
	return &model.GatewayError{Op: op, Kind: kind, Degraded: true}
}
