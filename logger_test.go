package onceflight

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Light smoke tests ensuring exported logger APIs do not panic and the zap
// adapter forwards levels and context pairs.

func TestSimpleLoggerLevels(t *testing.T) {
	logger := NewSimpleLogger()

	logger.Debug("debug message")
	logger.Info("info message", "key", "k")
	logger.Warn("warn message", "attempt", 1)
	logger.Error("error message", "error", "boom")
}

func TestZapLoggerForwarding(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Info("scheduling retry", "key", "k", "attempt", 2)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Logged %d entries, want 1", len(entries))
	}
	if entries[0].Message != "scheduling retry" {
		t.Errorf("Message = %q", entries[0].Message)
	}
	ctx := entries[0].ContextMap()
	if ctx["key"] != "k" {
		t.Errorf("Context key = %v, want k", ctx["key"])
	}
	if ctx["attempt"] != int64(2) {
		t.Errorf("Context attempt = %v, want 2", ctx["attempt"])
	}
}

func TestNilLoggerExecutorIsSilent(t *testing.T) {
	e := New()
	if e.logger != nil {
		t.Error("Executor should default to no logger")
	}
}
