package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewDefaultsLevel(t *testing.T) {
	l, err := New(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer l.Close()
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("default level must enable info")
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("default level must not enable debug")
	}
}

func TestDomainEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	LogQuote(l, "AAPL", 99.9, 100.1, 0.2)
	LogFill(l, "AAPL", 7, 100.0, 5, "BUY")
	LogHalt(l, "stop loss breached", -40, -120)

	quote := logs.FilterMessage("quote").All()
	if len(quote) != 1 || quote[0].Level != zapcore.DebugLevel {
		t.Fatalf("unexpected quote entries: %+v", quote)
	}
	if got := quote[0].ContextMap()["spread"]; got != 0.2 {
		t.Fatalf("expected spread 0.2, got %v", got)
	}

	fill := logs.FilterMessage("fill").All()
	if len(fill) != 1 || fill[0].ContextMap()["order_id"] != int64(7) {
		t.Fatalf("unexpected fill entries: %+v", fill)
	}

	halt := logs.FilterMessage("risk_halt").All()
	if len(halt) != 1 || halt[0].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected halt entries: %+v", halt)
	}
	if got := halt[0].ContextMap()["reason"]; got != "stop loss breached" {
		t.Fatalf("expected halt reason, got %v", got)
	}
}
