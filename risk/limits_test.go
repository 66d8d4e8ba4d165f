package risk

import (
	"errors"
	"math"
	"testing"
)

func TestGuards(t *testing.T) {
	tests := []struct {
		name    string
		guard   Guard
		snap    Snapshot
		wantErr error
	}{
		{"stop loss ok", StopLossGuard{Threshold: -500}, Snapshot{TotalPnL: -100}, nil},
		{"stop loss trips", StopLossGuard{Threshold: -500}, Snapshot{TotalPnL: -600}, ErrStopLoss},
		{"max loss ok", MaxLossGuard{Limit: -1000}, Snapshot{TotalPnL: -999}, nil},
		{"max loss trips", MaxLossGuard{Limit: -1000}, Snapshot{TotalPnL: -1001}, ErrMaxLoss},
		{"position ok", PositionGuard{MaxSize: 100}, Snapshot{Position: 100}, nil},
		{"position long trips", PositionGuard{MaxSize: 100}, Snapshot{Position: 101}, ErrPositionLimit},
		{"position short trips", PositionGuard{MaxSize: 100}, Snapshot{Position: -150}, ErrPositionLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guard.Check(tt.snap)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMultiGuardOrder(t *testing.T) {
	// 检查顺序：止损 -> 最大亏损 -> 仓位，首个命中生效
	m := MultiGuard{Guards: []Guard{
		StopLossGuard{Threshold: -100},
		MaxLossGuard{Limit: -200},
		PositionGuard{MaxSize: 50},
	}}

	err := m.Check(Snapshot{Position: 500, TotalPnL: -300})
	if !errors.Is(err, ErrStopLoss) {
		t.Fatalf("expected stop loss first, got %v", err)
	}

	err = m.Check(Snapshot{Position: 500, TotalPnL: 0})
	if !errors.Is(err, ErrPositionLimit) {
		t.Fatalf("expected position limit, got %v", err)
	}

	if err := m.Check(Snapshot{Position: 10, TotalPnL: 0}); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
}

func TestMultiGuardSkipsNil(t *testing.T) {
	m := MultiGuard{Guards: []Guard{nil, PositionGuard{MaxSize: 10}}}
	if err := m.Check(Snapshot{Position: 5}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestValueAtRisk(t *testing.T) {
	if got := ValueAtRisk(0.95, 0.2, 10000); math.Abs(got-1.645*0.2*10000) > 1e-9 {
		t.Fatalf("unexpected 95%% VaR %f", got)
	}
	if got := ValueAtRisk(0.99, 0.2, 10000); math.Abs(got-2.326*0.2*10000) > 1e-9 {
		t.Fatalf("unexpected 99%% VaR %f", got)
	}
	// 其它置信度回落到 95%
	if ValueAtRisk(0.5, 0.2, 10000) != ValueAtRisk(0.95, 0.2, 10000) {
		t.Fatal("unknown confidence should fall back to 95%")
	}
}

func TestPositionRisk(t *testing.T) {
	if got := PositionRisk(5000, 10000); got != 0.5 {
		t.Fatalf("expected 0.5 got %f", got)
	}
	if got := PositionRisk(5000, 0); got != 0 {
		t.Fatalf("expected 0 with zero max, got %f", got)
	}
}
