package market

import (
	"math"
	"testing"
)

func TestGBMPriceFloor(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		drift float64
		vol   float64
		shock float64
	}{
		{"huge negative shock", 100, 0.05, 0.2, -50},
		{"tiny price negative shock", 0.02, -1.0, 3.0, -10},
		{"already at floor", MinPrice, -5.0, 1.0, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GBMPrice(tt.price, tt.drift, tt.vol, 1.0/252.0, tt.shock)
			if got < MinPrice {
				t.Errorf("price %f below floor", got)
			}
		})
	}
}

func TestGBMDeterministicWithoutDriftAndVol(t *testing.T) {
	// drift=0, vol=0 时漂移项和波动项均消失，价格保持不变
	for _, shock := range []float64{-3, -1, 0, 1, 3} {
		got := GBMPrice(100, 0, 0, 1.0/252.0, shock)
		if got != 100 {
			t.Fatalf("expected 100 got %f for shock %f", got, shock)
		}
	}
}

func TestGenerateNextPriceReproducible(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Seed = 42
	g1 := NewGenerator(cfg)
	g2 := NewGenerator(cfg)

	for i := 0; i < 100; i++ {
		p1 := g1.GenerateNextPrice()
		p2 := g2.GenerateNextPrice()
		if p1 != p2 {
			t.Fatalf("same seed must produce same path, diverged at tick %d: %f vs %f", i, p1, p2)
		}
		if p1 < MinPrice {
			t.Fatalf("price %f below floor", p1)
		}
	}
	if g1.Ticks() != 100 {
		t.Fatalf("expected 100 ticks got %d", g1.Ticks())
	}
}

func TestSetSeedResetsPath(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Seed = 7
	g := NewGenerator(cfg)
	first := g.GenerateNextPrice()

	g.Reset(cfg.InitialPrice)
	g.SetSeed(7)
	second := g.GenerateNextPrice()
	if first != second {
		t.Fatalf("reseeded generator should replay the path: %f vs %f", first, second)
	}
}

func TestRealizedVolatility(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Seed = 1
	g := NewGenerator(cfg)

	// 历史不足时返回 0
	if vol := g.RealizedVolatility(20); vol != 0 {
		t.Fatalf("expected 0 vol with short history, got %f", vol)
	}

	for i := 0; i < 50; i++ {
		g.GenerateNextPrice()
	}
	vol := g.RealizedVolatility(20)
	if vol <= 0 {
		t.Fatalf("expected positive realized vol, got %f", vol)
	}
	// 年化后的量级应与生成参数同阶
	if vol > 2.0 {
		t.Fatalf("realized vol %f implausibly large", vol)
	}
}

func TestRealizedVolatilityZeroWhenFlat(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Drift = 0
	cfg.Volatility = 0
	cfg.Seed = 3
	g := NewGenerator(cfg)
	for i := 0; i < 30; i++ {
		g.GenerateNextPrice()
	}
	if vol := g.RealizedVolatility(10); vol != 0 {
		t.Fatalf("flat path should have zero realized vol, got %f", vol)
	}
}

func TestHistoryBounded(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.HistoryWindow = 10
	cfg.Seed = 5
	g := NewGenerator(cfg)

	for i := 0; i < 50; i++ {
		g.GenerateNextPrice()
	}
	if n := len(g.History()); n != 10 {
		t.Fatalf("expected history capped at 10 got %d", n)
	}
}

func TestMinMaxTracking(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Seed = 11
	g := NewGenerator(cfg)

	if g.Min() != 0 || g.Max() != 0 {
		t.Fatal("min/max should be 0 before any tick")
	}
	for i := 0; i < 100; i++ {
		g.GenerateNextPrice()
	}
	if g.Min() <= 0 || g.Max() < g.Min() {
		t.Fatalf("inconsistent min/max %f/%f", g.Min(), g.Max())
	}
	for _, p := range g.History() {
		if p < g.Min()-1e-9 || p > g.Max()+1e-9 {
			t.Fatalf("history point %f outside [%f,%f]", p, g.Min(), g.Max())
		}
	}
}

func TestParameterUpdates(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Seed = 9
	g := NewGenerator(cfg)

	g.UpdateDrift(0)
	g.UpdateVolatility(0)
	before := g.CurrentPrice()
	after := g.GenerateNextPrice()
	if math.Abs(after-before) > 1e-12 {
		t.Fatalf("zero drift/vol should freeze the price: %f -> %f", before, after)
	}
}
