package market

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
)

// MinPrice GBM 价格下限，防止出现非正价格。
const MinPrice = 0.01

// GeneratorConfig 价格生成器配置
type GeneratorConfig struct {
	InitialPrice  float64 // 初始价格
	Drift         float64 // 年化漂移率
	Volatility    float64 // 年化波动率
	TimeStep      float64 // 每个 tick 对应的年化时间步长
	HistoryWindow int     // 价格历史窗口大小
	Seed          int64   // 随机种子，0 表示不固定
}

// DefaultGeneratorConfig 返回默认配置
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		InitialPrice:  100.0,
		Drift:         0.05,
		Volatility:    0.20,
		TimeStep:      1.0 / 252.0, // 日线步长
		HistoryWindow: 100,
	}
}

// Generator 用几何布朗运动合成参考价格序列，并维护有界价格历史
// 与运行统计。随机源显式持有且可重置种子，保证测试可复现。
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	initial  float64
	current  float64
	drift    float64
	vol      float64
	timeStep float64
	history  []float64
	window   int

	// 热点统计，status 轮询无需抢锁
	ticks   atomic.Int64
	minBits atomic.Uint64
	maxBits atomic.Uint64
}

// NewGenerator 创建价格生成器。
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.InitialPrice <= 0 {
		cfg.InitialPrice = 100.0
	}
	if cfg.TimeStep <= 0 {
		cfg.TimeStep = 1.0 / 252.0
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 100
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	g := &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		initial:  cfg.InitialPrice,
		current:  cfg.InitialPrice,
		drift:    cfg.Drift,
		vol:      cfg.Volatility,
		timeStep: cfg.TimeStep,
		window:   cfg.HistoryWindow,
		history:  []float64{cfg.InitialPrice},
	}
	g.minBits.Store(math.Float64bits(math.MaxFloat64))
	g.maxBits.Store(math.Float64bits(-math.MaxFloat64))
	return g
}

// GBMPrice 按几何布朗运动公式推进一步：
// S(t+dt) = S(t) * exp((μ - 0.5σ²)·dt + σ·√dt·Z)，结果不低于 MinPrice。
func GBMPrice(current, drift, vol, timeStep, shock float64) float64 {
	driftTerm := (drift - 0.5*vol*vol) * timeStep
	volTerm := vol * math.Sqrt(timeStep) * shock
	return math.Max(current*math.Exp(driftTerm+volTerm), MinPrice)
}

// GenerateNextPrice 生成下一个参考价并更新历史与统计。
func (g *Generator) GenerateNextPrice() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	shock := g.rng.NormFloat64()
	price := GBMPrice(g.current, g.drift, g.vol, g.timeStep, shock)

	g.current = price
	g.updateStats(price)
	g.appendHistory(price)
	g.ticks.Add(1)
	return price
}

// CurrentPrice 当前参考价。
func (g *Generator) CurrentPrice() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// RealizedVolatility 基于最近 lookback 段对数收益率的样本标准差，
// 按 1/√Δt 年化。历史不足 lookback+1 个点时返回 0。
// 这是回溯估计量，供策略动态价差使用，并非生成参数本身。
func (g *Generator) RealizedVolatility(lookback int) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if lookback <= 0 || len(g.history) < lookback+1 {
		return 0
	}

	returns := make([]float64, 0, lookback)
	for i := 1; i <= lookback; i++ {
		current := g.history[len(g.history)-i]
		previous := g.history[len(g.history)-i-1]
		if previous > 0 {
			returns = append(returns, math.Log(current/previous))
		}
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) / math.Sqrt(g.timeStep)
}

// UpdateDrift 更新漂移率，下一次生成即生效。
func (g *Generator) UpdateDrift(drift float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drift = drift
}

// UpdateVolatility 更新波动率，下一次生成即生效。
func (g *Generator) UpdateVolatility(vol float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vol = vol
}

// UpdateTimeStep 更新时间步长，下一次生成即生效。
func (g *Generator) UpdateTimeStep(timeStep float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeStep = timeStep
}

// Reset 重置到新的初始价并清空历史与统计。
func (g *Generator) Reset(initialPrice float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.initial = initialPrice
	g.current = initialPrice
	g.history = []float64{initialPrice}
	g.ticks.Store(0)
	g.minBits.Store(math.Float64bits(math.MaxFloat64))
	g.maxBits.Store(math.Float64bits(-math.MaxFloat64))
}

// SetSeed 以确定性方式重置随机源。
func (g *Generator) SetSeed(seed int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng = rand.New(rand.NewSource(seed))
}

// History 返回价格历史快照（拷贝）。
func (g *Generator) History() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]float64, len(g.history))
	copy(out, g.history)
	return out
}

// Ticks 已生成的 tick 数。
func (g *Generator) Ticks() int64 { return g.ticks.Load() }

// Min 历史最低价；尚未生成价格时返回 0。
func (g *Generator) Min() float64 {
	v := math.Float64frombits(g.minBits.Load())
	if v == math.MaxFloat64 {
		return 0
	}
	return v
}

// Max 历史最高价；尚未生成价格时返回 0。
func (g *Generator) Max() float64 {
	v := math.Float64frombits(g.maxBits.Load())
	if v == -math.MaxFloat64 {
		return 0
	}
	return v
}

func (g *Generator) updateStats(price float64) {
	if price < math.Float64frombits(g.minBits.Load()) {
		g.minBits.Store(math.Float64bits(price))
	}
	if price > math.Float64frombits(g.maxBits.Load()) {
		g.maxBits.Store(math.Float64bits(price))
	}
}

func (g *Generator) appendHistory(price float64) {
	g.history = append(g.history, price)
	if len(g.history) > g.window {
		g.history = g.history[1:]
	}
}
