package pnl

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Trade 不可变成交记录。Side 为 +1（买）/ -1（卖）。
type Trade struct {
	Timestamp time.Time
	Price     float64
	Quantity  float64
	Side      float64
	Value     float64 // price * quantity
	ID        int64
}

// Snapshot 某一时刻的 PnL 快照，随每次重算追加。
type Snapshot struct {
	Timestamp     time.Time
	Realized      float64
	Unrealized    float64
	Total         float64
	Position      float64
	MarkPrice     float64
	DailyPnL      float64
	CumulativePnL float64
}

// Tracker 维护成交流水、加权平均成本仓位与盈亏统计。
// 只有成交回报与标记价更新两条驱动路径；成交、快照、
// 收益率三条历史各自按 maxHistory 截断（先进先出）。
type Tracker struct {
	mu sync.Mutex

	trades    []Trade
	snapshots []Snapshot
	returns   []float64
	tradeSeq  int64

	position float64
	avgCost  float64
	mark     float64

	dailyPnL  float64
	dailyHigh float64
	dailyLow  float64

	peak        float64
	maxDrawdown float64

	maxHistory int
	trackDaily bool

	// 热点 PnL 标量，status 轮询无需抢锁
	realizedBits   atomic.Uint64
	unrealizedBits atomic.Uint64
	totalBits      atomic.Uint64
}

// NewTracker 创建盈亏追踪器。historySize 为各历史序列的保留上限。
func NewTracker(historySize int, trackDaily bool) *Tracker {
	if historySize <= 0 {
		historySize = 10000
	}
	return &Tracker{
		maxHistory: historySize,
		trackDaily: trackDaily,
	}
}

// RecordTrade 记录一笔成交：追加流水、累计加权平均成本仓位、
// 重算盈亏并生成快照。quantity 非正时整笔忽略。
// 注意：仓位按数量无条件累加，卖出不通过此路径减仓（保留源实现行为）。
func (t *Tracker) RecordTrade(price, quantity, side float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if quantity <= 0 {
		return
	}

	t.tradeSeq++
	t.trades = append(t.trades, Trade{
		Timestamp: time.Now(),
		Price:     price,
		Quantity:  quantity,
		Side:      side,
		Value:     price * quantity,
		ID:        t.tradeSeq,
	})

	t.updatePositionLocked(quantity, price)
	t.updatePnLLocked()
	if t.trackDaily {
		t.updateDailyLocked()
	}
	t.trimLocked()
}

// UpdateMarkPrice 更新标记价并重算未实现盈亏。
func (t *Tracker) UpdateMarkPrice(price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mark = price
	t.updatePnLLocked()
	if t.trackDaily {
		t.updateDailyLocked()
	}
	t.trimLocked()
}

// updatePositionLocked 加权平均成本累加。
func (t *Tracker) updatePositionLocked(quantity, price float64) {
	if t.position == 0 {
		t.position = quantity
		t.avgCost = price
		return
	}
	totalValue := t.position*t.avgCost + quantity*price
	t.position += quantity
	t.avgCost = totalValue / t.position
}

// updatePnLLocked 重算未实现/总盈亏、回撤，追加快照与收益率。
func (t *Tracker) updatePnLLocked() {
	var unrealized float64
	if t.position != 0 && t.mark != 0 {
		unrealized = (t.mark - t.avgCost) * t.position
	}
	realized := math.Float64frombits(t.realizedBits.Load())
	total := realized + unrealized

	t.unrealizedBits.Store(math.Float64bits(unrealized))
	t.totalBits.Store(math.Float64bits(total))

	// 峰值回撤只增不减
	if total > t.peak {
		t.peak = total
	}
	if dd := t.peak - total; dd > t.maxDrawdown {
		t.maxDrawdown = dd
	}

	// 收益率：相对上一快照的总盈亏变化
	if len(t.snapshots) > 0 {
		prev := t.snapshots[len(t.snapshots)-1].Total
		t.returns = append(t.returns, calcReturn(total, prev))
	}

	t.snapshots = append(t.snapshots, Snapshot{
		Timestamp:     time.Now(),
		Realized:      realized,
		Unrealized:    unrealized,
		Total:         total,
		Position:      t.position,
		MarkPrice:     t.mark,
		DailyPnL:      t.dailyPnL,
		CumulativePnL: total,
	})
}

func (t *Tracker) updateDailyLocked() {
	total := math.Float64frombits(t.totalBits.Load())
	if total > t.dailyHigh {
		t.dailyHigh = total
	}
	if total < t.dailyLow || t.dailyLow == 0 {
		t.dailyLow = total
	}
	t.dailyPnL = total
}

func calcReturn(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / math.Abs(previous)
}

func (t *Tracker) trimLocked() {
	if n := len(t.trades) - t.maxHistory; n > 0 {
		t.trades = t.trades[n:]
	}
	if n := len(t.snapshots) - t.maxHistory; n > 0 {
		t.snapshots = t.snapshots[n:]
	}
	if n := len(t.returns) - t.maxHistory; n > 0 {
		t.returns = t.returns[n:]
	}
}

// Position 当前净仓位。
func (t *Tracker) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// AverageCost 当前加权平均成本。
func (t *Tracker) AverageCost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.avgCost
}

// MarkPrice 当前标记价。
func (t *Tracker) MarkPrice() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mark
}

// RealizedPnL 已实现盈亏（无锁读取）。
func (t *Tracker) RealizedPnL() float64 {
	return math.Float64frombits(t.realizedBits.Load())
}

// UnrealizedPnL 未实现盈亏（无锁读取）。
func (t *Tracker) UnrealizedPnL() float64 {
	return math.Float64frombits(t.unrealizedBits.Load())
}

// TotalPnL 总盈亏（无锁读取）。
func (t *Tracker) TotalPnL() float64 {
	return math.Float64frombits(t.totalBits.Load())
}

// MaxDrawdown 峰值到谷底的最大回撤，运行期间单调不减。
func (t *Tracker) MaxDrawdown() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxDrawdown
}

// DailyPnL 当日盈亏。
func (t *Tracker) DailyPnL() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dailyPnL
}

// DailyHigh 当日盈亏最高点。
func (t *Tracker) DailyHigh() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dailyHigh
}

// DailyLow 当日盈亏最低点。
func (t *Tracker) DailyLow() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dailyLow
}

// ResetDailyMetrics 重置当日统计。
func (t *Tracker) ResetDailyMetrics() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dailyPnL, t.dailyHigh, t.dailyLow = 0, 0, 0
}

// Volatility 最近 lookback 个收益率的总体标准差；样本不足返回 0。
func (t *Tracker) Volatility(lookback int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lookback <= 0 || len(t.returns) < lookback {
		return 0
	}
	return stdev(t.returns[len(t.returns)-lookback:])
}

// SharpeRatio 最近 lookback 个收益率的均值/标准差，无风险利率取 0；
// 样本不足或波动率为 0 时返回 0。
func (t *Tracker) SharpeRatio(lookback int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lookback <= 0 || len(t.returns) < lookback {
		return 0
	}
	recent := t.returns[len(t.returns)-lookback:]
	vol := stdev(recent)
	if vol == 0 {
		return 0
	}
	return mean(recent) / vol
}

// WinRate 盈利成交占比。每笔历史成交都按“当前”平均成本重估，
// 是近似指标而非逐笔归因（保留源实现行为）。
func (t *Tracker) WinRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.trades) == 0 {
		return 0
	}
	wins := 0
	for _, tr := range t.trades {
		if tr.Side*(tr.Price-t.avgCost) > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(t.trades))
}

// ProfitFactor 毛利/毛损，同样按当前平均成本重估每笔成交。
// 无亏损且有盈利时返回 +Inf 语义上限。
func (t *Tracker) ProfitFactor() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.trades) == 0 {
		return 0
	}
	var grossProfit, grossLoss float64
	for _, tr := range t.trades {
		pnl := tr.Side * (tr.Price - t.avgCost) * tr.Quantity
		if pnl > 0 {
			grossProfit += pnl
		} else {
			grossLoss += math.Abs(pnl)
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.MaxFloat64
		}
		return 0
	}
	return grossProfit / grossLoss
}

// Trades 成交历史快照（拷贝）。
func (t *Tracker) Trades() []Trade {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Trade, len(t.trades))
	copy(out, t.trades)
	return out
}

// Snapshots PnL 快照历史（拷贝）。
func (t *Tracker) Snapshots() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Snapshot, len(t.snapshots))
	copy(out, t.snapshots)
	return out
}

// Returns 收益率序列（拷贝）。
func (t *Tracker) Returns() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.returns))
	copy(out, t.returns)
	return out
}

// TradeCount 成交笔数。
func (t *Tracker) TradeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.trades)
}

// IsEmpty 是否尚无成交。
func (t *Tracker) IsEmpty() bool {
	return t.TradeCount() == 0
}

// SetMaxHistorySize 调整历史保留上限并立即截断。
func (t *Tracker) SetMaxHistorySize(size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if size > 0 {
		t.maxHistory = size
		t.trimLocked()
	}
}

// Clear 清空全部状态。
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.trades = nil
	t.snapshots = nil
	t.returns = nil
	t.tradeSeq = 0
	t.position, t.avgCost, t.mark = 0, 0, 0
	t.dailyPnL, t.dailyHigh, t.dailyLow = 0, 0, 0
	t.peak, t.maxDrawdown = 0, 0
	t.realizedBits.Store(0)
	t.unrealizedBits.Store(0)
	t.totalBits.Store(0)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev 总体标准差。
func stdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var variance float64
	for _, x := range xs {
		diff := x - m
		variance += diff * diff
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}
