package maker

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"hft-sim-go/book"
	"hft-sim-go/infrastructure/logger"
	"hft-sim-go/market"
	"hft-sim-go/order"
	"hft-sim-go/risk"
)

// State 做市引擎状态。HALTED 为终态，只有显式 Reset 才能恢复。
type State int32

const (
	StateRunning State = iota
	StateHalted
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// Outcome 单次 Step 的结果，供驱动层决定是否继续。
type Outcome int

const (
	StepOK Outcome = iota
	StepHalted
	StepFault
)

func (o Outcome) String() string {
	switch o {
	case StepOK:
		return "OK"
	case StepHalted:
		return "HALTED"
	case StepFault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// Config 策略与风控配置，运行期整体替换。
type Config struct {
	BaseSpreadBPS        float64 `yaml:"baseSpreadBps"`        // 基础价差（bp）
	MinSpreadBPS         float64 `yaml:"minSpreadBps"`         // 最小价差（bp）
	MaxSpreadBPS         float64 `yaml:"maxSpreadBps"`         // 最大价差（bp）
	VolatilityMultiplier float64 `yaml:"volatilityMultiplier"` // 波动率乘数
	MaxPositionSize      float64 `yaml:"maxPositionSize"`      // 仓位硬上限
	PositionLimit        float64 `yaml:"positionLimit"`        // 降敞口软阈值
	OrderSize            float64 `yaml:"orderSize"`            // 单笔报单数量
	DynamicSpread        bool    `yaml:"dynamicSpread"`        // 是否启用动态价差
	RiskManagement       bool    `yaml:"riskManagement"`       // 是否启用风控
	MaxLossLimit         float64 `yaml:"maxLossLimit"`         // 最大亏损限额（负数）
	StopLossThreshold    float64 `yaml:"stopLossThreshold"`    // 止损阈值（负数）
	VolLookback          int     `yaml:"volLookback"`          // 实际波动率回看窗口
	TradeLogSize         int     `yaml:"tradeLogSize"`         // 近期成交日志上限
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseSpreadBPS:        10,
		MinSpreadBPS:         1,
		MaxSpreadBPS:         100,
		VolatilityMultiplier: 2.0,
		MaxPositionSize:      1000,
		PositionLimit:        500,
		OrderSize:            100,
		DynamicSpread:        true,
		RiskManagement:       true,
		MaxLossLimit:         -10000,
		StopLossThreshold:    -5000,
		VolLookback:          20,
		TradeLogSize:         1000,
	}
}

// PnLSource 提供权威总盈亏；通常由 pnl.Tracker 实现。
// 未注入时风控退回使用引擎自身的盈亏视图。
type PnLSource interface {
	TotalPnL() float64
}

// TradeRecord 引擎侧近期成交记录。
type TradeRecord struct {
	Price    float64
	Quantity float64
	At       time.Time
}

// MarketMaker 做市策略与风控引擎。每个 tick 由驱动层调用 Step：
// 先查风控，再撤旧报价、按动态价差双边挂单，最后更新自身盈亏视图。
// 任一风控命中或 Step 内部出现意外故障都会触发不可逆的紧急停机。
type MarketMaker struct {
	mu  sync.Mutex
	cfg Config

	book *book.Book
	gen  *market.Generator
	pnl  PnLSource
	log  *zap.Logger

	position  float64
	inventory float64 // 名义金额累计

	activeBuys   []int64
	activeSells  []int64
	recentTrades []TradeRecord

	startTime time.Time

	// 热点标量，status 轮询无需抢锁
	state          atomic.Int32
	ordersPlaced   atomic.Int64
	ordersCanceled atomic.Int64
	tradesExecuted atomic.Int64
	realizedBits   atomic.Uint64
	unrealizedBits atomic.Uint64
	totalBits      atomic.Uint64
}

// New 创建做市引擎。logger 可为 nil。
func New(b *book.Book, g *market.Generator, cfg Config, logger *zap.Logger) *MarketMaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TradeLogSize <= 0 {
		cfg.TradeLogSize = 1000
	}
	if cfg.VolLookback <= 0 {
		cfg.VolLookback = 20
	}
	return &MarketMaker{
		cfg:       cfg,
		book:      b,
		gen:       g,
		log:       logger,
		startTime: time.Now(),
	}
}

// SetPnLSource 注入权威盈亏来源（通常为 pnl.Tracker）。
func (m *MarketMaker) SetPnLSource(src PnLSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pnl = src
}

// Step 执行一个做市周期。风控命中返回 StepHalted；
// 周期内任何 panic 被捕获并按风控事件处理，返回 StepFault。
func (m *MarketMaker) Step() (outcome Outcome) {
	if m.State() == StateHalted {
		return StepHalted
	}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("market making step failed", zap.Any("panic", r))
			m.EmergencyShutdown()
			// 故障路径不再回访外部盈亏来源，用自身视图
			logger.LogHalt(m.log, "step fault", m.Position(), m.TotalPnL())
			outcome = StepFault
		}
	}()

	cfg := m.configSnapshot()

	if cfg.RiskManagement {
		if err := m.checkRiskLimits(cfg); err != nil {
			logger.LogHalt(m.log, err.Error(), m.Position(), m.riskPnL())
			m.EmergencyShutdown()
			return StepHalted
		}
	}

	m.placeOrders(cfg)
	m.manageInventory(cfg)
	m.updateOwnPnL()
	return StepOK
}

// checkRiskLimits 按固定顺序检查：止损 -> 最大亏损 -> 仓位硬上限。
func (m *MarketMaker) checkRiskLimits(cfg Config) error {
	guards := risk.MultiGuard{Guards: []risk.Guard{
		risk.StopLossGuard{Threshold: cfg.StopLossThreshold},
		risk.MaxLossGuard{Limit: cfg.MaxLossLimit},
		risk.PositionGuard{MaxSize: cfg.MaxPositionSize},
	}}
	return guards.Check(risk.Snapshot{
		Position: m.Position(),
		TotalPnL: m.riskPnL(),
	})
}

// riskPnL 风控使用的总盈亏：优先取注入的权威来源。
func (m *MarketMaker) riskPnL() float64 {
	m.mu.Lock()
	src := m.pnl
	m.mu.Unlock()
	if src != nil {
		return src.TotalPnL()
	}
	return m.TotalPnL()
}

// placeOrders 撤销上一轮报价并按当前行情重新双边挂单。
// 仓位超过软阈值时两侧停止报价以降敞口。
func (m *MarketMaker) placeOrders(cfg Config) {
	m.CancelAllOrders()

	bid, ask := m.QuotePrices()
	reduce := m.shouldReduceExposure(cfg)

	if bid > 0 && !reduce {
		id := m.book.AddOrder(order.SideBuy, order.TypeLimit, bid, cfg.OrderSize)
		m.mu.Lock()
		m.activeBuys = append(m.activeBuys, id)
		m.mu.Unlock()
		m.ordersPlaced.Add(1)
	}
	if ask > 0 && !reduce {
		id := m.book.AddOrder(order.SideSell, order.TypeLimit, ask, cfg.OrderSize)
		m.mu.Lock()
		m.activeSells = append(m.activeSells, id)
		m.mu.Unlock()
		m.ordersPlaced.Add(1)
	}

	if bid > 0 && ask > 0 && !reduce {
		logger.LogQuote(m.log, m.book.Symbol(), bid, ask, ask-bid)
	}
}

// CancelAllOrders 撤销全部在簿报价（尽力而为）。
func (m *MarketMaker) CancelAllOrders() {
	m.mu.Lock()
	buys := m.activeBuys
	sells := m.activeSells
	m.activeBuys = nil
	m.activeSells = nil
	m.mu.Unlock()

	for _, id := range buys {
		if m.book.CancelOrder(id) {
			m.ordersCanceled.Add(1)
		}
	}
	for _, id := range sells {
		if m.book.CancelOrder(id) {
			m.ordersCanceled.Add(1)
		}
	}
}

func (m *MarketMaker) shouldReduceExposure(cfg Config) bool {
	return math.Abs(m.Position()) > cfg.PositionLimit
}

func (m *MarketMaker) manageInventory(cfg Config) {
	if pos := m.Position(); math.Abs(pos) > cfg.PositionLimit {
		m.log.Warn("position limit exceeded, quoting suppressed",
			zap.Float64("position", pos),
			zap.Float64("limit", cfg.PositionLimit))
	}
}

// OnFill 成交回报：signedQty 正买负卖。
func (m *MarketMaker) OnFill(signedQty, price float64) {
	m.mu.Lock()
	m.position += signedQty
	m.inventory += signedQty * price
	m.recentTrades = append(m.recentTrades, TradeRecord{
		Price:    price,
		Quantity: signedQty,
		At:       time.Now(),
	})
	if n := len(m.recentTrades) - m.cfg.TradeLogSize; n > 0 {
		m.recentTrades = m.recentTrades[n:]
	}
	m.mu.Unlock()
	m.tradesExecuted.Add(1)
}

// updateOwnPnL 更新引擎自身的盈亏视图（信息性；权威数据在 pnl.Tracker）。
// 仓位接近 0 时以小 epsilon 代替分母。
func (m *MarketMaker) updateOwnPnL() {
	price := m.gen.CurrentPrice()

	m.mu.Lock()
	position := m.position
	inventory := m.inventory
	m.mu.Unlock()

	unrealized := (price - inventory/math.Max(position, 0.001)) * position
	m.unrealizedBits.Store(math.Float64bits(unrealized))
	realized := math.Float64frombits(m.realizedBits.Load())
	m.totalBits.Store(math.Float64bits(realized + unrealized))
}

// EmergencyShutdown 不可逆紧急停机：置 HALTED 并尽力撤销全部报价。
func (m *MarketMaker) EmergencyShutdown() {
	if m.state.CompareAndSwap(int32(StateRunning), int32(StateHalted)) {
		m.log.Warn("emergency shutdown triggered")
	}
	m.CancelAllOrders()
}

// Reset 重置引擎到 RUNNING 初始状态。
func (m *MarketMaker) Reset() {
	m.CancelAllOrders()

	m.mu.Lock()
	m.position = 0
	m.inventory = 0
	m.recentTrades = nil
	m.startTime = time.Now()
	m.mu.Unlock()

	m.ordersPlaced.Store(0)
	m.ordersCanceled.Store(0)
	m.tradesExecuted.Store(0)
	m.realizedBits.Store(0)
	m.unrealizedBits.Store(0)
	m.totalBits.Store(0)
	m.state.Store(int32(StateRunning))
}

// UpdateConfig 整体替换配置。
func (m *MarketMaker) UpdateConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.TradeLogSize <= 0 {
		cfg.TradeLogSize = 1000
	}
	if cfg.VolLookback <= 0 {
		cfg.VolLookback = 20
	}
	m.cfg = cfg
}

// Config 返回当前配置快照。
func (m *MarketMaker) Config() Config {
	return m.configSnapshot()
}

func (m *MarketMaker) configSnapshot() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// ValueAtRisk 参数化 VaR，基于实际波动率与仓位名义价值。
func (m *MarketMaker) ValueAtRisk(confidence float64) float64 {
	cfg := m.configSnapshot()
	vol := m.gen.RealizedVolatility(cfg.VolLookback)
	positionValue := math.Abs(m.Position()) * m.gen.CurrentPrice()
	return risk.ValueAtRisk(confidence, vol, positionValue)
}

// PositionRisk 仓位名义价值 / 最大仓位名义价值。
func (m *MarketMaker) PositionRisk() float64 {
	cfg := m.configSnapshot()
	price := m.gen.CurrentPrice()
	return risk.PositionRisk(math.Abs(m.Position())*price, cfg.MaxPositionSize*price)
}

// State 当前状态。
func (m *MarketMaker) State() State {
	return State(m.state.Load())
}

// Halted 是否已紧急停机。
func (m *MarketMaker) Halted() bool {
	return m.State() == StateHalted
}

// Position 当前自身仓位视图。
func (m *MarketMaker) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Inventory 累计名义金额。
func (m *MarketMaker) Inventory() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inventory
}

// RealizedPnL 已实现盈亏（自身视图，无锁读取）。
func (m *MarketMaker) RealizedPnL() float64 {
	return math.Float64frombits(m.realizedBits.Load())
}

// UnrealizedPnL 未实现盈亏（自身视图，无锁读取）。
func (m *MarketMaker) UnrealizedPnL() float64 {
	return math.Float64frombits(m.unrealizedBits.Load())
}

// TotalPnL 总盈亏（自身视图，无锁读取）。
func (m *MarketMaker) TotalPnL() float64 {
	return math.Float64frombits(m.totalBits.Load())
}

// ActiveOrders 当前双边在簿报价数。
func (m *MarketMaker) ActiveOrders() (buys, sells int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.activeBuys), len(m.activeSells)
}

// OrdersPlaced 已提交报单总数。
func (m *MarketMaker) OrdersPlaced() int64 { return m.ordersPlaced.Load() }

// OrdersCanceled 已成功撤销报单总数。
func (m *MarketMaker) OrdersCanceled() int64 { return m.ordersCanceled.Load() }

// TradesExecuted 已处理成交总数。
func (m *MarketMaker) TradesExecuted() int64 { return m.tradesExecuted.Load() }

// RecentTrades 近期成交日志（拷贝）。
func (m *MarketMaker) RecentTrades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.recentTrades))
	copy(out, m.recentTrades)
	return out
}

// Uptime 引擎存续时长。
func (m *MarketMaker) Uptime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.startTime)
}
