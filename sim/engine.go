package sim

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"hft-sim-go/book"
	"hft-sim-go/config"
	"hft-sim-go/infrastructure/logger"
	"hft-sim-go/maker"
	"hft-sim-go/market"
	"hft-sim-go/monitor"
	"hft-sim-go/order"
	"hft-sim-go/pnl"
)

// ErrAlreadyRunning 引擎已在运行。
var ErrAlreadyRunning = errors.New("engine already running")

// TradeEvent 单笔成交事件，供行情推送使用。
type TradeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	OrderID   int64     `json:"orderId"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Side      string    `json:"side"` // 吃单方向
}

// Status 引擎状态快照。
type Status struct {
	Symbol  string        `json:"symbol"`
	Running bool          `json:"running"`
	Halted  bool          `json:"halted"`
	Elapsed time.Duration `json:"elapsed"`
	Ticks   int64         `json:"ticks"`
	Volume  float64       `json:"volume"`

	CurrentPrice  float64 `json:"currentPrice"`
	BestBid       float64 `json:"bestBid"`
	BestAsk       float64 `json:"bestAsk"`
	MidPrice      float64 `json:"midPrice"`
	Spread        float64 `json:"spread"`
	RealizedVol   float64 `json:"realizedVol"`
	Position      float64 `json:"position"`
	RealizedPnL   float64 `json:"realizedPnl"`
	UnrealizedPnL float64 `json:"unrealizedPnl"`
	TotalPnL      float64 `json:"totalPnl"`
	MaxDrawdown   float64 `json:"maxDrawdown"`

	OrdersPlaced   int64 `json:"ordersPlaced"`
	TradesExecuted int64 `json:"tradesExecuted"`

	Bids []book.Level `json:"bids"`
	Asks []book.Level `json:"asks"`
}

// Sink 接收引擎产生的事件，由行情推送层实现。
type Sink interface {
	OnStatus(Status)
	OnTrade(TradeEvent)
}

// Engine 模拟驱动器：持有订单簿、价格生成器、做市引擎与盈亏账本，
// 按固定周期推进。每个 tick 先生成参考价，由做市引擎重报双边价，
// 再注入合成吃单流撮合，最后把成交与标记价回灌给盈亏账本。
// 单写多读：只有驱动 goroutine 修改组件，状态查询走无锁快照。
type Engine struct {
	cfg config.AppConfig
	log *zap.Logger

	book    *book.Book
	gen     *market.Generator
	maker   *maker.MarketMaker
	tracker *pnl.Tracker

	mon  *monitor.Monitor
	sink Sink

	rng *rand.Rand

	mu        sync.Mutex
	running   bool
	startTime time.Time
	stopChan  chan struct{}
	doneChan  chan struct{}

	ticks      atomic.Int64
	volumeBits atomic.Uint64

	// 上次上报的订单计数，仅驱动 goroutine 读写
	lastOrdersPlaced   int64
	lastOrdersCanceled int64
	lastOrdersFilled   int64
}

// New 按配置装配全部组件。logger 可为 nil。
func New(cfg config.AppConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := book.New(cfg.Symbol)
	g := market.NewGenerator(cfg.Market.ToGeneratorConfig())
	m := maker.New(b, g, cfg.Maker, logger.Named("maker"))
	tr := pnl.NewTracker(0, true)
	m.SetPnLSource(tr)

	seed := cfg.Market.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	return &Engine{
		cfg:     cfg,
		log:     logger,
		book:    b,
		gen:     g,
		maker:   m,
		tracker: tr,
		// 吃单流与价格路径的随机源分开，互不干扰序列
		rng: rand.New(rand.NewSource(seed + 1)),
	}
}

// SetMonitor 注入指标收集器，可为 nil。
func (e *Engine) SetMonitor(m *monitor.Monitor) { e.mon = m }

// SetSink 注入事件接收器，可为 nil。
func (e *Engine) SetSink(s Sink) { e.sink = s }

// Start 启动驱动 goroutine。重复启动返回 ErrAlreadyRunning。
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	e.running = true
	e.startTime = time.Now()
	e.stopChan = make(chan struct{})
	e.doneChan = make(chan struct{})

	go e.loop(e.stopChan, e.doneChan)

	e.log.Info("simulation started",
		zap.String("symbol", e.cfg.Symbol),
		zap.Duration("duration", e.cfg.Sim.Duration()),
		zap.Duration("tick_interval", e.cfg.Sim.TickInterval()))
	return nil
}

// Stop 停止驱动并等待本轮 tick 结束。未启动时为空操作。
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	stop := e.stopChan
	done := e.doneChan
	e.mu.Unlock()

	select {
	case <-stop:
		// 已在停止中
	default:
		close(stop)
	}
	<-done
}

// Wait 阻塞直到驱动 goroutine 退出（时长耗尽、停机或 Stop）。
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.doneChan
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) loop(stop, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(e.cfg.Sim.TickInterval())
	defer ticker.Stop()

	var deadline <-chan time.Time
	if e.cfg.Sim.DurationMs > 0 {
		t := time.NewTimer(e.cfg.Sim.Duration())
		defer t.Stop()
		deadline = t.C
	}

	for {
		select {
		case <-stop:
			return
		case <-deadline:
			e.log.Info("simulation duration elapsed", zap.Int64("ticks", e.ticks.Load()))
			return
		case <-ticker.C:
			if !e.runTick() {
				return
			}
		}
	}
}

// runTick 推进一个模拟周期，返回 false 表示驱动应当结束。
func (e *Engine) runTick() bool {
	price := e.gen.GenerateNextPrice()
	e.ticks.Add(1)

	outcome := e.maker.Step()
	if outcome != maker.StepOK {
		e.log.Warn("market maker stopped",
			zap.String("outcome", outcome.String()),
			zap.Float64("position", e.maker.Position()),
			zap.Float64("total_pnl", e.tracker.TotalPnL()))
		e.tracker.UpdateMarkPrice(price)
		e.observe(price)
		return false
	}

	e.injectTakerFlow()

	e.tracker.UpdateMarkPrice(price)
	e.observe(price)
	return true
}

// injectTakerFlow 以配置概率注入一笔随机方向的市价吃单。
// 簿上挂单都来自做市引擎，吃单的每笔成交都是引擎的对手成交。
func (e *Engine) injectTakerFlow() {
	if e.rng.Float64() >= e.cfg.Sim.TakerRate {
		return
	}

	side := order.SideBuy
	if e.rng.Float64() < 0.5 {
		side = order.SideSell
	}
	qty := 1 + e.rng.Float64()*(e.cfg.Sim.TakerMaxQty-1)

	fills, _ := e.book.ProcessMarketOrder(side, qty)
	if e.mon != nil {
		e.mon.RecordTakerOrder(string(side))
	}

	for _, f := range fills {
		signed := f.Quantity
		makerSide := 1.0
		if side == order.SideBuy {
			// 吃单买入，做市方卖出
			signed = -f.Quantity
			makerSide = -1.0
		}
		e.maker.OnFill(signed, f.Price)
		e.tracker.RecordTrade(f.Price, f.Quantity, makerSide)
		e.addVolume(f.Quantity)
		logger.LogFill(e.log, e.cfg.Symbol, f.OrderID, f.Price, f.Quantity, string(side))

		if e.mon != nil {
			e.mon.RecordTrade(f.Quantity)
		}
		if e.sink != nil {
			e.sink.OnTrade(TradeEvent{
				Timestamp: time.Now(),
				OrderID:   f.OrderID,
				Price:     f.Price,
				Quantity:  f.Quantity,
				Side:      string(side),
			})
		}
	}
}

// observe 把本 tick 的状态灌给指标与事件接收器。
func (e *Engine) observe(price float64) {
	if e.mon != nil {
		e.mon.RecordTick()
		e.mon.UpdateLastPrice(price)
		e.mon.UpdateMidPrice(e.book.MidPrice())
		e.mon.UpdateSpread(e.book.Spread())
		e.mon.UpdateBidAsk(e.book.BestBid(), e.book.BestAsk())
		e.mon.UpdateRealizedVolatility(e.gen.RealizedVolatility(e.cfg.Maker.VolLookback))
		e.mon.UpdatePosition(e.tracker.Position())
		e.mon.UpdatePnL(e.tracker.RealizedPnL(), e.tracker.UnrealizedPnL(), e.tracker.TotalPnL())
		e.mon.UpdateMaxDrawdown(e.tracker.MaxDrawdown())
		e.mon.UpdateHalted(e.maker.Halted())

		placed := e.maker.OrdersPlaced()
		canceled := e.maker.OrdersCanceled()
		filled := e.book.OrdersFilled()
		e.mon.RecordOrdersPlaced(placed - e.lastOrdersPlaced)
		e.mon.RecordOrdersCanceled(canceled - e.lastOrdersCanceled)
		e.mon.RecordOrdersFilled(filled - e.lastOrdersFilled)
		e.lastOrdersPlaced, e.lastOrdersCanceled, e.lastOrdersFilled = placed, canceled, filled
	}
	if e.sink != nil {
		e.sink.OnStatus(e.Status())
	}
}

func (e *Engine) addVolume(qty float64) {
	for {
		old := e.volumeBits.Load()
		cur := math.Float64frombits(old)
		if e.volumeBits.CompareAndSwap(old, math.Float64bits(cur+qty)) {
			return
		}
	}
}

// Status 返回当前快照，运行期间可随时调用。
func (e *Engine) Status() Status {
	e.mu.Lock()
	running := e.running
	start := e.startTime
	e.mu.Unlock()

	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start)
	}

	depth := e.cfg.Sim.BookDepth
	return Status{
		Symbol:  e.cfg.Symbol,
		Running: running,
		Halted:  e.maker.Halted(),
		Elapsed: elapsed,
		Ticks:   e.ticks.Load(),
		Volume:  math.Float64frombits(e.volumeBits.Load()),

		CurrentPrice:  e.gen.CurrentPrice(),
		BestBid:       e.book.BestBid(),
		BestAsk:       e.book.BestAsk(),
		MidPrice:      e.book.MidPrice(),
		Spread:        e.book.Spread(),
		RealizedVol:   e.gen.RealizedVolatility(e.cfg.Maker.VolLookback),
		Position:      e.tracker.Position(),
		RealizedPnL:   e.tracker.RealizedPnL(),
		UnrealizedPnL: e.tracker.UnrealizedPnL(),
		TotalPnL:      e.tracker.TotalPnL(),
		MaxDrawdown:   e.tracker.MaxDrawdown(),

		OrdersPlaced:   e.maker.OrdersPlaced(),
		TradesExecuted: e.maker.TradesExecuted(),

		Bids: e.book.TopBids(depth),
		Asks: e.book.TopAsks(depth),
	}
}

// Running 引擎是否在运行。
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Ticks 已推进的 tick 数。
func (e *Engine) Ticks() int64 { return e.ticks.Load() }

// Volume 累计成交量。
func (e *Engine) Volume() float64 { return math.Float64frombits(e.volumeBits.Load()) }

// Book 返回订单簿。
func (e *Engine) Book() *book.Book { return e.book }

// Generator 返回价格生成器。
func (e *Engine) Generator() *market.Generator { return e.gen }

// Maker 返回做市引擎。
func (e *Engine) Maker() *maker.MarketMaker { return e.maker }

// Tracker 返回盈亏账本。
func (e *Engine) Tracker() *pnl.Tracker { return e.tracker }

// UpdateMakerConfig 运行期整体替换做市参数（热更新入口）。
func (e *Engine) UpdateMakerConfig(cfg maker.Config) {
	e.maker.UpdateConfig(cfg)
	e.log.Info("maker config updated",
		zap.Float64("base_spread_bps", cfg.BaseSpreadBPS),
		zap.Float64("order_size", cfg.OrderSize))
}
