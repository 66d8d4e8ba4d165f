package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器。每个实例持有独立 registry，
// 便于并行跑多个模拟而不互相污染。
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	ordersPlaced   prometheus.Counter
	ordersCanceled prometheus.Counter
	ordersFilled   prometheus.Counter

	// 交易指标
	tradesTotal  prometheus.Counter
	tradedVolume prometheus.Counter
	takerOrders  *prometheus.CounterVec

	// 仓位与盈亏指标
	position      prometheus.Gauge
	realizedPnL   prometheus.Gauge
	unrealizedPnL prometheus.Gauge
	totalPnL      prometheus.Gauge
	maxDrawdown   prometheus.Gauge

	// 市场指标
	lastPrice   prometheus.Gauge
	midPrice    prometheus.Gauge
	spread      prometheus.Gauge
	bidPrice    prometheus.Gauge
	askPrice    prometheus.Gauge
	realizedVol prometheus.Gauge

	// 风控与驱动指标
	riskHalted prometheus.Gauge
	ticksTotal prometheus.Counter
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "sim",
		Subsystem: "mm",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Monitor{
		registry: reg,

		ordersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "orders_placed_total",
			Help:      "订单下单总数",
		}),
		ordersCanceled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "orders_canceled_total",
			Help:      "订单撤单总数",
		}),
		ordersFilled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "orders_filled_total",
			Help:      "订单完全成交总数",
		}),

		tradesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "trades_total",
			Help:      "成交笔数总数",
		}),
		tradedVolume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "traded_volume_total",
			Help:      "累计成交量",
		}),
		takerOrders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "taker_orders_total",
				Help:      "合成吃单流总数",
			},
			[]string{"side"},
		),

		position: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "position",
			Help:      "当前净仓位",
		}),
		realizedPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "realized_pnl",
			Help:      "已实现盈亏",
		}),
		unrealizedPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "unrealized_pnl",
			Help:      "未实现盈亏",
		}),
		totalPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "total_pnl",
			Help:      "总盈亏",
		}),
		maxDrawdown: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "max_drawdown",
			Help:      "最大回撤",
		}),

		lastPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "last_price",
			Help:      "最新参考价",
		}),
		midPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "mid_price",
			Help:      "当前中间价",
		}),
		spread: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "spread",
			Help:      "当前价差",
		}),
		bidPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "bid_price",
			Help:      "当前买一价",
		}),
		askPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ask_price",
			Help:      "当前卖一价",
		}),
		realizedVol: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "realized_volatility",
			Help:      "实际波动率（年化）",
		}),

		riskHalted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "risk_halted",
			Help:      "风控停机状态(0=运行,1=停机)",
		}),
		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ticks_total",
			Help:      "模拟 tick 总数",
		}),
	}

	return m
}

// 订单相关方法，按增量累加；非正增量忽略
func (m *Monitor) RecordOrdersPlaced(n int64) {
	if n > 0 {
		m.ordersPlaced.Add(float64(n))
	}
}

func (m *Monitor) RecordOrdersCanceled(n int64) {
	if n > 0 {
		m.ordersCanceled.Add(float64(n))
	}
}

func (m *Monitor) RecordOrdersFilled(n int64) {
	if n > 0 {
		m.ordersFilled.Add(float64(n))
	}
}

// RecordTrade 记录一笔成交及其数量
func (m *Monitor) RecordTrade(volume float64) {
	m.tradesTotal.Inc()
	m.tradedVolume.Add(volume)
}

// RecordTakerOrder 记录一笔合成吃单，side 为 BUY/SELL
func (m *Monitor) RecordTakerOrder(side string) {
	m.takerOrders.WithLabelValues(side).Inc()
}

// 仓位与盈亏相关方法
func (m *Monitor) UpdatePosition(value float64) { m.position.Set(value) }

func (m *Monitor) UpdatePnL(realized, unrealized, total float64) {
	m.realizedPnL.Set(realized)
	m.unrealizedPnL.Set(unrealized)
	m.totalPnL.Set(total)
}

func (m *Monitor) UpdateMaxDrawdown(value float64) { m.maxDrawdown.Set(value) }

// 市场相关方法
func (m *Monitor) UpdateLastPrice(value float64) { m.lastPrice.Set(value) }
func (m *Monitor) UpdateMidPrice(value float64)  { m.midPrice.Set(value) }
func (m *Monitor) UpdateSpread(value float64)    { m.spread.Set(value) }

func (m *Monitor) UpdateBidAsk(bid, ask float64) {
	m.bidPrice.Set(bid)
	m.askPrice.Set(ask)
}

func (m *Monitor) UpdateRealizedVolatility(value float64) { m.realizedVol.Set(value) }

// 风控与驱动相关方法
func (m *Monitor) UpdateHalted(halted bool) {
	if halted {
		m.riskHalted.Set(1)
	} else {
		m.riskHalted.Set(0)
	}
}

func (m *Monitor) RecordTick() { m.ticksTotal.Inc() }

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Serve 在 addr 上启动指标服务器，调用方负责 Shutdown。
func (m *Monitor) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
