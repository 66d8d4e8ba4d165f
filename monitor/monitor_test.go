package monitor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOrderCounters(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordOrdersPlaced(2)
	m.RecordOrdersCanceled(1)
	m.RecordOrdersFilled(1)

	if got := testutil.ToFloat64(m.ordersPlaced); got != 2 {
		t.Errorf("expected ordersPlaced to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.ordersCanceled); got != 1 {
		t.Errorf("expected ordersCanceled to be 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.ordersFilled); got != 1 {
		t.Errorf("expected ordersFilled to be 1, got %f", got)
	}

	// 非正增量不计入
	m.RecordOrdersPlaced(0)
	m.RecordOrdersPlaced(-3)
	if got := testutil.ToFloat64(m.ordersPlaced); got != 2 {
		t.Errorf("expected ordersPlaced to stay 2, got %f", got)
	}
}

func TestTradeMetrics(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordTrade(30)
	m.RecordTrade(20)
	m.RecordTakerOrder("BUY")
	m.RecordTakerOrder("BUY")
	m.RecordTakerOrder("SELL")

	if got := testutil.ToFloat64(m.tradesTotal); got != 2 {
		t.Errorf("expected tradesTotal to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.tradedVolume); got != 50 {
		t.Errorf("expected tradedVolume to be 50, got %f", got)
	}
	if got := testutil.ToFloat64(m.takerOrders.WithLabelValues("BUY")); got != 2 {
		t.Errorf("expected takerOrders[BUY] to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.takerOrders.WithLabelValues("SELL")); got != 1 {
		t.Errorf("expected takerOrders[SELL] to be 1, got %f", got)
	}
}

func TestGauges(t *testing.T) {
	m := New(DefaultConfig())

	m.UpdatePosition(42)
	m.UpdatePnL(10, -3, 7)
	m.UpdateMidPrice(100.5)
	m.UpdateSpread(0.2)
	m.UpdateBidAsk(100.4, 100.6)
	m.UpdateRealizedVolatility(0.25)

	if got := testutil.ToFloat64(m.position); got != 42 {
		t.Errorf("expected position to be 42, got %f", got)
	}
	if got := testutil.ToFloat64(m.totalPnL); got != 7 {
		t.Errorf("expected totalPnL to be 7, got %f", got)
	}
	if got := testutil.ToFloat64(m.unrealizedPnL); got != -3 {
		t.Errorf("expected unrealizedPnL to be -3, got %f", got)
	}
	if got := testutil.ToFloat64(m.bidPrice); got != 100.4 {
		t.Errorf("expected bidPrice to be 100.4, got %f", got)
	}
	if got := testutil.ToFloat64(m.realizedVol); got != 0.25 {
		t.Errorf("expected realizedVol to be 0.25, got %f", got)
	}
}

func TestHaltedGauge(t *testing.T) {
	m := New(DefaultConfig())

	m.UpdateHalted(true)
	if got := testutil.ToFloat64(m.riskHalted); got != 1 {
		t.Errorf("expected riskHalted to be 1, got %f", got)
	}
	m.UpdateHalted(false)
	if got := testutil.ToFloat64(m.riskHalted); got != 0 {
		t.Errorf("expected riskHalted to be 0, got %f", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	// 两个实例各自持 registry，互不影响
	a := New(DefaultConfig())
	b := New(DefaultConfig())

	a.RecordTick()
	if got := testutil.ToFloat64(b.ticksTotal); got != 0 {
		t.Errorf("expected fresh monitor ticks to be 0, got %f", got)
	}
}
