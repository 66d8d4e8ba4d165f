package book

import (
	"testing"

	"hft-sim-go/order"
)

func TestBestBidAskMidSpread(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(order.SideBuy, order.TypeLimit, 149, 100)
	b.AddOrder(order.SideSell, order.TypeLimit, 151, 100)

	if bid := b.BestBid(); bid != 149 {
		t.Fatalf("best bid: expected 149 got %f", bid)
	}
	if ask := b.BestAsk(); ask != 151 {
		t.Fatalf("best ask: expected 151 got %f", ask)
	}
	if mid := b.MidPrice(); mid != 150 {
		t.Fatalf("mid: expected 150 got %f", mid)
	}
	if spread := b.Spread(); spread != 2 {
		t.Fatalf("spread: expected 2 got %f", spread)
	}
}

func TestEmptySideReturnsZero(t *testing.T) {
	b := New("AAPL")
	if b.BestBid() != 0 || b.BestAsk() != 0 || b.MidPrice() != 0 || b.Spread() != 0 {
		t.Fatal("empty book should report zeros")
	}

	b.AddOrder(order.SideBuy, order.TypeLimit, 100, 10)
	// 只有单边时 mid/spread 仍为 0
	if b.MidPrice() != 0 || b.Spread() != 0 {
		t.Fatal("one-sided book should report zero mid/spread")
	}
	if b.BestBid() != 100 {
		t.Fatalf("expected best bid 100 got %f", b.BestBid())
	}
}

func TestOrderIDsMonotonic(t *testing.T) {
	b := New("AAPL")
	id1 := b.AddOrder(order.SideBuy, order.TypeLimit, 100, 10)
	id2 := b.AddOrder(order.SideSell, order.TypeLimit, 101, 10)
	if id1 != 1 || id2 != 2 {
		t.Fatalf("expected ids 1,2 got %d,%d", id1, id2)
	}
	if b.OrdersProcessed() != 2 {
		t.Fatalf("expected 2 orders processed got %d", b.OrdersProcessed())
	}
	if b.VolumeProcessed() != 20 {
		t.Fatalf("expected volume 20 got %f", b.VolumeProcessed())
	}
}

func TestCancelIdempotent(t *testing.T) {
	b := New("AAPL")
	id := b.AddOrder(order.SideBuy, order.TypeLimit, 100, 10)

	if !b.CancelOrder(id) {
		t.Fatal("first cancel should succeed")
	}
	if b.CancelOrder(id) {
		t.Fatal("second cancel should fail")
	}
	if b.CancelOrder(9999) {
		t.Fatal("unknown id cancel should fail")
	}
	// 空档应被清理
	if b.BestBid() != 0 {
		t.Fatalf("expected empty bids after cancel, best bid %f", b.BestBid())
	}
	if !b.IsEmpty() {
		t.Fatal("book should be empty after cancelling the only order")
	}
}

func TestModifyAllocatesNewID(t *testing.T) {
	b := New("AAPL")
	id := b.AddOrder(order.SideBuy, order.TypeLimit, 100, 10)

	if !b.ModifyOrder(id, 101, 20) {
		t.Fatal("modify should succeed")
	}
	if _, ok := b.Lookup(id); ok {
		t.Fatal("old id should be gone after modify")
	}
	o, ok := b.Lookup(id + 1)
	if !ok {
		t.Fatal("modified order should exist under a new id")
	}
	if o.Price != 101 || o.Quantity != 20 || o.Side != order.SideBuy {
		t.Fatalf("unexpected modified order %+v", o)
	}

	if b.ModifyOrder(id, 99, 5) {
		t.Fatal("modify of cancelled id should fail")
	}
}

func TestProcessMarketOrderPartialFill(t *testing.T) {
	b := New("AAPL")
	id := b.AddOrder(order.SideSell, order.TypeLimit, 151, 100)

	fills, full := b.ProcessMarketOrder(order.SideBuy, 60)
	if !full {
		t.Fatal("requested quantity should be fully satisfied")
	}
	if len(fills) != 1 || fills[0].Quantity != 60 || fills[0].Price != 151 {
		t.Fatalf("unexpected fills %+v", fills)
	}

	o, _ := b.Lookup(id)
	if o.Status != order.StatusPartial {
		t.Fatalf("expected PARTIALLY_FILLED got %s", o.Status)
	}
	if o.RemainingQty() != 40 {
		t.Fatalf("expected remaining 40 got %f", o.RemainingQty())
	}
}

func TestProcessMarketOrderWalksLevelsBestFirst(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(order.SideSell, order.TypeLimit, 152, 50)
	first := b.AddOrder(order.SideSell, order.TypeLimit, 151, 50)

	fills, full := b.ProcessMarketOrder(order.SideBuy, 80)
	if !full {
		t.Fatal("expected full fill")
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills got %d", len(fills))
	}
	// 先吃最优卖档 151
	if fills[0].OrderID != first || fills[0].Price != 151 || fills[0].Quantity != 50 {
		t.Fatalf("unexpected first fill %+v", fills[0])
	}
	if fills[1].Price != 152 || fills[1].Quantity != 30 {
		t.Fatalf("unexpected second fill %+v", fills[1])
	}
	if b.OrdersFilled() != 1 {
		t.Fatalf("expected 1 fully filled order got %d", b.OrdersFilled())
	}
}

func TestProcessMarketOrderFIFOWithinLevel(t *testing.T) {
	b := New("AAPL")
	early := b.AddOrder(order.SideBuy, order.TypeLimit, 99, 30)
	late := b.AddOrder(order.SideBuy, order.TypeLimit, 99, 30)

	fills, full := b.ProcessMarketOrder(order.SideSell, 40)
	if !full {
		t.Fatal("expected full fill")
	}
	if fills[0].OrderID != early || fills[0].Quantity != 30 {
		t.Fatalf("earliest order should fill first, got %+v", fills[0])
	}
	if fills[1].OrderID != late || fills[1].Quantity != 10 {
		t.Fatalf("unexpected second fill %+v", fills[1])
	}
}

func TestProcessMarketOrderInsufficientLiquidity(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(order.SideSell, order.TypeLimit, 151, 20)

	fills, full := b.ProcessMarketOrder(order.SideBuy, 50)
	if full {
		t.Fatal("fill should be partial when liquidity runs out")
	}
	if len(fills) != 1 || fills[0].Quantity != 20 {
		t.Fatalf("unexpected fills %+v", fills)
	}

	// 空簿撮合
	empty := New("AAPL")
	fills, full = empty.ProcessMarketOrder(order.SideBuy, 10)
	if full || len(fills) != 0 {
		t.Fatal("empty book must not fill")
	}
}

func TestCrossedBookAllowedToRest(t *testing.T) {
	// 限价单入簿不撮合：交叉盘可以长期存在
	b := New("AAPL")
	b.AddOrder(order.SideBuy, order.TypeLimit, 152, 10)
	b.AddOrder(order.SideSell, order.TypeLimit, 150, 10)

	if b.BestBid() != 152 || b.BestAsk() != 150 {
		t.Fatalf("crossed book should rest as-is, got bid=%f ask=%f", b.BestBid(), b.BestAsk())
	}
}

func TestDepthQueries(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(order.SideBuy, order.TypeLimit, 100, 10)
	b.AddOrder(order.SideBuy, order.TypeLimit, 99, 20)
	b.AddOrder(order.SideBuy, order.TypeLimit, 98, 30)
	b.AddOrder(order.SideSell, order.TypeLimit, 101, 5)
	filled := b.AddOrder(order.SideSell, order.TypeLimit, 102, 7)

	// 吃光 102 档：活跃量为 0 的档不应出现在深度里
	b.ProcessMarketOrder(order.SideBuy, 12)
	_ = filled

	bids := b.TopBids(2)
	if len(bids) != 2 || bids[0].Price != 100 || bids[1].Price != 99 {
		t.Fatalf("unexpected top bids %+v", bids)
	}
	asks := b.TopAsks(5)
	if len(asks) != 0 {
		t.Fatalf("fully consumed asks should not appear in depth, got %+v", asks)
	}

	if b.BidVolume() != 60 {
		t.Fatalf("expected bid volume 60 got %f", b.BidVolume())
	}
	if b.AskVolume() != 0 {
		t.Fatalf("expected ask volume 0 got %f", b.AskVolume())
	}
}

func TestClearKeepsIDSequence(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(order.SideBuy, order.TypeLimit, 100, 10)
	b.Clear()

	if !b.IsEmpty() || b.OrdersProcessed() != 0 {
		t.Fatal("clear should empty the book and reset counters")
	}
	id := b.AddOrder(order.SideBuy, order.TypeLimit, 100, 10)
	if id != 2 {
		t.Fatalf("order ids must never be reused, expected 2 got %d", id)
	}
}
