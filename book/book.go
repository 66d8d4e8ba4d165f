package book

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/tidwall/btree"

	"hft-sim-go/order"
)

// Fill 单次撮合成交明细，供上层记账使用。
type Fill struct {
	OrderID  int64
	Price    float64
	Quantity float64
}

// Level 行情深度条目：价格与该价位的活跃挂单量。
type Level struct {
	Price  float64
	Volume float64
}

// Book 维护单一标的的双边限价订单簿。
// 买档按价格降序（最优买价在前）、卖档按价格升序排列；
// 档内按到达顺序撮合。限价单入簿时不做对手方撮合，
// 唯一的撮合路径是 ProcessMarketOrder，交叉盘允许存在。
type Book struct {
	mu     sync.Mutex
	symbol string
	bids   *btree.Map[float64, *level]
	asks   *btree.Map[float64, *level]
	index  map[int64]*order.Order // id -> order，O(1) 撤单
	nextID int64

	// 热点计数，status 轮询无需抢锁
	ordersProcessed atomic.Int64
	ordersFilled    atomic.Int64
	volumeBits      atomic.Uint64 // float64 bits
}

// New 创建空订单簿。
func New(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   btree.NewMap[float64, *level](32),
		asks:   btree.NewMap[float64, *level](32),
		index:  make(map[int64]*order.Order),
	}
}

// Symbol 返回订单簿标的。
func (b *Book) Symbol() string { return b.symbol }

// AddOrder 下限价/止损单，返回新分配的订单号（从 1 开始，单调递增，不复用）。
// 价格/数量由调用方校验，这里按原样接受；入簿不触发撮合。
func (b *Book) AddOrder(side order.Side, typ order.Type, price, qty float64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(side, typ, price, qty)
}

func (b *Book) addLocked(side order.Side, typ order.Type, price, qty float64) int64 {
	b.nextID++
	o := order.New(b.nextID, b.symbol, side, typ, price, qty)

	tree := b.asks
	if side == order.SideBuy {
		tree = b.bids
	}
	lvl, ok := tree.Get(price)
	if !ok {
		lvl = newLevel(price)
		tree.Set(price, lvl)
	}
	lvl.add(o)
	b.index[o.ID] = o

	b.ordersProcessed.Add(1)
	b.addVolume(qty)
	return o.ID
}

// CancelOrder 撤单。未知订单号或订单已终结时返回 false；
// 重复撤单第二次返回 false。
func (b *Book) CancelOrder(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelLocked(id)
}

func (b *Book) cancelLocked(id int64) bool {
	o, ok := b.index[id]
	if !ok || !o.IsActive() {
		return false
	}
	o.Cancel()

	tree := b.asks
	if o.Side == order.SideBuy {
		tree = b.bids
	}
	if lvl, ok := tree.Get(o.Price); ok {
		lvl.remove(id)
		if lvl.empty() {
			tree.Delete(o.Price)
		}
	}
	delete(b.index, id)
	return true
}

// ModifyOrder 改单，语义为先撤后挂。成功时会分配新的订单号，
// 调用方不能假设订单号在改单后保持不变。
func (b *Book) ModifyOrder(id int64, newPrice, newQty float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.index[id]
	if !ok || !o.IsActive() {
		return false
	}
	side, typ := o.Side, o.Type
	b.cancelLocked(id)
	b.addLocked(side, typ, newPrice, newQty)
	return true
}

// Lookup 按订单号查询订单快照（拷贝）。
func (b *Book) Lookup(id int64) (order.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.index[id]
	if !ok {
		return order.Order{}, false
	}
	return *o, true
}

// BestBid 最优买价；买档为空时返回 0。
func (b *Book) BestBid() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestBidLocked()
}

// BestAsk 最优卖价；卖档为空时返回 0。
func (b *Book) BestAsk() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestAskLocked()
}

func (b *Book) bestBidLocked() float64 {
	if price, _, ok := b.bids.Max(); ok {
		return price
	}
	return 0
}

func (b *Book) bestAskLocked() float64 {
	if price, _, ok := b.asks.Min(); ok {
		return price
	}
	return 0
}

// MidPrice 中间价；任一侧缺失时返回 0。
func (b *Book) MidPrice() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, ask := b.bestBidLocked(), b.bestAskLocked()
	if bid <= 0 || ask <= 0 {
		return 0
	}
	return (bid + ask) / 2
}

// Spread 买卖价差；任一侧缺失时返回 0。
func (b *Book) Spread() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, ask := b.bestBidLocked(), b.bestAskLocked()
	if bid <= 0 || ask <= 0 {
		return 0
	}
	return ask - bid
}

// BidVolume 买侧全部活跃挂单量。
func (b *Book) BidVolume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var total float64
	b.bids.Scan(func(_ float64, lvl *level) bool {
		total += lvl.activeVolume()
		return true
	})
	return total
}

// AskVolume 卖侧全部活跃挂单量。
func (b *Book) AskVolume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var total float64
	b.asks.Scan(func(_ float64, lvl *level) bool {
		total += lvl.activeVolume()
		return true
	})
	return total
}

// TopBids 按最优价在前返回至多 levels 个有活跃量的买档。
func (b *Book) TopBids(levels int) []Level {
	if levels <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]Level, 0, levels)
	b.bids.Reverse(func(price float64, lvl *level) bool {
		if vol := lvl.activeVolume(); vol > 0 {
			result = append(result, Level{Price: price, Volume: vol})
		}
		return len(result) < levels
	})
	return result
}

// TopAsks 按最优价在前返回至多 levels 个有活跃量的卖档。
func (b *Book) TopAsks(levels int) []Level {
	if levels <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]Level, 0, levels)
	b.asks.Scan(func(price float64, lvl *level) bool {
		if vol := lvl.activeVolume(); vol > 0 {
			result = append(result, Level{Price: price, Volume: vol})
		}
		return len(result) < levels
	})
	return result
}

// ProcessMarketOrder 以市价单吃掉对手方流动性，唯一的撮合路径。
// 从对手方最优档开始，档内按到达顺序逐笔成交
// min(剩余需求, 挂单剩余)；返回成交明细与请求量是否全部成交。
// 成交后订单仅推进状态，不从档内摘除。
func (b *Book) ProcessMarketOrder(side order.Side, quantity float64) ([]Fill, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := quantity
	var fills []Fill

	match := func(_ float64, lvl *level) bool {
		for _, o := range lvl.orders {
			if !o.IsActive() {
				continue
			}
			fillQty := math.Min(remaining, o.RemainingQty())
			o.Fill(fillQty)
			remaining -= fillQty
			fills = append(fills, Fill{OrderID: o.ID, Price: o.Price, Quantity: fillQty})
			if o.IsFilled() {
				b.ordersFilled.Add(1)
			}
			if remaining <= 0 {
				return false
			}
		}
		return true
	}

	if side == order.SideBuy {
		b.asks.Scan(match)
	} else {
		b.bids.Reverse(match)
	}
	return fills, remaining <= 0
}

// IsEmpty 双边是否均无档位。
func (b *Book) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Len() == 0 && b.asks.Len() == 0
}

// BidLevels 买侧档位数。
func (b *Book) BidLevels() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Len()
}

// AskLevels 卖侧档位数。
func (b *Book) AskLevels() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.Len()
}

// Clear 清空订单簿与计数器。订单号序列不重置，保证 ID 不复用。
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = btree.NewMap[float64, *level](32)
	b.asks = btree.NewMap[float64, *level](32)
	b.index = make(map[int64]*order.Order)
	b.ordersProcessed.Store(0)
	b.ordersFilled.Store(0)
	b.volumeBits.Store(0)
}

// OrdersProcessed 已受理订单总数。
func (b *Book) OrdersProcessed() int64 { return b.ordersProcessed.Load() }

// OrdersFilled 已全部成交订单总数。
func (b *Book) OrdersFilled() int64 { return b.ordersFilled.Load() }

// VolumeProcessed 已受理订单数量之和。
func (b *Book) VolumeProcessed() float64 {
	return math.Float64frombits(b.volumeBits.Load())
}

func (b *Book) addVolume(qty float64) {
	for {
		old := b.volumeBits.Load()
		next := math.Float64bits(math.Float64frombits(old) + qty)
		if b.volumeBits.CompareAndSwap(old, next) {
			return
		}
	}
}
