package maker

import "math"

// minQuotePrice 买价下限，与订单簿价格下限一致。
const minQuotePrice = 0.01

// DynamicSpread 计算当前报价价差（以小数表示）。
// 静态模式下恒为 base_bps/10000；动态模式下在基础价差上
// 叠加波动率项与仓位压力项，并收敛到 [min, max] 区间。
func (m *MarketMaker) DynamicSpread() float64 {
	cfg := m.configSnapshot()
	vol := m.gen.RealizedVolatility(cfg.VolLookback)
	return computeSpread(cfg, vol, m.Position())
}

func computeSpread(cfg Config, realizedVol, position float64) float64 {
	base := cfg.BaseSpreadBPS / 10000
	if !cfg.DynamicSpread {
		return base
	}

	spread := base
	spread += realizedVol * cfg.VolatilityMultiplier
	if cfg.MaxPositionSize > 0 {
		spread += math.Abs(position) / cfg.MaxPositionSize * 0.0001
	}

	return clamp(spread, cfg.MinSpreadBPS/10000, cfg.MaxSpreadBPS/10000)
}

// QuotePrices 计算双边报价。中间价优先取订单簿 mid，
// 订单簿单边为空时回落到生成器参考价。买价不低于 0.01，
// 卖价上方除价差收敛外不设上限。
func (m *MarketMaker) QuotePrices() (bid, ask float64) {
	mid := m.book.MidPrice()
	if mid <= 0 {
		mid = m.gen.CurrentPrice()
	}

	spread := m.DynamicSpread()
	bid = math.Max(mid-spread/2, minQuotePrice)
	ask = mid + spread/2
	return bid, ask
}

// BidPrice 当前买价。
func (m *MarketMaker) BidPrice() float64 {
	bid, _ := m.QuotePrices()
	return bid
}

// AskPrice 当前卖价。
func (m *MarketMaker) AskPrice() float64 {
	_, ask := m.QuotePrices()
	return ask
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
