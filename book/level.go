package book

import "hft-sim-go/order"

// level 单个价位档，订单按到达顺序排列（FIFO）。
// 已成交/已取消的订单在被显式移除前仍留在档内，但不参与活跃量统计。
type level struct {
	price  float64
	orders []*order.Order
}

func newLevel(price float64) *level {
	return &level{price: price}
}

// add 将订单追加到档尾。
func (l *level) add(o *order.Order) {
	l.orders = append(l.orders, o)
}

// remove 按订单号移除；返回是否找到。
func (l *level) remove(id int64) bool {
	for i, o := range l.orders {
		if o.ID == id {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// activeVolume 档内活跃订单的剩余数量之和。
func (l *level) activeVolume() float64 {
	var total float64
	for _, o := range l.orders {
		if o.IsActive() {
			total += o.RemainingQty()
		}
	}
	return total
}

func (l *level) empty() bool {
	return len(l.orders) == 0
}
