package order

import "time"

// Side represents order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type represents order type.
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
	TypeStop   Type = "STOP"
)

// Status represents order lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPartial   Status = "PARTIALLY_FILLED"
	StatusFilled    Status = "FILLED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// Order 订单实体。ID 由所属订单簿分配，单调递增且不复用；
// symbol/side/type/price/quantity 创建后不可变。
type Order struct {
	ID        int64
	Symbol    string
	Side      Side
	Type      Type
	Price     float64
	Quantity  float64
	FilledQty float64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New 创建一个处于 PENDING 状态的新订单。
func New(id int64, symbol string, side Side, typ Type, price, qty float64) *Order {
	now := time.Now()
	return &Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  qty,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// lifecycle 包级状态机，订单状态判断与转换校验共用一份转换表。
var lifecycle = NewStateMachine()

// IsActive 订单是否仍可成交。
func (o *Order) IsActive() bool {
	return lifecycle.IsActiveState(o.Status)
}

// IsFilled 是否已全部成交。
func (o *Order) IsFilled() bool {
	return o.Status == StatusFilled
}

// RemainingQty 剩余未成交数量。
func (o *Order) RemainingQty() float64 {
	return o.Quantity - o.FilledQty
}

// Fill 累计成交数量并推进状态。非法数量（非正或超过剩余）静默忽略。
func (o *Order) Fill(qty float64) {
	if qty <= 0 || qty > o.RemainingQty() {
		return
	}
	next := StatusPartial
	if o.FilledQty+qty >= o.Quantity {
		next = StatusFilled
	}
	if err := lifecycle.ValidateTransition(o.Status, next); err != nil {
		return
	}
	o.FilledQty += qty
	o.Status = next
	o.UpdatedAt = time.Now()
}

// Cancel 取消订单；仅对活跃订单生效。
func (o *Order) Cancel() {
	if o.IsActive() {
		o.Status = StatusCancelled
		o.UpdatedAt = time.Now()
	}
}

// Age 返回订单存续时长。
func (o *Order) Age() time.Duration {
	return time.Since(o.CreatedAt)
}
