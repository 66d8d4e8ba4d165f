package risk

import "errors"

var (
	ErrStopLoss      = errors.New("stop loss triggered")
	ErrMaxLoss       = errors.New("max loss limit exceeded")
	ErrPositionLimit = errors.New("max position size exceeded")
)

// Snapshot 风控检查输入：当前仓位与总盈亏。
type Snapshot struct {
	Position float64
	TotalPnL float64
}

// Guard 是通用风控接口，止损、仓位上限等都可实现。
type Guard interface {
	Check(s Snapshot) error
}

// MultiGuard 顺序执行多个 Guard，只要有一个返回错误则中止。
type MultiGuard struct {
	Guards []Guard
}

func (m MultiGuard) Check(s Snapshot) error {
	for _, g := range m.Guards {
		if g == nil {
			continue
		}
		if err := g.Check(s); err != nil {
			return err
		}
	}
	return nil
}

// StopLossGuard 总盈亏跌破止损阈值时触发。
type StopLossGuard struct {
	Threshold float64
}

func (g StopLossGuard) Check(s Snapshot) error {
	if s.TotalPnL < g.Threshold {
		return ErrStopLoss
	}
	return nil
}

// MaxLossGuard 总盈亏跌破最大亏损限额时触发。
type MaxLossGuard struct {
	Limit float64
}

func (g MaxLossGuard) Check(s Snapshot) error {
	if s.TotalPnL < g.Limit {
		return ErrMaxLoss
	}
	return nil
}

// PositionGuard 净仓位绝对值超过硬上限时触发。
type PositionGuard struct {
	MaxSize float64
}

func (g PositionGuard) Check(s Snapshot) error {
	if abs(s.Position) > g.MaxSize {
		return ErrPositionLimit
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
