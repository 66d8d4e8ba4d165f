package risk

// 正态分位数乘数
const (
	varMultiplier95 = 1.645
	varMultiplier99 = 2.326
)

// ValueAtRisk 参数化 VaR：分位数乘数 × 波动率 × 仓位名义价值。
// confidence 支持 0.95 / 0.99，其余取 95% 分位。
func ValueAtRisk(confidence, volatility, positionValue float64) float64 {
	multiplier := varMultiplier95
	if confidence == 0.99 {
		multiplier = varMultiplier99
	}
	return multiplier * volatility * positionValue
}

// PositionRisk 仓位名义价值占最大仓位名义价值的比例；上限为 0 时返回 0。
func PositionRisk(positionValue, maxPositionValue float64) float64 {
	if maxPositionValue <= 0 {
		return 0
	}
	return positionValue / maxPositionValue
}
