package risk

// Limits 风险限制参数。
type Limits struct {
	MaxPositions        int     `yaml:"maxPositions"`
	MaxPositionSize     int     `yaml:"maxPositionSize"`
	DailyLossLimit      float64 `yaml:"dailyLossLimit"`
	MaxDrawdownPercent  float64 `yaml:"maxDrawdownPercent"`
	MarginBufferPercent float64 `yaml:"marginBufferPercent"`
	StopLossPoints      float64 `yaml:"stopLossPoints"`
	TakeProfitPoints    float64 `yaml:"takeProfitPoints"`
	MarginPerContract   float64 `yaml:"marginPerContract"` // 台指期每口保证金（依交易所规定）
}

// DefaultLimits 返回台指期默认风险参数。
func DefaultLimits() Limits {
	return Limits{
		MaxPositions:        10,
		MaxPositionSize:     5,
		DailyLossLimit:      10000,
		MaxDrawdownPercent:  5.0,
		MarginBufferPercent: 20.0,
		StopLossPoints:      100,
		TakeProfitPoints:    200,
		MarginPerContract:   200000,
	}
}

// SizingConfig Kelly 仓位参数。胜率与盈亏估计为静态配置常数，
// 并非由交易历史拟合。
type SizingConfig struct {
	RiskPerTrade float64 `yaml:"riskPerTrade"` // 单笔交易风险比例
	WinRate      float64 `yaml:"winRate"`
	AvgWin       float64 `yaml:"avgWin"`
	AvgLoss      float64 `yaml:"avgLoss"`
	KellyScale   float64 `yaml:"kellyScale"` // 保守 Kelly 分数
}

// DefaultSizingConfig 返回默认仓位参数。
func DefaultSizingConfig() SizingConfig {
	return SizingConfig{
		RiskPerTrade: 0.02,
		WinRate:      0.75,
		AvgWin:       2500,
		AvgLoss:      1000,
		KellyScale:   0.25,
	}
}
