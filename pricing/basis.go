package pricing

import "math"

// BasisConfig 期现价差策略参数。
type BasisConfig struct {
	Enabled        bool    `yaml:"enabled"`
	MinSpread      float64 `yaml:"minSpread"`     // 进场门槛（点）
	ExitSpread     float64 `yaml:"exitSpread"`    // 出场目标（点）
	RiskFreeRate   float64 `yaml:"riskFreeRate"`  // 无风险利率
	DividendYield  float64 `yaml:"dividendYield"` // 股息殖利率
	MaxHoldingDays int     `yaml:"maxHoldingDays"`
}

// DefaultBasisConfig 返回默认参数。
func DefaultBasisConfig() BasisConfig {
	return BasisConfig{
		Enabled:        true,
		MinSpread:      150,
		ExitSpread:     30,
		RiskFreeRate:   0.015,
		DividendYield:  0.035,
		MaxHoldingDays: 14,
	}
}

// BasisInputs 期现价差输入。
type BasisInputs struct {
	FuturesPrice float64
	SpotIndex    float64
	DaysToExpiry int
}

// BasisAnalysis 期现价差分析结果。
type BasisAnalysis struct {
	Spread            float64
	TheoreticalSpread float64
	Deviation         float64
	GrossProfit       float64
	Cost              float64
	NetProfit         float64
	RiskScore         int
	DaysToExpiry      int
}

// AnalyzeBasis 计算期现价差套利机会。
// 理论价差按持有成本模型：spot × (rfr − dividend) × (days/365)；
// 假设价差在到期日收敛至 0。
func (e *Engine) AnalyzeBasis(in BasisInputs, cfg BasisConfig) BasisAnalysis {
	spread := in.FuturesPrice - in.SpotIndex

	theoretical := in.SpotIndex * (cfg.RiskFreeRate - cfg.DividendYield) *
		(float64(in.DaysToExpiry) / 365)
	deviation := spread - theoretical

	gross := math.Abs(spread) * e.Costs.PointValue
	cost := e.Costs.BasisCost(in.FuturesPrice)

	return BasisAnalysis{
		Spread:            spread,
		TheoreticalSpread: theoretical,
		Deviation:         deviation,
		GrossProfit:       gross,
		Cost:              cost,
		NetProfit:         gross - cost,
		RiskScore:         basisRiskScore(deviation, in.DaysToExpiry, spread),
		DaysToExpiry:      in.DaysToExpiry,
	}
}
