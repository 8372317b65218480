package pricing

import "math"

// TriangleConfig 三角套利策略参数。
type TriangleConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MinSpread         float64 `yaml:"minSpread"`         // 进场门槛（点）
	ExitSpread        float64 `yaml:"exitSpread"`        // 出场目标（点）
	ElectronicsWeight float64 `yaml:"electronicsWeight"` // 电子期指数编制权重
	FinanceWeight     float64 `yaml:"financeWeight"`     // 金融期指数编制权重
	MaxHoldingDays    int     `yaml:"maxHoldingDays"`
}

// DefaultTriangleConfig 返回默认参数。
func DefaultTriangleConfig() TriangleConfig {
	return TriangleConfig{
		Enabled:           false,
		MinSpread:         30,
		ExitSpread:        10,
		ElectronicsWeight: 0.65,
		FinanceWeight:     0.35,
		MaxHoldingDays:    7,
	}
}

// TriangleInputs 三角套利输入：台指期 vs 电子期 vs 金融期。
type TriangleInputs struct {
	Main        float64 // 台指期价格
	Electronics float64 // 电子期价格
	Finance     float64 // 金融期价格
}

// TriangleAnalysis 三角套利分析结果。
type TriangleAnalysis struct {
	Spread          float64
	TheoreticalMain float64
	ActualMain      float64
	GrossProfit     float64
	Cost            float64
	NetProfit       float64
	RiskScore       int
}

// AnalyzeTriangle 计算三角套利机会。
// 台指理论价按指数编制比例近似：电子期 × 0.65 + 金融期 × 0.35。
func (e *Engine) AnalyzeTriangle(in TriangleInputs, cfg TriangleConfig) TriangleAnalysis {
	theoretical := in.Electronics*cfg.ElectronicsWeight + in.Finance*cfg.FinanceWeight
	spread := in.Main - theoretical

	gross := math.Abs(spread) * e.Costs.PointValue
	cost := e.Costs.TriangleCost()

	return TriangleAnalysis{
		Spread:          spread,
		TheoreticalMain: theoretical,
		ActualMain:      in.Main,
		GrossProfit:     gross,
		Cost:            cost,
		NetProfit:       gross - cost,
		RiskScore:       triangleRiskScore(spread),
	}
}
