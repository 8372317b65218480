package pricing

import "math"

// CalendarConfig 跨月价差策略参数。
type CalendarConfig struct {
	Enabled        bool    `yaml:"enabled"`
	EntryThreshold float64 `yaml:"entryThreshold"` // 仅当 spread < 该值（逆价差）时进场
	TargetSpread   float64 `yaml:"targetSpread"`   // 出场目标价差
	NormalSpread   float64 `yaml:"normalSpread"`   // 历史常态价差（点）
	MaxHoldingDays int     `yaml:"maxHoldingDays"`
}

// DefaultCalendarConfig 返回默认参数。
func DefaultCalendarConfig() CalendarConfig {
	return CalendarConfig{
		Enabled:        false,
		EntryThreshold: 0,
		TargetSpread:   20,
		NormalSpread:   35,
		MaxHoldingDays: 14,
	}
}

// CalendarInputs 跨月价差输入。
type CalendarInputs struct {
	NearMonth float64
	NextMonth float64
}

// CalendarAnalysis 跨月价差分析结果。
type CalendarAnalysis struct {
	Spread       float64
	NormalSpread float64
	Deviation    float64
	GrossProfit  float64
	Cost         float64
	NetProfit    float64
	RiskScore    int
}

// AnalyzeCalendar 计算跨月价差套利机会。
// 次月正常应高于近月；出现逆价差（spread < 0）即为机会，
// 预期价差回归至历史常态值。
func (e *Engine) AnalyzeCalendar(in CalendarInputs, cfg CalendarConfig) CalendarAnalysis {
	spread := in.NextMonth - in.NearMonth

	target := cfg.NormalSpread - spread
	gross := math.Abs(target) * e.Costs.PointValue
	cost := e.Costs.CalendarCost()

	return CalendarAnalysis{
		Spread:       spread,
		NormalSpread: cfg.NormalSpread,
		Deviation:    spread - cfg.NormalSpread,
		GrossProfit:  gross,
		Cost:         cost,
		NetProfit:    gross - cost,
		RiskScore:    calendarRiskScore(spread),
	}
}
