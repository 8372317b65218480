package pricing

import (
	"time"
)

// Variant 套利策略类型。
type Variant string

const (
	// VariantBasis 期现价差套利
	VariantBasis Variant = "basis"
	// VariantCalendar 跨月价差套利
	VariantCalendar Variant = "calendar"
	// VariantTriangle 三角套利
	VariantTriangle Variant = "triangle"
)

// Side 腿方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// 合约代码。SymbolProxy 为现货端的 ETF 代理。
const (
	SymbolMain        = "TXF"  // 台指期
	SymbolSpot        = "SPOT" // 现货指数
	SymbolProxy       = "0050" // ETF 代理
	SymbolNearMonth   = "TXF1"
	SymbolNextMonth   = "TXF2"
	SymbolElectronics = "TE" // 电子期
	SymbolFinance     = "TF" // 金融期
)

// LegAction 单腿动作；Weight 是单位口数对应的下单量权重
// （例如期现套利中 1 口期货对应 200 单位 ETF 代理）。
type LegAction struct {
	Side   Side    `json:"side"`
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// ExitConditions 出场条件。
type ExitConditions struct {
	TargetSpread   float64 `json:"target_spread"`
	MaxHoldingDays int     `json:"max_holding_days"`
}

// Opportunity 套利机会，生成后不可变，最多被消费一次。
type Opportunity struct {
	ID             string             `json:"id"`
	Strategy       Variant            `json:"strategy"`
	Timestamp      time.Time          `json:"timestamp"`
	Spread         float64            `json:"spread"`
	Reference      float64            `json:"reference"` // 理论/常态价差
	Deviation      float64            `json:"deviation"`
	ExpectedProfit float64            `json:"expected_profit"` // 每口净预期获利
	RiskScore      int                `json:"risk_score"`      // 0-100，越高越安全
	Contracts      map[string]float64 `json:"contracts"`       // 合约 -> 价格
	Actions        []LegAction        `json:"actions"`
	Exit           ExitConditions     `json:"exit_conditions"`
	Notes          string             `json:"notes"`
}
