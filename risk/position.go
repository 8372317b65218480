package risk

import (
	"time"

	"futures-arb-go/pricing"
)

// Direction 持仓方向。
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Position 持仓。id 即产生它的机会 id；开仓后随行情刷新，平仓时移除。
type Position struct {
	ID             string                 `json:"id"`
	Strategy       pricing.Variant        `json:"strategy"`
	Quantity       int                    `json:"quantity"`
	EntryTime      time.Time              `json:"entry_time"`
	EntryPrice     float64                `json:"entry_price"`
	CurrentPrice   float64                `json:"current_price"`
	Direction      Direction              `json:"direction"`
	EntrySpread    float64                `json:"entry_spread"`
	ExpectedProfit float64                `json:"expected_profit"`
	Legs           []pricing.LegAction    `json:"legs"`
	Exit           pricing.ExitConditions `json:"exit_conditions"`
}

// UnrealizedPnL 以主腿价格变动估算的浮动盈亏。
func (p Position) UnrealizedPnL(pointValue float64) float64 {
	move := p.CurrentPrice - p.EntryPrice
	if p.Direction == DirectionShort {
		move = -move
	}
	return move * pointValue * float64(p.Quantity)
}

// TradeRecord 平仓历史记录，只追加。
type TradeRecord struct {
	Timestamp  time.Time       `json:"timestamp"`
	PositionID string          `json:"position_id"`
	Strategy   pricing.Variant `json:"strategy"`
	PnL        float64         `json:"pnl"`
}
