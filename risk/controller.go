package risk

import (
	"errors"
	"math"
	"sort"
	"sync"

	"futures-arb-go/gateway"
)

// 准入检查与熔断的原因标识。
const (
	ReasonOK                 = "ok"
	ReasonPositionCount      = "position-count-exceeded"
	ReasonPositionSize       = "position-size-exceeded"
	ReasonDailyLoss          = "daily-loss-breaker"
	ReasonInsufficientMargin = "insufficient-margin"
	ReasonDrawdown           = "drawdown-breaker"
	ReasonAutoTradingOff     = "auto-trading-disabled"
)

// ErrUnknownPosition 平仓时找不到对应持仓。
var ErrUnknownPosition = errors.New("unknown position")

// Controller 风险管理器：持有全部可变交易状态（持仓、当日盈亏、
// 权益、高水位），并执行准入与熔断检查。
// 状态只由决策循环单线程驱动；锁用于保护监控读取。
type Controller struct {
	mu     sync.RWMutex
	limits Limits
	sizing SizingConfig
	clock  Clock

	autoTrading bool

	dailyPnL    float64
	dailyTrades int
	positions   map[string]*Position
	history     []TradeRecord

	highWaterMark float64
	currentEquity float64
}

// NewController 创建风险管理器。
func NewController(limits Limits, sizing SizingConfig) *Controller {
	return &Controller{
		limits:      limits,
		sizing:      sizing,
		clock:       SystemClock,
		autoTrading: true,
		positions:   make(map[string]*Position),
	}
}

// SetClock 注入时钟，测试用。
func (c *Controller) SetClock(clk Clock) {
	c.mu.Lock()
	c.clock = clk
	c.mu.Unlock()
}

// SetAutoTrading 开关自动交易总闸。
func (c *Controller) SetAutoTrading(enabled bool) {
	c.mu.Lock()
	c.autoTrading = enabled
	c.mu.Unlock()
}

// Limits 返回当前风险限制。
func (c *Controller) Limits() Limits {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limits
}

// CanOpenPosition 开仓准入检查，依序执行，首个失败项给出原因。
// 不修改任何状态：相同输入与状态下重复调用结果一致。
func (c *Controller) CanOpenPosition(quantity int, snap gateway.AccountSnapshot) (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// 检查1: 仓位数量限制
	if len(c.positions) >= c.limits.MaxPositions {
		return false, ReasonPositionCount
	}

	// 检查2: 单笔规模限制
	if quantity > c.limits.MaxPositionSize {
		return false, ReasonPositionSize
	}

	// 检查3: 当日亏损限制
	if c.dailyPnL < -c.limits.DailyLossLimit {
		return false, ReasonDailyLoss
	}

	// 检查4: 保证金充足性，预留缓冲空间
	marginRequired := c.limits.MarginPerContract * float64(quantity)
	buffer := marginRequired * (c.limits.MarginBufferPercent / 100)
	if snap.AvailableBalance < marginRequired+buffer {
		return false, ReasonInsufficientMargin
	}

	// 检查5: 最大回撤限制
	if c.currentEquity > 0 && c.highWaterMark > 0 {
		drawdown := (c.highWaterMark - c.currentEquity) / c.highWaterMark * 100
		if drawdown > c.limits.MaxDrawdownPercent {
			return false, ReasonDrawdown
		}
	}

	return true, ReasonOK
}

// PositionSize 按保守 Kelly 公式计算建议口数，截断至单笔上限。
func (c *Controller) PositionSize(accountEquity float64) int {
	c.mu.RLock()
	s := c.sizing
	maxSize := c.limits.MaxPositionSize
	c.mu.RUnlock()

	// f* = (bp - q) / b，取其保守分数
	kelly := (s.WinRate*s.AvgWin - (1-s.WinRate)*s.AvgLoss) / s.AvgWin
	conservative := kelly * s.KellyScale
	if conservative <= 0 || s.AvgLoss <= 0 {
		return 0
	}

	riskAmount := accountEquity * s.RiskPerTrade
	size := int(math.Floor(riskAmount / (s.AvgLoss * conservative)))
	if size < 0 {
		size = 0
	}
	if size > maxSize {
		size = maxSize
	}
	return size
}

// CheckStopLoss 检查是否触发止损。
func (c *Controller) CheckStopLoss(entryPrice, currentPrice float64, dir Direction) bool {
	lossPoints := entryPrice - currentPrice
	if dir == DirectionShort {
		lossPoints = currentPrice - entryPrice
	}
	return lossPoints > c.Limits().StopLossPoints
}

// CheckTakeProfit 检查是否触发止盈。
func (c *Controller) CheckTakeProfit(entryPrice, currentPrice float64, dir Direction) bool {
	profitPoints := currentPrice - entryPrice
	if dir == DirectionShort {
		profitPoints = entryPrice - currentPrice
	}
	return profitPoints > c.Limits().TakeProfitPoints
}

// UpsertPosition 按 id 更新或登记持仓。
func (c *Controller) UpsertPosition(p Position) {
	c.mu.Lock()
	c.positions[p.ID] = &p
	c.mu.Unlock()
}

// ClosePosition 平仓：移除持仓并更新当日盈亏、权益与高水位。
func (c *Controller) ClosePosition(id string, pnl float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.positions[id]
	if !ok {
		return ErrUnknownPosition
	}
	delete(c.positions, id)

	c.dailyPnL += pnl
	c.dailyTrades++

	c.currentEquity += pnl
	if c.currentEquity > c.highWaterMark {
		c.highWaterMark = c.currentEquity
	}

	c.history = append(c.history, TradeRecord{
		Timestamp:  c.clock.Now(),
		PositionID: id,
		Strategy:   pos.Strategy,
		PnL:        pnl,
	})
	return nil
}

// Position 按 id 查询持仓。
func (c *Controller) Position(id string) (Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[id]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// OpenPositions 返回按进场时间排序的持仓副本。
func (c *Controller) OpenPositions() []Position {
	c.mu.RLock()
	out := make([]Position, 0, len(c.positions))
	for _, p := range c.positions {
		out = append(out, *p)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out
}

// OpenCount 返回当前持仓数。
func (c *Controller) OpenCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.positions)
}

// History 返回平仓历史副本。
func (c *Controller) History() []TradeRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]TradeRecord(nil), c.history...)
}

// SyncEquity 以帐户快照刷新权益；高水位只升不降。
func (c *Controller) SyncEquity(totalEquity float64) {
	c.mu.Lock()
	c.currentEquity = totalEquity
	if totalEquity > c.highWaterMark {
		c.highWaterMark = totalEquity
	}
	c.mu.Unlock()
}

// DailySummary 当日统计，换日重置时返回。
type DailySummary struct {
	PnL    float64
	Trades int
}

// ResetDailyStats 清零当日统计并返回前一日汇总。
// 由外部换日调度触发，控制器自身不计时。
func (c *Controller) ResetDailyStats() DailySummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := DailySummary{PnL: c.dailyPnL, Trades: c.dailyTrades}
	c.dailyPnL = 0
	c.dailyTrades = 0
	return summary
}

// IsTradingAllowed 熔断组合检查：当日亏损、最大回撤与总闸。
func (c *Controller) IsTradingAllowed() (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.dailyPnL < -c.limits.DailyLossLimit {
		return false, ReasonDailyLoss
	}
	if c.highWaterMark > 0 {
		drawdown := (c.highWaterMark - c.currentEquity) / c.highWaterMark * 100
		if drawdown > c.limits.MaxDrawdownPercent {
			return false, ReasonDrawdown
		}
	}
	if !c.autoTrading {
		return false, ReasonAutoTradingOff
	}
	return true, ReasonOK
}

// Report 风险报告快照。
type Report struct {
	OpenPositions          int     `json:"open_positions"`
	MaxPositions           int     `json:"max_positions"`
	DailyPnL               float64 `json:"daily_pnl"`
	DailyLossLimit         float64 `json:"daily_loss_limit"`
	RemainingLossCapacity  float64 `json:"remaining_loss_capacity"`
	TotalExposure          float64 `json:"total_exposure"`
	CurrentDrawdownPercent float64 `json:"current_drawdown_percent"`
	MaxDrawdownPercent     float64 `json:"max_drawdown_percent"`
	DailyTrades            int     `json:"daily_trades"`
	CurrentEquity          float64 `json:"current_equity"`
	HighWaterMark          float64 `json:"high_water_mark"`
}

// Snapshot 生成风险报告。
func (c *Controller) Snapshot() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	exposure := 0.0
	for _, p := range c.positions {
		exposure += c.limits.MarginPerContract * float64(p.Quantity)
	}

	drawdown := 0.0
	if c.highWaterMark > 0 {
		drawdown = (c.highWaterMark - c.currentEquity) / c.highWaterMark * 100
	}

	return Report{
		OpenPositions:          len(c.positions),
		MaxPositions:           c.limits.MaxPositions,
		DailyPnL:               c.dailyPnL,
		DailyLossLimit:         c.limits.DailyLossLimit,
		RemainingLossCapacity:  c.limits.DailyLossLimit + c.dailyPnL,
		TotalExposure:          exposure,
		CurrentDrawdownPercent: drawdown,
		MaxDrawdownPercent:     c.limits.MaxDrawdownPercent,
		DailyTrades:            c.dailyTrades,
		CurrentEquity:          c.currentEquity,
		HighWaterMark:          c.highWaterMark,
	}
}
