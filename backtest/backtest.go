// Package backtest 以历史价差序列重放基差策略，
// 复用与实盘相同的成本模型。
package backtest

import (
	"errors"
	"math"
	"time"

	"futures-arb-go/pricing"
)

// Record 历史序列中的一笔行情。
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	SpotIndex    float64   `json:"spot_index"`
	FuturesPrice float64   `json:"futures_price"`
	Spread       float64   `json:"spread"`
}

// Params 回测参数。
type Params struct {
	MinSpread      float64 `json:"min_spread"`
	ExitSpread     float64 `json:"exit_spread"`
	MaxHoldingDays int     `json:"max_holding_days"`
}

// DefaultParams 返回与实盘一致的默认参数。
func DefaultParams() Params {
	return Params{MinSpread: 150, ExitSpread: 30, MaxHoldingDays: 14}
}

// Trade 一笔完整的进出场。
type Trade struct {
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
	EntrySpread float64   `json:"entry_spread"`
	ExitSpread  float64   `json:"exit_spread"`
	Profit      float64   `json:"profit"`
	HoldingDays float64   `json:"holding_days"`
	ExitReason  string    `json:"exit_reason"` // converged / max-holding / end-of-data
}

// Result 单次回测结果，构建后不再修改。
type Result struct {
	Params Params  `json:"params"`
	Trades []Trade `json:"trades"`

	InitialCapital     float64   `json:"initial_capital"`
	FinalCapital       float64   `json:"final_capital"`
	EquityCurve        []float64 `json:"equity_curve"`
	TotalReturnPercent float64   `json:"total_return_percent"`

	TotalTrades        int     `json:"total_trades"`
	WinRate            float64 `json:"win_rate"`
	AvgProfit          float64 `json:"avg_profit"`
	AvgWin             float64 `json:"avg_win"`
	AvgLoss            float64 `json:"avg_loss"`
	ProfitFactor       float64 `json:"profit_factor"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	AvgHoldingDays     float64 `json:"avg_holding_days"`
}

// Engine 回测引擎。成本模型与实盘共用。
type Engine struct {
	Costs          pricing.CostModel
	InitialCapital float64
}

// NewEngine 创建回测引擎。
func NewEngine(costs pricing.CostModel, initialCapital float64) *Engine {
	if initialCapital <= 0 {
		initialCapital = 1_000_000
	}
	return &Engine{Costs: costs, InitialCapital: initialCapital}
}

// position 回测中的单一持仓，状态机 Flat → Open → Flat。
type position struct {
	entryTime   time.Time
	entrySpread float64
}

// Run 重放序列并结算全部交易。相同输入重复执行结果完全一致。
func (e *Engine) Run(records []Record, p Params) (Result, error) {
	if len(records) == 0 {
		return Result{}, errors.New("empty record series")
	}

	var trades []Trade
	var open *position
	capital := e.InitialCapital
	equity := []float64{capital}

	closeAt := func(rec Record, reason string) {
		profit := (open.entrySpread-rec.Spread)*e.Costs.PointValue - e.Costs.BasisCost(rec.FuturesPrice)
		holding := rec.Timestamp.Sub(open.entryTime).Hours() / 24

		capital += profit
		equity = append(equity, capital)
		trades = append(trades, Trade{
			EntryTime:   open.entryTime,
			ExitTime:    rec.Timestamp,
			EntrySpread: open.entrySpread,
			ExitSpread:  rec.Spread,
			Profit:      profit,
			HoldingDays: holding,
			ExitReason:  reason,
		})
		open = nil
	}

	for _, rec := range records {
		if open == nil {
			if math.Abs(rec.Spread) >= p.MinSpread {
				open = &position{entryTime: rec.Timestamp, entrySpread: rec.Spread}
			}
			continue
		}

		holdingDays := rec.Timestamp.Sub(open.entryTime).Hours() / 24
		switch {
		case math.Abs(rec.Spread) < p.ExitSpread:
			closeAt(rec, "converged")
		case holdingDays >= float64(p.MaxHoldingDays):
			closeAt(rec, "max-holding")
		}
	}

	// 序列结束时强制平仓
	if open != nil {
		closeAt(records[len(records)-1], "end-of-data")
	}

	return e.summarize(p, trades, equity), nil
}

// summarize 汇总交易列表与权益曲线的统计指标。
func (e *Engine) summarize(p Params, trades []Trade, equity []float64) Result {
	r := Result{
		Params:         p,
		Trades:         trades,
		InitialCapital: e.InitialCapital,
		FinalCapital:   equity[len(equity)-1],
		EquityCurve:    equity,
		TotalTrades:    len(trades),
	}
	r.TotalReturnPercent = (r.FinalCapital - r.InitialCapital) / r.InitialCapital * 100

	if len(trades) == 0 {
		return r
	}

	var wins, losses int
	var totalProfit, winSum, lossSum, holdingSum float64
	for _, t := range trades {
		totalProfit += t.Profit
		holdingSum += t.HoldingDays
		if t.Profit > 0 {
			wins++
			winSum += t.Profit
		} else {
			losses++
			lossSum += t.Profit
		}
	}

	r.WinRate = float64(wins) / float64(len(trades))
	r.AvgProfit = totalProfit / float64(len(trades))
	r.AvgHoldingDays = holdingSum / float64(len(trades))
	if wins > 0 {
		r.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		r.AvgLoss = lossSum / float64(losses)
	}
	if r.AvgLoss != 0 {
		r.ProfitFactor = math.Abs(r.AvgWin / r.AvgLoss)
	}

	r.MaxDrawdownPercent = maxDrawdown(equity) * 100
	r.SharpeRatio = sharpe(equity)
	return r
}

// maxDrawdown 权益曲线的最大回撤比例。
func maxDrawdown(equity []float64) float64 {
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe 以权益曲线的简单收益率计算年化 Sharpe 比率。
func sharpe(equity []float64) float64 {
	if len(equity) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] != 0 {
			returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
		}
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range returns {
		mean += v
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, v := range returns {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(252)
}
