package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-arb-go/pricing"
)

func hourly(spreads []float64) []Record {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := make([]Record, len(spreads))
	for i, s := range spreads {
		records[i] = Record{
			Timestamp:    start.Add(time.Duration(i) * time.Hour),
			SpotIndex:    21000,
			FuturesPrice: 21000 + s,
			Spread:       s,
		}
	}
	return records
}

func TestRunEmptySeries(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)
	_, err := e.Run(nil, DefaultParams())
	assert.Error(t, err)
}

func TestRunSingleConvergedTrade(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)

	// 170点进场，收敛到10点出场
	records := hourly([]float64{50, 170, 120, 10, 40})
	result, err := e.Run(records, DefaultParams())
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, 170.0, trade.EntrySpread)
	assert.Equal(t, 10.0, trade.ExitSpread)
	assert.Equal(t, "converged", trade.ExitReason)

	// (170−10)×200 − (120 + 21010×200×0.00002) = 32000 − 204.04
	assert.InDelta(t, 31795.96, trade.Profit, 0.01)
	assert.InDelta(t, 1_031_795.96, result.FinalCapital, 0.01)
	assert.Equal(t, 1.0, result.WinRate)
}

func TestRunMaxHoldingExit(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)

	// 价差始终不收敛，第14天按持有期限强制出场
	spreads := make([]float64, 24*15)
	for i := range spreads {
		spreads[i] = 160
	}
	result, err := e.Run(hourly(spreads), Params{MinSpread: 150, ExitSpread: 30, MaxHoldingDays: 14})
	require.NoError(t, err)

	require.NotEmpty(t, result.Trades)
	assert.Equal(t, "max-holding", result.Trades[0].ExitReason)
	assert.InDelta(t, 14.0, result.Trades[0].HoldingDays, 0.05)
}

func TestRunForcedCloseAtEnd(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)

	records := hourly([]float64{200, 180, 160})
	result, err := e.Run(records, DefaultParams())
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, "end-of-data", result.Trades[0].ExitReason)
}

func TestRunEntryBoundaryInclusive(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)

	// 价差恰好等于门槛时进场
	records := hourly([]float64{150, 20})
	result, err := e.Run(records, DefaultParams())
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, 150.0, result.Trades[0].EntrySpread)
}

func TestRunNegativeSpreadEntry(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)

	// 负价差按绝对值判断进场
	records := hourly([]float64{-180, -20})
	result, err := e.Run(records, DefaultParams())
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	// (−180 − (−20)) × 200 为亏损方向
	assert.Less(t, result.Trades[0].Profit, 0.0)
}

func TestRunDeterministic(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)
	records := Generate(DefaultGenerateConfig())

	r1, err := e.Run(records, DefaultParams())
	require.NoError(t, err)
	r2, err := e.Run(records, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, r1.Trades, r2.Trades)
	assert.Equal(t, r1.EquityCurve, r2.EquityCurve)
	assert.Equal(t, r1.SharpeRatio, r2.SharpeRatio)
}

func TestGenerateReproducible(t *testing.T) {
	a := Generate(DefaultGenerateConfig())
	b := Generate(DefaultGenerateConfig())
	require.Equal(t, len(a), len(b))
	assert.Equal(t, a, b)
	assert.Len(t, a, 365*24)

	other := DefaultGenerateConfig()
	other.Seed = 7
	c := Generate(other)
	assert.NotEqual(t, a[0].SpotIndex, c[0].SpotIndex)
}

func TestMaxDrawdown(t *testing.T) {
	// 峰值110回落到88：回撤20%
	dd := maxDrawdown([]float64{100, 110, 99, 88, 105})
	assert.InDelta(t, 0.2, dd, 1e-9)

	assert.Zero(t, maxDrawdown([]float64{100, 101, 102}))
}

func TestSharpeDegenerate(t *testing.T) {
	assert.Zero(t, sharpe([]float64{100}))
	assert.Zero(t, sharpe([]float64{100, 100, 100}))
}

func TestOptimizeSelectsBestSharpe(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)
	records := Generate(DefaultGenerateConfig())

	out, err := e.Optimize(records, DefaultGrid(), 14)
	require.NoError(t, err)

	assert.Len(t, out.AllRuns, 9)
	for _, run := range out.AllRuns {
		assert.LessOrEqual(t, run.SharpeRatio, out.Result.SharpeRatio)
	}
	assert.Equal(t, out.Best, out.Result.Params)
	assert.False(t, math.IsNaN(out.Result.SharpeRatio))
}

func TestOptimizeEmptyGrid(t *testing.T) {
	e := NewEngine(pricing.DefaultCostModel(), 1_000_000)
	_, err := e.Optimize(hourly([]float64{100}), Grid{}, 14)
	assert.Error(t, err)
}
