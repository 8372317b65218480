package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-arb-go/gateway"
	"futures-arb-go/infrastructure/alert"
	"futures-arb-go/journal"
	"futures-arb-go/market"
	"futures-arb-go/pricing"
	"futures-arb-go/risk"
)

func testClock(t *testing.T) *risk.FixedClock {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	return &risk.FixedClock{T: time.Date(2026, 3, 10, 10, 0, 0, 0, loc)}
}

// newTestLoop 组装一个盘中可成交的决策循环。
func newTestLoop(t *testing.T, board *market.QuoteBoard, gw *gateway.SimGateway) *DecisionLoop {
	t.Helper()

	strategies := pricing.DefaultConfig()
	strategies.Basis.Enabled = true

	jnl, err := journal.New(t.TempDir())
	require.NoError(t, err)

	loop, err := New(Config{Strategies: strategies}, Components{
		Pricing:  pricing.NewEngine(pricing.DefaultCostModel()),
		Risk:     risk.NewController(risk.DefaultLimits(), risk.DefaultSizingConfig()),
		Market:   gw,
		Executor: &Executor{Gateway: gw, Logger: testLogger(t), TickSize: 1},
		Alerts:   alert.NewManager(nil, time.Minute),
		Journal:  jnl,
		Logger:   testLogger(t),
	})
	require.NoError(t, err)

	clk := testClock(t)
	loop.SetClock(clk)
	loop.currentDay = loop.dayKey(clk.Now())
	return loop
}

func quoteBoard(ts time.Time) *market.QuoteBoard {
	board := market.NewQuoteBoard()
	board.OnQuote(pricing.SymbolMain, 21850, ts)
	board.OnQuote(pricing.SymbolSpot, 21680, ts)
	return board
}

func TestNewValidatesComponents(t *testing.T) {
	_, err := New(Config{}, Components{})
	assert.Error(t, err)
}

func TestStateTransitions(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	loop := newTestLoop(t, board, gw)

	assert.Equal(t, StateStopped, loop.GetState())
	assert.Error(t, loop.Pause()) // 未运行不能暂停

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, loop.Start(ctx))
	assert.Equal(t, StateRunning, loop.GetState())
	assert.Error(t, loop.Start(ctx)) // 重复启动

	require.NoError(t, loop.Pause())
	assert.Equal(t, StatePaused, loop.GetState())
	assert.Error(t, loop.Pause())

	require.NoError(t, loop.Resume())
	assert.Equal(t, StateRunning, loop.GetState())

	require.NoError(t, loop.Stop())
	assert.Equal(t, StateStopped, loop.GetState())
	assert.NoError(t, loop.Stop()) // 幂等
}

func TestIterateExecutesBestOpportunity(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	gw.SetAccount(gateway.AccountSnapshot{
		AvailableBalance: 2_000_000,
		TotalEquity:      2_000_000,
	})
	loop := newTestLoop(t, board, gw)

	interval := loop.iterate()
	assert.Equal(t, loop.config.ScanInterval, interval)

	// 价差170超过门槛150，应成交一笔：卖期指、买ETF两腿
	assert.Equal(t, 1, loop.risk.OpenCount())
	require.Len(t, gw.Orders(), 2)

	stats := loop.GetStatistics()
	assert.Equal(t, int64(1), stats.TotalScans)
	assert.Equal(t, int64(1), stats.TotalOpportunities)
	assert.Equal(t, int64(1), stats.TotalTrades)
	assert.Greater(t, stats.CumulativeExpectedProfit, 0.0)

	// 持仓记录方向与进场价差
	positions := loop.risk.OpenPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, risk.DirectionShort, positions[0].Direction)
	assert.Equal(t, 170.0, positions[0].EntrySpread)
	assert.Equal(t, 21850.0, positions[0].EntryPrice)

	// 日志帐登记机会与成交
	assert.Len(t, loop.journal.Opportunities(), 1)
	trades := loop.journal.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, journal.StatusExecuted, trades[0].Status)
}

func TestIterateSkipsOutsideHours(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	loop := newTestLoop(t, board, gw)

	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	clk := &risk.FixedClock{T: time.Date(2026, 3, 10, 14, 30, 0, 0, loc)}
	loop.SetClock(clk)
	loop.currentDay = loop.dayKey(clk.T)

	interval := loop.iterate()
	assert.Equal(t, loop.config.IdleInterval, interval)
	assert.Equal(t, int64(0), loop.GetStatistics().TotalScans)
}

func TestIteratePausedSkipsScan(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	loop := newTestLoop(t, board, gw)
	loop.state = StateRunning
	require.NoError(t, loop.Pause())

	interval := loop.iterate()
	assert.Equal(t, loop.config.PausedInterval, interval)
	assert.Equal(t, int64(0), loop.GetStatistics().TotalScans)
}

func TestIterateBlockedByRisk(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	loop := newTestLoop(t, board, gw)

	// 当日亏损超限触发熔断
	loop.risk.UpsertPosition(risk.Position{ID: "P1", Strategy: pricing.VariantBasis, Quantity: 1})
	require.NoError(t, loop.risk.ClosePosition("P1", -12000))

	interval := loop.iterate()
	assert.Equal(t, loop.config.BlockedInterval, interval)
	assert.Equal(t, int64(0), loop.GetStatistics().TotalScans)
}

func TestIterateDryRunDoesNotTrade(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	gw.SetAccount(gateway.AccountSnapshot{AvailableBalance: 2_000_000, TotalEquity: 2_000_000})
	loop := newTestLoop(t, board, gw)
	loop.config.DryRun = true

	loop.iterate()
	assert.Equal(t, 0, loop.risk.OpenCount())
	assert.Empty(t, gw.Orders())
	// 机会仍被发现与登记
	assert.Equal(t, int64(1), loop.GetStatistics().TotalOpportunities)
	assert.Len(t, loop.journal.Opportunities(), 1)
}

func TestIterateInsufficientMarginRejected(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	// 默认帐户100万不足以按上限5口开仓（需120万含缓冲）
	loop := newTestLoop(t, board, gw)

	loop.iterate()
	assert.Equal(t, 0, loop.risk.OpenCount())
	assert.Empty(t, gw.Orders())
}

func TestDayBoundaryResetsDailyStats(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	loop := newTestLoop(t, board, gw)

	loop.risk.UpsertPosition(risk.Position{ID: "P1", Strategy: pricing.VariantBasis, Quantity: 1})
	require.NoError(t, loop.risk.ClosePosition("P1", -500))

	// 跨日后第一轮迭代触发重置
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	loop.SetClock(&risk.FixedClock{T: time.Date(2026, 3, 11, 9, 0, 0, 0, loc)})

	loop.iterate()
	assert.Zero(t, loop.risk.Snapshot().DailyPnL)
	assert.Zero(t, loop.risk.Snapshot().DailyTrades)
}

func TestCheckExitsClosesConvergedSpread(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	gw.SetAccount(gateway.AccountSnapshot{AvailableBalance: 2_000_000, TotalEquity: 2_000_000})
	loop := newTestLoop(t, board, gw)

	loop.iterate()
	require.Equal(t, 1, loop.risk.OpenCount())

	// 价差收敛到门槛内后出场
	board.OnQuote(pricing.SymbolMain, 21700, time.Now())
	board.OnQuote(pricing.SymbolSpot, 21690, time.Now())

	loop.checkExits(loop.clock.Now())
	assert.Equal(t, 0, loop.risk.OpenCount())

	history := loop.risk.History()
	require.Len(t, history, 1)
	// (170−10)×200×5 − 成本，明显为正
	assert.Greater(t, history[0].PnL, 100_000.0)
}

func TestCheckExitsStopLoss(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	gw.SetAccount(gateway.AccountSnapshot{AvailableBalance: 2_000_000, TotalEquity: 2_000_000})
	loop := newTestLoop(t, board, gw)

	loop.iterate()
	require.Equal(t, 1, loop.risk.OpenCount())

	// 空头持仓，价格上涨超过止损点数
	board.OnQuote(pricing.SymbolMain, 21951, time.Now())
	board.OnQuote(pricing.SymbolSpot, 21680, time.Now())

	loop.checkExits(loop.clock.Now())
	assert.Equal(t, 0, loop.risk.OpenCount())
}

func TestCheckExitsRetryDoesNotDoubleClose(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	gw.SetAccount(gateway.AccountSnapshot{AvailableBalance: 2_000_000, TotalEquity: 2_000_000})
	loop := newTestLoop(t, board, gw)

	loop.iterate()
	require.Equal(t, 1, loop.risk.OpenCount())
	pos := loop.risk.OpenPositions()[0]

	// 平仓阶段换成按序注入失败的网关：第二腿（卖出代理）被拒
	script := &scriptedGateway{failAt: map[int]error{2: errors.New("rejected")}}
	loop.executor = &Executor{Gateway: script, Logger: testLogger(t), TickSize: 1}

	// 价差收敛触发出场
	board.OnQuote(pricing.SymbolMain, 21700, time.Now())
	board.OnQuote(pricing.SymbolSpot, 21690, time.Now())

	// 第一次：主腿已买回又被重建卖回，持仓保持原状
	loop.checkExits(loop.clock.Now())
	require.Equal(t, 1, loop.risk.OpenCount())

	// 第二次重试整体平仓成功
	loop.checkExits(loop.clock.Now())
	require.Equal(t, 0, loop.risk.OpenCount())

	// 主腿净买入恰为一次平仓的口数，重试不会重复买回
	var netBuy float64
	for _, o := range script.orders {
		if o.Symbol != pricing.SymbolMain {
			continue
		}
		if o.Side == "buy" {
			netBuy += o.Quantity
		} else {
			netBuy -= o.Quantity
		}
	}
	assert.Equal(t, float64(pos.Quantity), netBuy)
}

func TestCheckExitsQuarantinesUnhedgedClose(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	gw.SetAccount(gateway.AccountSnapshot{AvailableBalance: 2_000_000, TotalEquity: 2_000_000})
	loop := newTestLoop(t, board, gw)

	mock := alert.NewMockChannel("mock")
	loop.alerts = alert.NewManager([]alert.Channel{mock}, time.Minute)

	loop.iterate()
	require.Equal(t, 1, loop.risk.OpenCount())
	pos := loop.risk.OpenPositions()[0]

	// 第二腿失败且重建也失败：敞口状态未知
	script := &scriptedGateway{failAt: map[int]error{
		2: errors.New("rejected"),
		3: errors.New("gateway down"),
	}}
	loop.executor = &Executor{Gateway: script, Logger: testLogger(t), TickSize: 1}

	board.OnQuote(pricing.SymbolMain, 21700, time.Now())
	board.OnQuote(pricing.SymbolSpot, 21690, time.Now())

	loop.checkExits(loop.clock.Now())
	require.Equal(t, 1, loop.risk.OpenCount())
	assert.True(t, loop.isManual(pos.ID))
	require.Len(t, mock.OfLevel("CRITICAL"), 1)

	// 隔离后不再自动重试
	sent := script.counter
	loop.checkExits(loop.clock.Now())
	assert.Equal(t, sent, script.counter)
	assert.Equal(t, 1, loop.risk.OpenCount())

	// 人工处理完解除隔离后恢复自动平仓
	loop.ReleaseManual(pos.ID)
	loop.checkExits(loop.clock.Now())
	assert.Equal(t, 0, loop.risk.OpenCount())
}

func TestExecuteUnhedgedEntryRaisesCritical(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	gw.SetAccount(gateway.AccountSnapshot{AvailableBalance: 2_000_000, TotalEquity: 2_000_000})
	loop := newTestLoop(t, board, gw)

	mock := alert.NewMockChannel("mock")
	loop.alerts = alert.NewManager([]alert.Channel{mock}, time.Minute)

	// 第二腿失败、补偿也失败
	script := &scriptedGateway{failAt: map[int]error{
		2: errors.New("rejected"),
		3: errors.New("gateway down"),
	}}
	loop.executor = &Executor{Gateway: script, Logger: testLogger(t), TickSize: 1}

	loop.iterate()

	assert.Equal(t, 0, loop.risk.OpenCount())
	require.Len(t, mock.OfLevel("CRITICAL"), 1)

	trades := loop.journal.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, journal.StatusFailed, trades[0].Status)
}

func TestReconcileFlagsBrokerMismatch(t *testing.T) {
	board := quoteBoard(time.Now())
	gw := gateway.NewSimGateway(board)
	gw.SetAccount(gateway.AccountSnapshot{AvailableBalance: 2_000_000, TotalEquity: 2_000_000})
	loop := newTestLoop(t, board, gw)

	mock := alert.NewMockChannel("mock")
	loop.alerts = alert.NewManager([]alert.Channel{mock}, time.Minute)

	loop.iterate()
	require.Equal(t, 1, loop.risk.OpenCount())

	// 成交都经过同一网关，对账应一致
	loop.reconcilePositions()
	assert.Empty(t, mock.OfKind(alert.KindRiskAlert))

	// 模拟主腿在系统外被砍掉一口
	broker, err := gw.GetOpenPositions()
	require.NoError(t, err)
	for i := range broker {
		if broker[i].Symbol == pricing.SymbolMain {
			broker[i].Quantity--
		}
	}
	gw.SetPositions(broker)
	loop.reconcilePositions()

	alerts := mock.OfKind(alert.KindRiskAlert)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, pricing.SymbolMain)
}
