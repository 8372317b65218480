package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"futures-arb-go/gateway"
	"futures-arb-go/infrastructure/alert"
	"futures-arb-go/infrastructure/logger"
	"futures-arb-go/journal"
	"futures-arb-go/metrics"
	"futures-arb-go/pricing"
	"futures-arb-go/risk"
)

// State 决策循环状态
type State int

const (
	// StateStopped 停止状态
	StateStopped State = iota
	// StateRunning 运行状态
	StateRunning
	// StatePaused 暂停状态
	StatePaused
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// Config 决策循环配置
type Config struct {
	ScanInterval    time.Duration // 盘中扫描间隔
	IdleInterval    time.Duration // 盘外休眠间隔
	PausedInterval  time.Duration // 暂停时休眠间隔
	BlockedInterval time.Duration // 风控禁止时休眠间隔
	ErrorBackoff    time.Duration // 出错后回退间隔

	Hours      TradingHours   // 交易时段
	Strategies pricing.Config // 策略参数
	DryRun     bool           // 只扫描不下单
}

// Components 决策循环依赖组件
type Components struct {
	Pricing  *pricing.Engine
	Risk     *risk.Controller
	Market   gateway.MarketData
	Executor *Executor
	Alerts   *alert.Manager
	Journal  *journal.Journal
	Logger   *logger.Logger
}

// DecisionLoop 扫描-决策-执行循环。单一逻辑线程驱动：
// 扫描、准入与下单都在循环协程内顺序执行，风险状态不跨协程共享。
type DecisionLoop struct {
	config Config

	pricing  *pricing.Engine
	risk     *risk.Controller
	market   gateway.MarketData
	executor *Executor
	alerts   *alert.Manager
	journal  *journal.Journal
	logger   *logger.Logger

	clock risk.Clock

	// 状态
	state State
	mu    sync.RWMutex

	// 控制通道
	stopChan chan struct{}
	doneChan chan struct{}

	// 换日检测
	currentDay int

	// 平仓补偿失败、需要人工处理的持仓，不再自动重试
	manual map[string]struct{}

	// 统计信息
	stats Statistics
}

// Statistics 循环统计信息
type Statistics struct {
	StartTime                time.Time
	TotalScans               int64
	TotalOpportunities       int64
	TotalTrades              int64
	TotalErrors              int64
	CumulativeExpectedProfit float64
	LastScanTime             time.Time
	mu                       sync.RWMutex
}

// New 创建决策循环
func New(cfg Config, components Components) (*DecisionLoop, error) {
	if err := validateComponents(components); err != nil {
		return nil, fmt.Errorf("invalid components: %w", err)
	}

	// 设置默认间隔
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 30 * time.Second
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 300 * time.Second
	}
	if cfg.PausedInterval <= 0 {
		cfg.PausedInterval = 60 * time.Second
	}
	if cfg.BlockedInterval <= 0 {
		cfg.BlockedInterval = 60 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 60 * time.Second
	}

	if len(cfg.Hours.Sessions) == 0 {
		cfg.Hours = DefaultTradingHours()
	}
	if err := cfg.Hours.Compile(); err != nil {
		return nil, fmt.Errorf("invalid trading hours: %w", err)
	}

	return &DecisionLoop{
		config:   cfg,
		pricing:  components.Pricing,
		risk:     components.Risk,
		market:   components.Market,
		executor: components.Executor,
		alerts:   components.Alerts,
		journal:  components.Journal,
		logger:   components.Logger,
		clock:    risk.SystemClock,
		state:    StateStopped,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		manual:   make(map[string]struct{}),
	}, nil
}

// SetClock 注入时钟，测试用。
func (l *DecisionLoop) SetClock(clk risk.Clock) {
	l.mu.Lock()
	l.clock = clk
	l.mu.Unlock()
}

// Start 启动循环
func (l *DecisionLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateStopped {
		l.mu.Unlock()
		return fmt.Errorf("loop already started (state: %s)", l.state)
	}
	l.stopChan = make(chan struct{})
	l.doneChan = make(chan struct{})
	l.state = StateRunning
	l.stats.StartTime = time.Now()
	l.currentDay = l.dayKey(l.clock.Now())
	l.mu.Unlock()

	l.logger.Info("Decision loop starting",
		zap.Duration("scan_interval", l.config.ScanInterval),
		zap.Bool("dry_run", l.config.DryRun),
		zap.String("timezone", l.config.Hours.Timezone))

	go l.run(ctx)

	metrics.EngineState.Set(float64(StateRunning))
	return nil
}

// Stop 停止循环，等待当前迭代完成。
func (l *DecisionLoop) Stop() error {
	l.mu.Lock()
	if l.state == StateStopped {
		l.mu.Unlock()
		return nil // 幂等
	}
	l.mu.Unlock()

	l.logger.Info("Decision loop stopping...")

	select {
	case <-l.stopChan:
	default:
		close(l.stopChan)
	}

	select {
	case <-l.doneChan:
	case <-time.After(10 * time.Second):
		l.logger.Warn("Timeout waiting for decision loop to stop")
	}

	l.mu.Lock()
	l.state = StateStopped
	l.mu.Unlock()

	if l.journal != nil {
		if err := l.journal.Flush(); err != nil {
			l.logger.Error("Failed to flush journal", zap.Error(err))
		}
	}

	metrics.EngineState.Set(float64(StateStopped))

	stats := l.GetStatistics()
	l.logger.Info("Decision loop stopped",
		zap.Int64("total_scans", stats.TotalScans),
		zap.Int64("total_opportunities", stats.TotalOpportunities),
		zap.Int64("total_trades", stats.TotalTrades),
		zap.Int64("total_errors", stats.TotalErrors),
		zap.Float64("cumulative_expected_profit", stats.CumulativeExpectedProfit),
		zap.Duration("uptime", time.Since(stats.StartTime)))
	return nil
}

// Pause 暂停扫描与下单，循环继续走动。
func (l *DecisionLoop) Pause() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateRunning {
		return fmt.Errorf("loop not running (state: %s)", l.state)
	}
	l.state = StatePaused
	metrics.EngineState.Set(float64(StatePaused))
	l.logger.Info("Decision loop paused")
	return nil
}

// Resume 恢复运行
func (l *DecisionLoop) Resume() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StatePaused {
		return fmt.Errorf("loop not paused (state: %s)", l.state)
	}
	l.state = StateRunning
	metrics.EngineState.Set(float64(StateRunning))
	l.logger.Info("Decision loop resumed")
	return nil
}

// GetState 获取循环状态
func (l *DecisionLoop) GetState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// GetStatistics 获取统计信息快照
func (l *DecisionLoop) GetStatistics() Statistics {
	l.stats.mu.RLock()
	defer l.stats.mu.RUnlock()
	return Statistics{
		StartTime:                l.stats.StartTime,
		TotalScans:               l.stats.TotalScans,
		TotalOpportunities:       l.stats.TotalOpportunities,
		TotalTrades:              l.stats.TotalTrades,
		TotalErrors:              l.stats.TotalErrors,
		CumulativeExpectedProfit: l.stats.CumulativeExpectedProfit,
		LastScanTime:             l.stats.LastScanTime,
	}
}

// run 主事件循环。停止信号只在迭代边界生效，
// 进行中的迭代总是执行完毕，不会留下执行到一半的交易。
func (l *DecisionLoop) run(ctx context.Context) {
	defer close(l.doneChan)

	for {
		interval := l.iterate()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.logger.Info("Context done, stopping decision loop")
			return
		case <-l.stopChan:
			timer.Stop()
			l.logger.Info("Stop signal received")
			return
		case <-timer.C:
		}
	}
}

// iterate 执行一次完整迭代，返回到下一次迭代的休眠时长。
func (l *DecisionLoop) iterate() time.Duration {
	now := l.clock.Now()

	// 换日重置当日统计
	l.maybeRollDay(now)

	l.mu.RLock()
	state := l.state
	l.mu.RUnlock()

	if state == StatePaused {
		return l.config.PausedInterval
	}

	if !l.config.Hours.Contains(now) {
		l.logger.Debug("Outside trading hours", zap.Time("now", now))
		return l.config.IdleInterval
	}

	// 先对账与处理持仓出场，再考虑新开仓
	l.reconcilePositions()
	l.checkExits(now)

	allowed, reason := l.risk.IsTradingAllowed()
	if !allowed {
		// 风控禁止是策略性跳过，不是错误
		l.logger.LogRisk("trading_blocked", map[string]interface{}{"reason": reason})
		metrics.RejectionTotal.WithLabelValues(reason).Inc()
		return l.config.BlockedInterval
	}

	if l.risk.OpenCount() >= l.risk.Limits().MaxPositions {
		l.logger.Debug("Position slots full, skip scanning")
		return l.config.ScanInterval
	}

	if err := l.scanAndTrade(now); err != nil {
		l.recordError()
		var connErr *gateway.ConnectivityError
		if errors.As(err, &connErr) {
			l.logger.Warn("Connectivity error, retry next tick", zap.Error(err))
		} else {
			l.logger.Error("Iteration failed", zap.Error(err))
		}
		return l.config.ErrorBackoff
	}

	return l.config.ScanInterval
}

// scanAndTrade 扫描全部启用策略，择优执行至多一笔交易。
func (l *DecisionLoop) scanAndTrade(now time.Time) error {
	l.stats.mu.Lock()
	l.stats.TotalScans++
	l.stats.LastScanTime = now
	l.stats.mu.Unlock()
	metrics.ScanTotal.Inc()

	opportunities := l.scan(now)
	if len(opportunities) == 0 {
		return nil
	}

	// 按风险评分降序排序，同分保持发现顺序
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].RiskScore > opportunities[j].RiskScore
	})
	best := opportunities[0]

	snap, err := l.market.GetAccountSnapshot()
	if err != nil {
		return gateway.Connectivity("get account snapshot", err)
	}
	l.risk.SyncEquity(snap.TotalEquity)

	quantity := l.risk.PositionSize(snap.TotalEquity)
	if quantity < 1 {
		l.logger.Info("Position sizing produced zero quantity, skip",
			zap.String("opportunity_id", best.ID))
		return nil
	}

	// 执行前以最新帐户快照再次确认准入
	if ok, reason := l.risk.CanOpenPosition(quantity, snap); !ok {
		l.logger.LogRisk("admission_rejected", map[string]interface{}{
			"opportunity_id": best.ID,
			"reason":         reason,
			"quantity":       quantity,
		})
		metrics.RejectionTotal.WithLabelValues(reason).Inc()
		return nil
	}

	if l.config.DryRun {
		l.logger.Info("Dry-run: trade skipped",
			zap.String("opportunity_id", best.ID),
			zap.Int("quantity", quantity),
			zap.Float64("expected_profit", best.ExpectedProfit))
		return nil
	}

	return l.execute(best, quantity, now)
}

// scan 对每个启用的策略调用价差引擎，单一策略失败不影响其余。
func (l *DecisionLoop) scan(now time.Time) []*pricing.Opportunity {
	var found []*pricing.Opportunity

	for _, v := range l.enabledVariants() {
		snap, err := l.buildSnapshot(v, now)
		if err != nil {
			l.logger.Warn("Market data unavailable for strategy",
				zap.String("strategy", string(v)), zap.Error(err))
			continue
		}

		opp, err := l.pricing.Generate(v, snap, l.config.Strategies)
		if err != nil {
			l.logger.Error("Strategy scan failed",
				zap.String("strategy", string(v)), zap.Error(err))
			l.recordError()
			continue
		}
		if opp == nil {
			continue
		}

		found = append(found, opp)
		l.stats.mu.Lock()
		l.stats.TotalOpportunities++
		l.stats.mu.Unlock()
		metrics.OpportunityTotal.WithLabelValues(string(v)).Inc()
		metrics.SpreadGauge.WithLabelValues(string(v)).Set(opp.Spread)

		l.logger.LogOpportunity("detected", opp.ID, map[string]interface{}{
			"strategy":        string(v),
			"spread":          opp.Spread,
			"expected_profit": opp.ExpectedProfit,
			"risk_score":      opp.RiskScore,
		})
		if l.journal != nil {
			l.journal.RecordOpportunity(opp)
		}
		if l.alerts != nil {
			_ = l.alerts.Notify(alert.KindOpportunity, opp.Notes, map[string]interface{}{
				"id":              opp.ID,
				"strategy":        string(v),
				"spread":          opp.Spread,
				"expected_profit": opp.ExpectedProfit,
			})
		}
	}

	return found
}

// execute 下单并登记持仓。
func (l *DecisionLoop) execute(opp *pricing.Opportunity, quantity int, now time.Time) error {
	orderIDs, err := l.executor.Execute(opp, quantity)
	if err != nil {
		var execErr *ExecError
		if errors.As(err, &execErr) && execErr.Unhedged {
			// 补偿失败，敞口未对冲，需人工介入
			if l.alerts != nil {
				_ = l.alerts.SendCritical("补偿平仓失败，存在未对冲敞口", map[string]interface{}{
					"opportunity_id": opp.ID,
					"failed_leg":     execErr.FailedLeg.Symbol,
				})
			}
		}
		if l.journal != nil {
			l.journal.RecordTrade(journal.TradeRecord{
				Timestamp:      now,
				OpportunityID:  opp.ID,
				Strategy:       string(opp.Strategy),
				Quantity:       quantity,
				ExpectedProfit: opp.ExpectedProfit,
				RiskScore:      opp.RiskScore,
				Status:         journal.StatusFailed,
			})
		}
		return err
	}

	l.risk.UpsertPosition(positionFromOpportunity(opp, quantity, now))

	l.stats.mu.Lock()
	l.stats.TotalTrades++
	l.stats.CumulativeExpectedProfit += opp.ExpectedProfit * float64(quantity)
	l.stats.mu.Unlock()
	metrics.TradeTotal.Inc()
	metrics.OpenPositions.Set(float64(l.risk.OpenCount()))

	l.logger.LogTrade("executed", map[string]interface{}{
		"opportunity_id": opp.ID,
		"strategy":       string(opp.Strategy),
		"quantity":       quantity,
		"order_ids":      orderIDs,
	})
	if l.journal != nil {
		l.journal.RecordTrade(journal.TradeRecord{
			Timestamp:      now,
			OpportunityID:  opp.ID,
			Strategy:       string(opp.Strategy),
			Quantity:       quantity,
			ExpectedProfit: opp.ExpectedProfit,
			RiskScore:      opp.RiskScore,
			Status:         journal.StatusExecuted,
		})
	}
	if l.alerts != nil {
		_ = l.alerts.Notify(alert.KindTradeExecuted, opp.Notes, map[string]interface{}{
			"opportunity_id": opp.ID,
			"strategy":       string(opp.Strategy),
			"quantity":       quantity,
		})
	}
	return nil
}

// reconcilePositions 对照券商侧持仓与本地登记的净口数。
// 不一致说明有腿在系统外被动过（断线补偿、人工砍仓），
// 只告警不自动修正；接口故障时跳过，下一轮再对。
func (l *DecisionLoop) reconcilePositions() {
	broker, err := l.market.GetOpenPositions()
	if err != nil {
		l.logger.Warn("Position reconciliation skipped", zap.Error(err))
		return
	}

	net := make(map[string]float64)
	for _, p := range broker {
		qty := p.Quantity
		if p.Direction == string(risk.DirectionShort) {
			qty = -qty
		}
		net[p.Symbol] += qty
	}
	for _, pos := range l.risk.OpenPositions() {
		for _, leg := range pos.Legs {
			qty := float64(pos.Quantity) * leg.Weight
			if leg.Side == pricing.SideSell {
				qty = -qty
			}
			net[leg.Symbol] -= qty
		}
	}

	for symbol, diff := range net {
		if abs(diff) < 1e-6 {
			continue
		}
		l.logger.Warn("Broker position mismatch",
			zap.String("symbol", symbol),
			zap.Float64("broker_minus_local", diff))
		if l.alerts != nil {
			_ = l.alerts.Notify(alert.KindRiskAlert,
				fmt.Sprintf("持仓对账不一致：%s", symbol),
				map[string]interface{}{
					"symbol":             symbol,
					"broker_minus_local": diff,
				})
		}
	}
}

// checkExits 逐一检查持仓的出场条件：止损、止盈、价差收敛与持有期限。
func (l *DecisionLoop) checkExits(now time.Time) {
	for _, pos := range l.risk.OpenPositions() {
		if l.isManual(pos.ID) {
			continue
		}
		spread, price, err := l.currentSpread(pos, now)
		if err != nil {
			l.logger.Warn("Exit check skipped, market data unavailable",
				zap.String("position_id", pos.ID), zap.Error(err))
			continue
		}

		pos.CurrentPrice = price
		l.risk.UpsertPosition(pos)
		l.logger.Debug("Position refreshed",
			zap.String("position_id", pos.ID),
			zap.Float64("spread", spread),
			zap.Float64("unrealized_pnl", pos.UnrealizedPnL(l.pricing.Costs.PointValue)))

		reason := ""
		switch {
		case l.risk.CheckStopLoss(pos.EntryPrice, price, pos.Direction):
			reason = "stop-loss"
		case l.risk.CheckTakeProfit(pos.EntryPrice, price, pos.Direction):
			reason = "take-profit"
		case abs(spread) < pos.Exit.TargetSpread:
			reason = "spread-converged"
		case pos.Exit.MaxHoldingDays > 0 && now.Sub(pos.EntryTime) >= time.Duration(pos.Exit.MaxHoldingDays)*24*time.Hour:
			reason = "max-holding"
		}
		if reason == "" {
			continue
		}

		l.closePosition(pos, spread, price, reason, now)
	}
	metrics.OpenPositions.Set(float64(l.risk.OpenCount()))
}

// closePosition 平掉一笔持仓：发出反向腿单，结算盈亏并通知。
func (l *DecisionLoop) closePosition(pos risk.Position, spread, price float64, reason string, now time.Time) {
	if !l.config.DryRun && l.executor != nil {
		if err := l.executor.Close(pos.ID, pos.Legs, pos.Quantity); err != nil {
			l.recordError()

			var execErr *ExecError
			if errors.As(err, &execErr) && execErr.Unhedged {
				// 补偿重建失败，敞口状态未知：隔离该持仓，交人工处理
				l.markManual(pos.ID)
				l.logger.Error("Close compensation failed, position quarantined",
					zap.String("position_id", pos.ID),
					zap.Error(err))
				if l.alerts != nil {
					_ = l.alerts.SendCritical("平仓补偿失败，存在未对冲敞口，持仓已隔离待人工处理",
						map[string]interface{}{
							"position_id": pos.ID,
							"symbol":      execErr.FailedLeg.Symbol,
						})
				}
				return
			}

			// 已平腿已重建回，持仓保持原状，下个迭代整体重试
			l.logger.Error("Close failed, exposure restored",
				zap.String("position_id", pos.ID),
				zap.Error(err))
			return
		}
	}

	// 盈亏 = (进场价差 − 出场价差) × 点值 × 口数 − 成本
	pv := l.pricing.Costs.PointValue
	pnl := (pos.EntrySpread-spread)*pv*float64(pos.Quantity) -
		l.pricing.Costs.BasisCost(price)*float64(pos.Quantity)

	if err := l.risk.ClosePosition(pos.ID, pnl); err != nil {
		l.logger.Error("Failed to record close", zap.String("position_id", pos.ID), zap.Error(err))
		return
	}
	metrics.DailyPnL.Set(l.risk.Snapshot().DailyPnL)

	l.logger.LogTrade("closed", map[string]interface{}{
		"position_id": pos.ID,
		"reason":      reason,
		"pnl":         pnl,
	})
	if l.journal != nil {
		l.journal.RecordTrade(journal.TradeRecord{
			Timestamp:      now,
			OpportunityID:  pos.ID,
			Strategy:       string(pos.Strategy),
			Quantity:       pos.Quantity,
			ExpectedProfit: pnl,
			RiskScore:      0,
			Status:         journal.StatusClosed,
		})
	}
	if l.alerts != nil {
		if reason == "stop-loss" {
			_ = l.alerts.Notify(alert.KindRiskAlert,
				fmt.Sprintf("触发停损 %s：盈亏 NT$%.0f", pos.ID, pnl),
				map[string]interface{}{"position_id": pos.ID, "pnl": pnl})
		}
		_ = l.alerts.Notify(alert.KindPositionClosed,
			fmt.Sprintf("平仓 %s：%s，盈亏 NT$%.0f", pos.ID, reason, pnl),
			map[string]interface{}{
				"position_id": pos.ID,
				"reason":      reason,
				"pnl":         pnl,
			})
	}
}

// currentSpread 依持仓策略计算当前价差与主腿价格。
func (l *DecisionLoop) currentSpread(pos risk.Position, now time.Time) (float64, float64, error) {
	switch pos.Strategy {
	case pricing.VariantBasis:
		fut, err := l.price(pricing.SymbolMain)
		if err != nil {
			return 0, 0, err
		}
		spot, err := l.price(pricing.SymbolSpot)
		if err != nil {
			return 0, 0, err
		}
		return fut - spot, fut, nil

	case pricing.VariantCalendar:
		near, err := l.price(pricing.SymbolNearMonth)
		if err != nil {
			return 0, 0, err
		}
		next, err := l.price(pricing.SymbolNextMonth)
		if err != nil {
			return 0, 0, err
		}
		return next - near, next, nil

	case pricing.VariantTriangle:
		main, err := l.price(pricing.SymbolMain)
		if err != nil {
			return 0, 0, err
		}
		te, err := l.price(pricing.SymbolElectronics)
		if err != nil {
			return 0, 0, err
		}
		tf, err := l.price(pricing.SymbolFinance)
		if err != nil {
			return 0, 0, err
		}
		cfg := l.config.Strategies.Triangle
		theo := te*cfg.ElectronicsWeight + tf*cfg.FinanceWeight
		return main - theo, main, nil

	default:
		return 0, 0, fmt.Errorf("unknown strategy %q", pos.Strategy)
	}
}

// buildSnapshot 为单一策略拉取所需报价。
func (l *DecisionLoop) buildSnapshot(v pricing.Variant, now time.Time) (pricing.MarketSnapshot, error) {
	var snap pricing.MarketSnapshot
	var err error

	switch v {
	case pricing.VariantBasis:
		if snap.FuturesPrice, err = l.price(pricing.SymbolMain); err != nil {
			return snap, err
		}
		if snap.SpotIndex, err = l.price(pricing.SymbolSpot); err != nil {
			return snap, err
		}
		snap.DaysToExpiry = DaysToExpiry(now)

	case pricing.VariantCalendar:
		if snap.NearMonth, err = l.price(pricing.SymbolNearMonth); err != nil {
			return snap, err
		}
		if snap.NextMonth, err = l.price(pricing.SymbolNextMonth); err != nil {
			return snap, err
		}

	case pricing.VariantTriangle:
		if snap.Main, err = l.price(pricing.SymbolMain); err != nil {
			return snap, err
		}
		if snap.Electronics, err = l.price(pricing.SymbolElectronics); err != nil {
			return snap, err
		}
		if snap.Finance, err = l.price(pricing.SymbolFinance); err != nil {
			return snap, err
		}
	}

	return snap, nil
}

func (l *DecisionLoop) price(symbol string) (float64, error) {
	p, err := l.market.GetPrice(symbol)
	if err != nil {
		return 0, gateway.Connectivity("get price "+symbol, err)
	}
	return p, nil
}

// enabledVariants 返回启用的策略，顺序固定。
func (l *DecisionLoop) enabledVariants() []pricing.Variant {
	var out []pricing.Variant
	if l.config.Strategies.Basis.Enabled {
		out = append(out, pricing.VariantBasis)
	}
	if l.config.Strategies.Calendar.Enabled {
		out = append(out, pricing.VariantCalendar)
	}
	if l.config.Strategies.Triangle.Enabled {
		out = append(out, pricing.VariantTriangle)
	}
	return out
}

// maybeRollDay 换日时重置当日统计并发送日报。
func (l *DecisionLoop) maybeRollDay(now time.Time) {
	day := l.dayKey(now)

	l.mu.Lock()
	rolled := day != l.currentDay
	if rolled {
		l.currentDay = day
	}
	l.mu.Unlock()

	if !rolled {
		return
	}

	report := l.risk.Snapshot()
	summary := l.risk.ResetDailyStats()
	metrics.DailyPnL.Set(0)

	l.logger.Info("Daily stats reset",
		zap.Float64("pnl", summary.PnL),
		zap.Int("trades", summary.Trades))
	if l.alerts != nil {
		_ = l.alerts.Notify(alert.KindDailySummary,
			fmt.Sprintf("日结：交易 %d 笔，盈亏 NT$%.0f", summary.Trades, summary.PnL),
			map[string]interface{}{
				"pnl":              summary.PnL,
				"trades":           summary.Trades,
				"open_positions":   report.OpenPositions,
				"total_exposure":   report.TotalExposure,
				"drawdown_percent": report.CurrentDrawdownPercent,
			})
	}
}

// dayKey 以交易所时区的日历日作为换日依据。
func (l *DecisionLoop) dayKey(t time.Time) int {
	if l.config.Hours.loc != nil {
		t = t.In(l.config.Hours.loc)
	}
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func (l *DecisionLoop) recordError() {
	l.stats.mu.Lock()
	l.stats.TotalErrors++
	l.stats.mu.Unlock()
}

func (l *DecisionLoop) markManual(positionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.manual[positionID] = struct{}{}
}

func (l *DecisionLoop) isManual(positionID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.manual[positionID]
	return ok
}

// ReleaseManual 解除持仓隔离，人工处理完后恢复自动管理。
func (l *DecisionLoop) ReleaseManual(positionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.manual, positionID)
}

// positionFromOpportunity 由机会构造持仓记录。
// 方向取主腿（第一条腿）的方向。
func positionFromOpportunity(opp *pricing.Opportunity, quantity int, now time.Time) risk.Position {
	direction := risk.DirectionLong
	entryPrice := 0.0
	if len(opp.Actions) > 0 {
		main := opp.Actions[0]
		if main.Side == pricing.SideSell {
			direction = risk.DirectionShort
		}
		entryPrice = opp.Contracts[main.Symbol]
	}

	return risk.Position{
		ID:             opp.ID,
		Strategy:       opp.Strategy,
		Quantity:       quantity,
		EntryTime:      now,
		EntryPrice:     entryPrice,
		CurrentPrice:   entryPrice,
		Direction:      direction,
		EntrySpread:    opp.Spread,
		ExpectedProfit: opp.ExpectedProfit,
		Legs:           opp.Actions,
		Exit:           opp.Exit,
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// validateComponents 验证组件
func validateComponents(comp Components) error {
	if comp.Pricing == nil {
		return errors.New("pricing engine is required")
	}
	if comp.Risk == nil {
		return errors.New("risk controller is required")
	}
	if comp.Market == nil {
		return errors.New("market data is required")
	}
	if comp.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}
