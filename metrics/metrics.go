// Package metrics provides Prometheus metrics for the arbitrage engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScanTotal 扫描次数
	ScanTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_scan_total",
		Help: "Total number of market scans performed",
	})

	// OpportunityTotal 发现的套利机会数，按策略分类
	OpportunityTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_opportunity_total",
		Help: "Total number of arbitrage opportunities detected",
	}, []string{"strategy"})

	// TradeTotal 已执行交易数
	TradeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_trade_total",
		Help: "Total number of executed arbitrage trades",
	})

	// RejectionTotal 风控拒绝次数，按原因分类
	RejectionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_risk_rejection_total",
		Help: "Total number of admissions rejected by risk checks",
	}, []string{"reason"})

	// SpreadGauge 最近一次扫描的价差，按策略分类
	SpreadGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arb_spread_points",
		Help: "Latest observed spread in index points",
	}, []string{"strategy"})

	// OpenPositions 当前持仓数
	OpenPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_open_positions",
		Help: "Number of currently open positions",
	})

	// DailyPnL 当日已实现盈亏
	DailyPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_daily_pnl",
		Help: "Realized profit and loss for the current trading day",
	})

	// EngineState 决策循环状态（0=stopped 1=running 2=paused）
	EngineState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_engine_state",
		Help: "Decision loop state (0=stopped, 1=running, 2=paused)",
	})
)

func init() {
	prometheus.MustRegister(
		ScanTotal,
		OpportunityTotal,
		TradeTotal,
		RejectionTotal,
		SpreadGauge,
		OpenPositions,
		DailyPnL,
		EngineState,
	)
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
