package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"futures-arb-go/config"
	"futures-arb-go/gateway"
	"futures-arb-go/infrastructure/alert"
	"futures-arb-go/infrastructure/logger"
	"futures-arb-go/internal/engine"
	"futures-arb-go/journal"
	"futures-arb-go/market"
	"futures-arb-go/metrics"
	"futures-arb-go/pricing"
	"futures-arb-go/risk"
)

// arbd：台指期套利决策守护进程。
// 用法：
//
//	go run ./cmd/arbd -config configs/arb.yaml
func main() {
	cfgPath := flag.String("config", "configs/arb.yaml", "配置文件路径")
	dryRun := flag.Bool("dryRun", false, "仅扫描与记录，不真正下单")
	watch := flag.Bool("watch", true, "监听配置文件热更新")
	flag.Parse()

	// .env 可选，缺失时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *dryRun {
		cfg.Trading.DryRun = true
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer appLogger.Close()

	if cfg.Metrics.Enabled {
		metrics.StartMetricsServer(cfg.Metrics.Addr)
		appLogger.Info("Metrics server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	alertMgr := buildAlerts(cfg)
	jnl, err := journal.New(cfg.Journal.Dir)
	if err != nil {
		log.Fatalf("初始化日志帐失败: %v", err)
	}

	board := market.NewQuoteBoard()
	marketData, execution := buildGateway(cfg, board, appLogger)

	riskCtrl := risk.NewController(cfg.Risk, cfg.Sizing)
	riskCtrl.SetAutoTrading(cfg.Trading.EnableAutoTrading)

	loop, err := engine.New(engine.Config{
		ScanInterval:    time.Duration(cfg.Trading.ScanIntervalSec) * time.Second,
		IdleInterval:    time.Duration(cfg.Trading.IdleIntervalSec) * time.Second,
		PausedInterval:  time.Duration(cfg.Trading.PausedIntervalSec) * time.Second,
		BlockedInterval: time.Duration(cfg.Trading.BlockedIntervalSec) * time.Second,
		ErrorBackoff:    time.Duration(cfg.Trading.ErrorBackoffSec) * time.Second,
		Hours:           cfg.Hours,
		Strategies:      cfg.Strategies,
		DryRun:          cfg.Trading.DryRun,
	}, engine.Components{
		Pricing:  pricing.NewEngine(cfg.Costs),
		Risk:     riskCtrl,
		Market:   marketData,
		Executor: &engine.Executor{Gateway: execution, Logger: appLogger, TickSize: cfg.Gateway.TickSize},
		Alerts:   alertMgr,
		Journal:  jnl,
		Logger:   appLogger,
	})
	if err != nil {
		log.Fatalf("初始化决策循环失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// live 模式下启动行情订阅
	if cfg.Gateway.Mode == "live" && cfg.Feed.Endpoint != "" {
		feed := gateway.NewWSFeed(cfg.Feed.Endpoint, cfg.Feed.Symbols, appLogger.Logger)
		go func() {
			if err := feed.Run(ctx, board); err != nil {
				appLogger.Error("Quote feed stopped", zap.Error(err))
			}
		}()
	}

	if err := loop.Start(ctx); err != nil {
		log.Fatalf("启动决策循环失败: %v", err)
	}

	// 配置热更新：风控阈值即时生效需重启循环以外的组件时，
	// 只告警提示，不中断交易
	if *watch {
		watcher, err := config.NewWatcher(*cfgPath, config.DefaultWatchConfig(),
			func(newCfg config.AppConfig) {
				riskCtrl.SetAutoTrading(newCfg.Trading.EnableAutoTrading)
				appLogger.Info("Config reloaded",
					zap.Bool("auto_trading", newCfg.Trading.EnableAutoTrading))
			},
			func(err error) {
				appLogger.Error("Config reload failed", zap.Error(err))
			})
		if err != nil {
			appLogger.Warn("Config watcher unavailable", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			appLogger.Warn("Config watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	// systemd 就绪通知，非 systemd 环境下为空操作
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	appLogger.Info("Shutdown signal received")

	if err := loop.Stop(); err != nil {
		appLogger.Error("Failed to stop decision loop", zap.Error(err))
	}
	cancel()
}

// buildAlerts 按配置组装通知通道。
func buildAlerts(cfg config.AppConfig) *alert.Manager {
	channels := []alert.Channel{alert.NewLogChannel("log", os.Stdout)}

	if cfg.Alerts.Telegram.Enabled {
		tg := cfg.Alerts.Telegram
		channels = append(channels, alert.NewTelegramChannel("telegram", alert.TelegramConfig{
			BotToken:           tg.BotToken,
			ChatID:             tg.ChatID,
			NotifyOpportunity:  tg.NotifyOpportunity,
			NotifyTrade:        tg.NotifyTrade,
			NotifyRisk:         tg.NotifyRisk,
			NotifyDailySummary: tg.NotifyDailySummary,
		}))
	}

	throttle := time.Duration(cfg.Alerts.ThrottleSec) * time.Second
	if throttle <= 0 {
		throttle = time.Minute
	}
	return alert.NewManager(channels, throttle)
}

// buildGateway 按模式选择模拟或实盘网关。
func buildGateway(cfg config.AppConfig, board *market.QuoteBoard, l *logger.Logger) (gateway.MarketData, gateway.Execution) {
	sim := gateway.NewSimGateway(board)
	if cfg.Gateway.OrderRatePerSec > 0 {
		sim.Limiter = gateway.NewTokenBucketLimiter(cfg.Gateway.OrderRatePerSec, cfg.Gateway.OrderBurst)
	}

	switch cfg.Gateway.Mode {
	case "live":
		// 实盘券商网关尚未接入，live 模式目前只支持行情，
		// 下单仍走模拟网关
		l.Warn("Live execution gateway not wired, using sim execution")
		return sim, sim
	default:
		seedSimQuotes(board)
		return sim, sim
	}
}

// seedSimQuotes 为模拟盘填入一组起始报价。
func seedSimQuotes(board *market.QuoteBoard) {
	now := time.Now()
	board.OnQuote(pricing.SymbolMain, 21850, now)
	board.OnQuote(pricing.SymbolSpot, 21680, now)
	board.OnQuote(pricing.SymbolNearMonth, 21850, now)
	board.OnQuote(pricing.SymbolNextMonth, 21820, now)
	board.OnQuote(pricing.SymbolElectronics, 22000, now)
	board.OnQuote(pricing.SymbolFinance, 21500, now)
}
