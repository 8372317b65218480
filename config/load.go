package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"futures-arb-go/infrastructure/logger"
	"futures-arb-go/internal/engine"
	"futures-arb-go/pricing"
	"futures-arb-go/risk"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env        string              `yaml:"env"`
	Trading    TradingConfig       `yaml:"trading"`
	Risk       risk.Limits         `yaml:"risk"`
	Sizing     risk.SizingConfig   `yaml:"sizing"`
	Costs      pricing.CostModel   `yaml:"costs"`
	Strategies pricing.Config      `yaml:"strategies"`
	Feed       FeedConfig          `yaml:"feed"`
	Gateway    GatewayConfig       `yaml:"gateway"`
	Alerts     AlertConfig         `yaml:"alerts"`
	Logging    logger.Config       `yaml:"logging"`
	Metrics    MetricsConfig       `yaml:"metrics"`
	Journal    JournalConfig       `yaml:"journal"`
	Hours      engine.TradingHours `yaml:"tradingHours"`
}

// TradingConfig 决策循环的节奏与总闸。
type TradingConfig struct {
	ScanIntervalSec    int  `yaml:"scanIntervalSec"`    // 盘中扫描间隔（秒）
	IdleIntervalSec    int  `yaml:"idleIntervalSec"`    // 盘外休眠间隔
	PausedIntervalSec  int  `yaml:"pausedIntervalSec"`  // 暂停时休眠间隔
	BlockedIntervalSec int  `yaml:"blockedIntervalSec"` // 风控禁止时休眠间隔
	ErrorBackoffSec    int  `yaml:"errorBackoffSec"`    // 出错回退间隔
	EnableAutoTrading  bool `yaml:"enableAutoTrading"`
	DryRun             bool `yaml:"dryRun"`
}

// FeedConfig 行情订阅配置。
type FeedConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Symbols  []string `yaml:"symbols"`
}

// GatewayConfig 执行网关配置。
type GatewayConfig struct {
	Mode     string  `yaml:"mode"` // sim 或 live
	TickSize float64 `yaml:"tickSize"`

	// 委托限速（令牌桶），避免触发券商端流控；rate ≤ 0 表示不限
	OrderRatePerSec float64 `yaml:"orderRatePerSec"`
	OrderBurst      int     `yaml:"orderBurst"`
}

// AlertConfig 通知配置。
type AlertConfig struct {
	ThrottleSec int            `yaml:"throttleSec"`
	Telegram    TelegramConfig `yaml:"telegram"`
}

// TelegramConfig Telegram 通知设置，各类别可独立开关。
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatID"`

	NotifyOpportunity  bool `yaml:"notifyOpportunity"`
	NotifyTrade        bool `yaml:"notifyTrade"`
	NotifyRisk         bool `yaml:"notifyRisk"`
	NotifyDailySummary bool `yaml:"notifyDailySummary"`
}

// MetricsConfig Prometheus 指标配置。
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// JournalConfig 记录导出配置。
type JournalConfig struct {
	Dir string `yaml:"dir"`
}

// Default 返回可直接运行 sim 模式的默认配置。
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Trading: TradingConfig{
			ScanIntervalSec:    30,
			IdleIntervalSec:    300,
			PausedIntervalSec:  60,
			BlockedIntervalSec: 60,
			ErrorBackoffSec:    60,
			EnableAutoTrading:  true,
		},
		Risk:       risk.DefaultLimits(),
		Sizing:     risk.DefaultSizingConfig(),
		Costs:      pricing.DefaultCostModel(),
		Strategies: pricing.DefaultConfig(),
		Gateway:    GatewayConfig{Mode: "sim", TickSize: 1, OrderRatePerSec: 5, OrderBurst: 10},
		Alerts:     AlertConfig{ThrottleSec: 60},
		Logging:    logger.DefaultConfig(),
		Metrics:    MetricsConfig{Enabled: true, Addr: ":9090"},
		Journal:    JournalConfig{Dir: "journal"},
		Hours:      engine.DefaultTradingHours(),
	}
}

// Load reads YAML config from path and applies basic validation.
// 文件中省略的字段保留默认值。
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("ARB_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Alerts.Telegram.BotToken = v
	}
	if v := os.Getenv("ARB_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Alerts.Telegram.ChatID = v
	}
	return cfg, Validate(cfg)
}
