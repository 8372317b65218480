package config

import "fmt"

// ConfigurationError 配置错误，启动时即致命。
type ConfigurationError string

func (e ConfigurationError) Error() string { return string(e) }

func invalid(format string, args ...interface{}) error {
	return ConfigurationError(fmt.Sprintf(format, args...))
}

// Validate ensures required fields are present and thresholds are sane.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return invalid("env is required")
	}

	if cfg.Trading.ScanIntervalSec <= 0 {
		return invalid("trading.scanIntervalSec must be > 0")
	}
	if cfg.Trading.IdleIntervalSec <= 0 {
		return invalid("trading.idleIntervalSec must be > 0")
	}

	if cfg.Risk.MaxPositions <= 0 {
		return invalid("risk.maxPositions must be > 0")
	}
	if cfg.Risk.MaxPositionSize <= 0 {
		return invalid("risk.maxPositionSize must be > 0")
	}
	if cfg.Risk.DailyLossLimit <= 0 {
		return invalid("risk.dailyLossLimit must be > 0")
	}
	if cfg.Risk.MaxDrawdownPercent <= 0 || cfg.Risk.MaxDrawdownPercent > 100 {
		return invalid("risk.maxDrawdownPercent must be in (0, 100]")
	}
	if cfg.Risk.MarginPerContract <= 0 {
		return invalid("risk.marginPerContract must be > 0")
	}

	if cfg.Sizing.WinRate <= 0 || cfg.Sizing.WinRate >= 1 {
		return invalid("sizing.winRate must be in (0, 1)")
	}
	if cfg.Sizing.AvgWin <= 0 || cfg.Sizing.AvgLoss <= 0 {
		return invalid("sizing.avgWin/avgLoss must be > 0")
	}
	if cfg.Sizing.RiskPerTrade <= 0 || cfg.Sizing.RiskPerTrade > 0.1 {
		return invalid("sizing.riskPerTrade must be in (0, 0.1]")
	}

	if cfg.Costs.PointValue <= 0 {
		return invalid("costs.pointValue must be > 0")
	}
	if cfg.Costs.FeePerLeg < 0 || cfg.Costs.TaxRate < 0 {
		return invalid("costs.feePerLeg/taxRate must be >= 0")
	}

	if cfg.Strategies.Basis.Enabled && cfg.Strategies.Basis.MinSpread <= 0 {
		return invalid("strategies.basis.minSpread must be > 0")
	}
	if cfg.Strategies.Triangle.Enabled {
		sum := cfg.Strategies.Triangle.ElectronicsWeight + cfg.Strategies.Triangle.FinanceWeight
		if sum <= 0.99 || sum >= 1.01 {
			return invalid("strategies.triangle weights must sum to 1, got %.3f", sum)
		}
	}

	switch cfg.Gateway.Mode {
	case "sim", "live":
	default:
		return invalid("gateway.mode must be sim or live, got %q", cfg.Gateway.Mode)
	}
	if cfg.Gateway.Mode == "live" && cfg.Feed.Endpoint == "" {
		return invalid("feed.endpoint is required in live mode")
	}

	if cfg.Alerts.Telegram.Enabled {
		if cfg.Alerts.Telegram.BotToken == "" || cfg.Alerts.Telegram.ChatID == "" {
			return invalid("alerts.telegram botToken/chatID is required (or env overrides)")
		}
	}

	if len(cfg.Hours.Sessions) == 0 {
		return invalid("tradingHours.sessions is required")
	}
	hours := cfg.Hours
	if err := hours.Compile(); err != nil {
		return invalid("tradingHours: %v", err)
	}

	return nil
}
