package pricing

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Config 汇总三种策略的参数。
type Config struct {
	Basis    BasisConfig    `yaml:"basis"`
	Calendar CalendarConfig `yaml:"calendar"`
	Triangle TriangleConfig `yaml:"triangle"`
}

// DefaultConfig 返回默认策略参数。
func DefaultConfig() Config {
	return Config{
		Basis:    DefaultBasisConfig(),
		Calendar: DefaultCalendarConfig(),
		Triangle: DefaultTriangleConfig(),
	}
}

// MarketSnapshot 单次扫描的行情切片，不同策略读取各自字段。
type MarketSnapshot struct {
	FuturesPrice float64
	SpotIndex    float64
	DaysToExpiry int

	NearMonth float64
	NextMonth float64

	Main        float64
	Electronics float64
	Finance     float64
}

// Engine 价差计算引擎。纯计算，自身无状态；
// Now 与 Entropy 可注入以便测试。
type Engine struct {
	Costs   CostModel
	Now     func() time.Time
	Entropy io.Reader
}

// NewEngine 创建价差计算引擎。
func NewEngine(costs CostModel) *Engine {
	return &Engine{
		Costs:   costs,
		Now:     time.Now,
		Entropy: ulid.DefaultEntropy(),
	}
}

// Generate 依据行情与策略参数产生套利机会；
// 未达进场门槛时返回 (nil, nil)。
func (e *Engine) Generate(v Variant, snap MarketSnapshot, cfg Config) (*Opportunity, error) {
	switch v {
	case VariantBasis:
		return e.generateBasis(snap, cfg.Basis), nil
	case VariantCalendar:
		return e.generateCalendar(snap, cfg.Calendar), nil
	case VariantTriangle:
		return e.generateTriangle(snap, cfg.Triangle), nil
	default:
		return nil, fmt.Errorf("unknown strategy variant %q", v)
	}
}

func (e *Engine) generateBasis(snap MarketSnapshot, cfg BasisConfig) *Opportunity {
	a := e.AnalyzeBasis(BasisInputs{
		FuturesPrice: snap.FuturesPrice,
		SpotIndex:    snap.SpotIndex,
		DaysToExpiry: snap.DaysToExpiry,
	}, cfg)

	if math.Abs(a.Spread) < cfg.MinSpread {
		return nil
	}

	now := e.Now()
	return &Opportunity{
		ID:             e.newID(VariantBasis, now),
		Strategy:       VariantBasis,
		Timestamp:      now,
		Spread:         a.Spread,
		Reference:      a.TheoreticalSpread,
		Deviation:      a.Deviation,
		ExpectedProfit: a.NetProfit,
		RiskScore:      a.RiskScore,
		Contracts: map[string]float64{
			SymbolMain: snap.FuturesPrice,
			SymbolSpot: snap.SpotIndex,
		},
		Actions: []LegAction{
			{Side: SideSell, Symbol: SymbolMain, Weight: 1},
			{Side: SideBuy, Symbol: SymbolProxy, Weight: 200}, // ETF 代理 1:200
		},
		Exit: ExitConditions{
			TargetSpread:   cfg.ExitSpread,
			MaxHoldingDays: cfg.MaxHoldingDays,
		},
		Notes: fmt.Sprintf("价差 %.1f 点，预期获利 NT$%.0f", a.Spread, a.NetProfit),
	}
}

func (e *Engine) generateCalendar(snap MarketSnapshot, cfg CalendarConfig) *Opportunity {
	a := e.AnalyzeCalendar(CalendarInputs{
		NearMonth: snap.NearMonth,
		NextMonth: snap.NextMonth,
	}, cfg)

	// 只在逆价差时进场
	if a.Spread >= cfg.EntryThreshold {
		return nil
	}

	now := e.Now()
	return &Opportunity{
		ID:             e.newID(VariantCalendar, now),
		Strategy:       VariantCalendar,
		Timestamp:      now,
		Spread:         a.Spread,
		Reference:      a.NormalSpread,
		Deviation:      a.Deviation,
		ExpectedProfit: a.NetProfit,
		RiskScore:      a.RiskScore,
		Contracts: map[string]float64{
			SymbolNearMonth: snap.NearMonth,
			SymbolNextMonth: snap.NextMonth,
		},
		Actions: []LegAction{
			{Side: SideBuy, Symbol: SymbolNextMonth, Weight: 1},
			{Side: SideSell, Symbol: SymbolNearMonth, Weight: 1},
		},
		Exit: ExitConditions{
			TargetSpread:   cfg.TargetSpread,
			MaxHoldingDays: cfg.MaxHoldingDays,
		},
		Notes: fmt.Sprintf("跨月逆价差 %.1f 点，预期收敛至 %.0f 点", a.Spread, a.NormalSpread),
	}
}

func (e *Engine) generateTriangle(snap MarketSnapshot, cfg TriangleConfig) *Opportunity {
	a := e.AnalyzeTriangle(TriangleInputs{
		Main:        snap.Main,
		Electronics: snap.Electronics,
		Finance:     snap.Finance,
	}, cfg)

	if math.Abs(a.Spread) < cfg.MinSpread {
		return nil
	}

	// 台指偏贵则卖台指买成分，偏便宜则反向。
	actions := []LegAction{
		{Side: SideSell, Symbol: SymbolMain, Weight: 1},
		{Side: SideBuy, Symbol: SymbolElectronics, Weight: cfg.ElectronicsWeight},
		{Side: SideBuy, Symbol: SymbolFinance, Weight: cfg.FinanceWeight},
	}
	if a.Spread < 0 {
		actions = []LegAction{
			{Side: SideBuy, Symbol: SymbolMain, Weight: 1},
			{Side: SideSell, Symbol: SymbolElectronics, Weight: cfg.ElectronicsWeight},
			{Side: SideSell, Symbol: SymbolFinance, Weight: cfg.FinanceWeight},
		}
	}

	now := e.Now()
	return &Opportunity{
		ID:             e.newID(VariantTriangle, now),
		Strategy:       VariantTriangle,
		Timestamp:      now,
		Spread:         a.Spread,
		Reference:      a.TheoreticalMain,
		Deviation:      a.Spread,
		ExpectedProfit: a.NetProfit,
		RiskScore:      a.RiskScore,
		Contracts: map[string]float64{
			SymbolMain:        snap.Main,
			SymbolElectronics: snap.Electronics,
			SymbolFinance:     snap.Finance,
		},
		Actions: actions,
		Exit: ExitConditions{
			TargetSpread:   cfg.ExitSpread,
			MaxHoldingDays: cfg.MaxHoldingDays,
		},
		Notes: fmt.Sprintf("三角价差 %.1f 点，理论台指 %.1f", a.Spread, a.TheoreticalMain),
	}
}

// newID 形如 BASIS-01J8...，前缀标识策略，后缀为按时间排序的 ULID。
func (e *Engine) newID(v Variant, now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), e.Entropy)
	return strings.ToUpper(string(v)) + "-" + id.String()
}
