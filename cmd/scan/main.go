package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"futures-arb-go/config"
	"futures-arb-go/internal/engine"
	"futures-arb-go/journal"
	"futures-arb-go/pricing"
)

// 单次扫描工具：用一组行情跑一遍三种策略的定价，打印结果。
// 适合在不起动决策循环的情况下验证参数与门槛。
//
//	go run ./cmd/scan -txf 21850 -spot 21680
func main() {
	configPath := flag.String("config", "", "配置文件路径，留空则使用默认配置")
	journalDir := flag.String("journal", "", "若指定则将机会写入该目录的 journal")
	txf := flag.Float64("txf", 21850, "台指期价格")
	spot := flag.Float64("spot", 21680, "现货指数")
	near := flag.Float64("near", 21850, "近月合约价格")
	next := flag.Float64("next", 21820, "次月合约价格")
	te := flag.Float64("te", 22000, "电子期价格")
	tf := flag.Float64("tf", 21500, "金融期价格")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadWithEnvOverrides(*configPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		cfg = loaded
	}

	now := time.Now()
	pe := pricing.NewEngine(cfg.Costs)

	snapshots := map[pricing.Variant]pricing.MarketSnapshot{
		pricing.VariantBasis: {
			FuturesPrice: *txf,
			SpotIndex:    *spot,
			DaysToExpiry: engine.DaysToExpiry(now),
		},
		pricing.VariantCalendar: {
			NearMonth: *near,
			NextMonth: *next,
		},
		pricing.VariantTriangle: {
			Main:        *txf,
			Electronics: *te,
			Finance:     *tf,
		},
	}

	variants := []pricing.Variant{pricing.VariantBasis, pricing.VariantCalendar, pricing.VariantTriangle}
	enabled := map[pricing.Variant]bool{
		pricing.VariantBasis:    cfg.Strategies.Basis.Enabled,
		pricing.VariantCalendar: cfg.Strategies.Calendar.Enabled,
		pricing.VariantTriangle: cfg.Strategies.Triangle.Enabled,
	}

	var jnl *journal.Journal
	if *journalDir != "" {
		j, err := journal.New(*journalDir)
		if err != nil {
			log.Fatalf("创建 journal 失败: %v", err)
		}
		jnl = j
	}

	found := 0
	for _, v := range variants {
		if !enabled[v] {
			fmt.Printf("[%s] 未启用\n", v)
			continue
		}
		opp, err := pe.Generate(v, snapshots[v], cfg.Strategies)
		if err != nil {
			log.Fatalf("定价失败: %v", err)
		}
		if opp == nil {
			fmt.Printf("[%s] 未达进场门槛\n", v)
			continue
		}
		found++
		printOpportunity(opp)
		if jnl != nil {
			jnl.RecordOpportunity(opp)
		}
	}

	if jnl != nil {
		if err := jnl.Flush(); err != nil {
			log.Fatalf("写入 journal 失败: %v", err)
		}
		fmt.Printf("已写入 %s\n", *journalDir)
	}
	fmt.Printf("扫描完成，共 %d 个机会\n", found)
}

func printOpportunity(opp *pricing.Opportunity) {
	fmt.Printf("[%s] %s\n", opp.Strategy, opp.ID)
	fmt.Printf("  价差:     %.2f（理论 %.2f，偏离 %.2f）\n", opp.Spread, opp.Reference, opp.Deviation)
	fmt.Printf("  预期获利: %.1f / 口\n", opp.ExpectedProfit)
	fmt.Printf("  风险评分: %d\n", opp.RiskScore)
	for _, leg := range opp.Actions {
		fmt.Printf("  %-4s %-5s x%.0f @ %.2f\n", leg.Side, leg.Symbol, leg.Weight, opp.Contracts[leg.Symbol])
	}
	if opp.Notes != "" {
		fmt.Printf("  备注: %s\n", opp.Notes)
	}
}
