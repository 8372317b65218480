package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"futures-arb-go/backtest"
	"futures-arb-go/journal"
	"futures-arb-go/pricing"
)

// 基差策略回测脚本。不指定 -data 时使用固定种子的合成序列。
// 用法：
//
//	go run ./cmd/backtest -days 365 -optimize -out result.json
//	go run ./cmd/backtest -data history.csv -minSpread 150 -exitSpread 30
func main() {
	dataPath := flag.String("data", "", "历史数据 CSV（timestamp,spot,futures），留空则合成")
	days := flag.Int("days", 365, "合成序列的天数")
	seed := flag.Int64("seed", 42, "合成序列的随机种子")
	capital := flag.Float64("capital", 1_000_000, "初始资金")
	minSpread := flag.Float64("minSpread", 150, "进场价差门槛（点）")
	exitSpread := flag.Float64("exitSpread", 30, "出场价差门槛（点）")
	maxHolding := flag.Int("maxHolding", 14, "最长持有天数")
	optimize := flag.Bool("optimize", false, "网格搜索最优参数")
	outPath := flag.String("out", "", "若指定则写入 JSON 结果")
	equityPath := flag.String("equity", "", "若指定则导出权益曲线 CSV")
	flag.Parse()

	records, err := loadRecords(*dataPath, *seed, *days)
	if err != nil {
		log.Fatalf("加载历史数据失败: %v", err)
	}
	fmt.Printf("历史序列: %d 笔\n", len(records))

	engine := backtest.NewEngine(pricing.DefaultCostModel(), *capital)

	if *optimize {
		runOptimize(engine, records, *maxHolding, *outPath)
		return
	}

	result, err := engine.Run(records, backtest.Params{
		MinSpread:      *minSpread,
		ExitSpread:     *exitSpread,
		MaxHoldingDays: *maxHolding,
	})
	if err != nil {
		log.Fatalf("回测失败: %v", err)
	}

	printResult(result)
	if *outPath != "" {
		writeJSON(*outPath, result)
	}
	if *equityPath != "" {
		writeEquityCurve(*equityPath, records, result)
	}
}

func runOptimize(engine *backtest.Engine, records []backtest.Record, maxHolding int, outPath string) {
	out, err := engine.Optimize(records, backtest.DefaultGrid(), maxHolding)
	if err != nil {
		log.Fatalf("参数寻优失败: %v", err)
	}

	fmt.Println("=== 网格搜索 ===")
	for _, run := range out.AllRuns {
		fmt.Printf("minSpread=%-4.0f exitSpread=%-3.0f trades=%-4d sharpe=%7.3f return=%7.2f%%\n",
			run.Params.MinSpread, run.Params.ExitSpread,
			run.TotalTrades, run.SharpeRatio, run.TotalReturnPercent)
	}
	fmt.Printf("\n最优参数: minSpread=%.0f exitSpread=%.0f\n", out.Best.MinSpread, out.Best.ExitSpread)
	printResult(out.Result)

	if outPath != "" {
		writeJSON(outPath, out)
	}
}

func printResult(r backtest.Result) {
	fmt.Println("=== 回测结果 ===")
	fmt.Printf("交易笔数:   %d\n", r.TotalTrades)
	fmt.Printf("胜率:       %.1f%%\n", r.WinRate*100)
	fmt.Printf("平均获利:   %.0f\n", r.AvgProfit)
	fmt.Printf("获利因子:   %.2f\n", r.ProfitFactor)
	fmt.Printf("最大回撤:   %.2f%%\n", r.MaxDrawdownPercent)
	fmt.Printf("Sharpe:     %.3f\n", r.SharpeRatio)
	fmt.Printf("平均持有:   %.1f 天\n", r.AvgHoldingDays)
	fmt.Printf("期末资金:   %.0f (%+.2f%%)\n", r.FinalCapital, r.TotalReturnPercent)
}

// loadRecords 读取 CSV 或产生合成序列。
func loadRecords(path string, seed int64, days int) ([]backtest.Record, error) {
	if path == "" {
		cfg := backtest.DefaultGenerateConfig()
		cfg.Seed = seed
		cfg.Days = days
		return backtest.Generate(cfg), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	var records []backtest.Record
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && row[0] == "timestamp" {
			continue // 表头
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("line %d: expected timestamp,spot,futures", line)
		}

		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		spot, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		futures, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, backtest.Record{
			Timestamp:    ts,
			SpotIndex:    spot,
			FuturesPrice: futures,
			Spread:       futures - spot,
		})
	}
	return records, nil
}

func writeJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("序列化结果失败: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatalf("写入结果失败: %v", err)
	}
	fmt.Printf("结果已写入 %s\n", path)
}

// writeEquityCurve 以每笔平仓时刻为节点导出权益曲线。
func writeEquityCurve(path string, records []backtest.Record, r backtest.Result) {
	points := make([]journal.EquityPoint, 0, len(r.EquityCurve))
	points = append(points, journal.EquityPoint{Timestamp: records[0].Timestamp, Equity: r.EquityCurve[0]})
	for i, trade := range r.Trades {
		points = append(points, journal.EquityPoint{Timestamp: trade.ExitTime, Equity: r.EquityCurve[i+1]})
	}

	if err := journal.WriteEquityCurveCSV(path, points); err != nil {
		log.Fatalf("导出权益曲线失败: %v", err)
	}
	fmt.Printf("权益曲线已写入 %s\n", path)
}
