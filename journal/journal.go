// Package journal 将套利机会与成交记录落盘为扁平 JSON，
// 供外部报表与审计使用。无数据库，只有文件导出。
package journal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"futures-arb-go/pricing"
)

// OpportunityRecord 机会导出记录。
type OpportunityRecord struct {
	ID             string              `json:"id"`
	Strategy       string              `json:"strategy"`
	Timestamp      time.Time           `json:"timestamp"`
	Spread         float64             `json:"spread"`
	ExpectedProfit float64             `json:"expected_profit"`
	RiskScore      int                 `json:"risk_score"`
	Contracts      map[string]float64  `json:"contracts"`
	Actions        []pricing.LegAction `json:"actions"`
	Notes          string              `json:"notes"`
}

// TradeStatus 成交记录状态。
type TradeStatus string

const (
	StatusExecuted TradeStatus = "executed"
	StatusClosed   TradeStatus = "closed"
	StatusFailed   TradeStatus = "failed"
)

// TradeRecord 成交导出记录。
type TradeRecord struct {
	Timestamp      time.Time   `json:"timestamp"`
	OpportunityID  string      `json:"opportunity_id"`
	Strategy       string      `json:"strategy"`
	Quantity       int         `json:"quantity"`
	ExpectedProfit float64     `json:"expected_profit"`
	RiskScore      int         `json:"risk_score"`
	Status         TradeStatus `json:"status"`
}

// Journal 累积记录并导出到目录下的 JSON 文件。
type Journal struct {
	mu            sync.Mutex
	dir           string
	opportunities []OpportunityRecord
	trades        []TradeRecord
}

// New 创建日志帐，目录不存在时建立。
func New(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// RecordOpportunity 登记一笔套利机会。
func (j *Journal) RecordOpportunity(opp *pricing.Opportunity) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.opportunities = append(j.opportunities, OpportunityRecord{
		ID:             opp.ID,
		Strategy:       string(opp.Strategy),
		Timestamp:      opp.Timestamp,
		Spread:         opp.Spread,
		ExpectedProfit: opp.ExpectedProfit,
		RiskScore:      opp.RiskScore,
		Contracts:      opp.Contracts,
		Actions:        opp.Actions,
		Notes:          opp.Notes,
	})
}

// RecordTrade 登记一笔成交（或失败的尝试）。
func (j *Journal) RecordTrade(rec TradeRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, rec)
}

// Opportunities 返回已登记机会的副本。
func (j *Journal) Opportunities() []OpportunityRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]OpportunityRecord(nil), j.opportunities...)
}

// Trades 返回已登记成交的副本。
func (j *Journal) Trades() []TradeRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]TradeRecord(nil), j.trades...)
}

// Flush 将累积记录写为 opportunities.json 与 trades.json。
// 每次写入为完整数组，覆盖旧文件。
func (j *Journal) Flush() error {
	j.mu.Lock()
	opportunities := append([]OpportunityRecord(nil), j.opportunities...)
	trades := append([]TradeRecord(nil), j.trades...)
	j.mu.Unlock()

	if err := writeJSON(filepath.Join(j.dir, "opportunities.json"), opportunities); err != nil {
		return err
	}
	return writeJSON(filepath.Join(j.dir, "trades.json"), trades)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// EquityPoint 权益曲线上的一点。
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// WriteEquityCurveCSV 导出权益曲线，回测报告用。
func WriteEquityCurveCSV(path string, points []EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create equity curve file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "equity"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			p.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(p.Equity, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
