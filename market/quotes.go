package market

import (
	"sync"
	"time"
)

// Quote 单一合约的最新报价。
type Quote struct {
	Price float64
	Ts    time.Time
}

// QuoteBoard 维护各合约的最新成交价并记录更新时间。
type QuoteBoard struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewQuoteBoard 创建报价板。
func NewQuoteBoard() *QuoteBoard {
	return &QuoteBoard{quotes: make(map[string]Quote)}
}

// OnQuote 更新报价；由行情流回调。
func (b *QuoteBoard) OnQuote(symbol string, price float64, ts time.Time) {
	b.mu.Lock()
	b.quotes[symbol] = Quote{Price: price, Ts: ts}
	b.mu.Unlock()
}

// Price 返回最新价；无数据时第二个返回值为 false。
func (b *QuoteBoard) Price(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[symbol]
	if !ok || q.Price <= 0 {
		return 0, false
	}
	return q.Price, true
}

// Staleness 返回距离上次更新的时间间隔；如无数据返回一个极大值。
func (b *QuoteBoard) Staleness(symbol string) time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[symbol]
	if !ok {
		return time.Hour * 24 * 365
	}
	return time.Since(q.Ts)
}

// Symbols 返回当前有报价的合约列表。
func (b *QuoteBoard) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.quotes))
	for s := range b.quotes {
		out = append(out, s)
	}
	return out
}
