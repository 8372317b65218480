package gateway

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"futures-arb-go/market"
)

// SimGateway 模拟券商：行情来自 QuoteBoard，下单只做登记。
// 用于 dry-run 模式与测试；实盘网关通过相同接口接入。
type SimGateway struct {
	Board   *market.QuoteBoard
	Limiter RateLimiter // 委托限速，默认不限

	mu       sync.Mutex
	account  AccountSnapshot
	netPos   map[string]float64 // 成交累积的净口数，买正卖负
	orders   []SimOrder
	seq      int
	failNext error
}

// SimOrder 已登记的模拟委托。
type SimOrder struct {
	ID       string
	Symbol   string
	Side     string
	Quantity float64
	Price    float64 // 0 表示市价
	Ts       time.Time
}

// NewSimGateway 创建模拟网关。
func NewSimGateway(board *market.QuoteBoard) *SimGateway {
	if board == nil {
		board = market.NewQuoteBoard()
	}
	return &SimGateway{
		Board:   board,
		Limiter: NopLimiter{},
		netPos:  make(map[string]float64),
		account: AccountSnapshot{
			AvailableBalance: 1000000,
			TotalEquity:      1000000,
		},
	}
}

// SetAccount 设置帐户快照。
func (g *SimGateway) SetAccount(a AccountSnapshot) {
	g.mu.Lock()
	g.account = a
	g.mu.Unlock()
}

// SetPositions 覆盖券商侧持仓，测试对账场景用。
func (g *SimGateway) SetPositions(ps []BrokerPosition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.netPos = make(map[string]float64)
	for _, p := range ps {
		qty := p.Quantity
		if p.Direction == "short" {
			qty = -qty
		}
		g.netPos[p.Symbol] += qty
	}
}

// FailNextOrder 注入一次下单失败，测试用。
func (g *SimGateway) FailNextOrder(err error) {
	g.mu.Lock()
	g.failNext = err
	g.mu.Unlock()
}

// GetPrice 返回报价板上的最新价。
func (g *SimGateway) GetPrice(symbol string) (float64, error) {
	price, ok := g.Board.Price(symbol)
	if !ok {
		return 0, Connectivity("get_price", fmt.Errorf("%w: %s", ErrSymbolUnavailable, symbol))
	}
	return price, nil
}

// GetAccountSnapshot 返回当前帐户快照。
func (g *SimGateway) GetAccountSnapshot() (AccountSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.account, nil
}

// GetOpenPositions 由成交净口数汇总券商侧持仓视图。
func (g *SimGateway) GetOpenPositions() ([]BrokerPosition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]BrokerPosition, 0, len(g.netPos))
	for symbol, qty := range g.netPos {
		if qty == 0 {
			continue
		}
		p := BrokerPosition{Symbol: symbol, Direction: "long", Quantity: qty}
		if qty < 0 {
			p.Direction = "short"
			p.Quantity = -qty
		}
		if price, ok := g.Board.Price(symbol); ok {
			p.LastPrice = price
		}
		out = append(out, p)
	}
	return out, nil
}

// PlaceOrder 登记委托并返回编号，发送前先过限速器。
func (g *SimGateway) PlaceOrder(symbol, side string, quantity, price float64) (string, error) {
	if side != "buy" && side != "sell" {
		return "", fmt.Errorf("invalid side %q", side)
	}
	if quantity <= 0 {
		return "", errors.New("quantity must be > 0")
	}

	if g.Limiter != nil {
		g.Limiter.Wait()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext != nil {
		err := g.failNext
		g.failNext = nil
		return "", err
	}
	g.seq++
	if side == "buy" {
		g.netPos[symbol] += quantity
	} else {
		g.netPos[symbol] -= quantity
	}
	id := fmt.Sprintf("SIM-%06d", g.seq)
	g.orders = append(g.orders, SimOrder{
		ID:       id,
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Ts:       time.Now(),
	})
	return id, nil
}

// Orders 返回已登记的委托副本。
func (g *SimGateway) Orders() []SimOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]SimOrder(nil), g.orders...)
}
