package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-arb-go/infrastructure/logger"
	"futures-arb-go/pricing"
)

// scriptedGateway 按序号注入失败，记录所有下单。
type scriptedGateway struct {
	orders  []scriptedOrder
	failAt  map[int]error // 第 n 笔（从1起算）返回错误
	counter int
}

type scriptedOrder struct {
	Symbol   string
	Side     string
	Quantity float64
	Price    float64
}

func (g *scriptedGateway) PlaceOrder(symbol, side string, quantity, price float64) (string, error) {
	g.counter++
	if err, ok := g.failAt[g.counter]; ok {
		return "", err
	}
	g.orders = append(g.orders, scriptedOrder{Symbol: symbol, Side: side, Quantity: quantity, Price: price})
	return fmt.Sprintf("ORD-%03d", g.counter), nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Outputs: []string{"stdout"}, Format: "json"})
	require.NoError(t, err)
	return l
}

func basisOpportunity() *pricing.Opportunity {
	return &pricing.Opportunity{
		ID:       "BASIS-TEST",
		Strategy: pricing.VariantBasis,
		Spread:   170,
		Contracts: map[string]float64{
			pricing.SymbolMain: 21850,
			pricing.SymbolSpot: 21680,
		},
		Actions: []pricing.LegAction{
			{Side: pricing.SideSell, Symbol: pricing.SymbolMain, Weight: 1},
			{Side: pricing.SideBuy, Symbol: pricing.SymbolProxy, Weight: 200},
		},
	}
}

func TestExecutorAllLegsFilled(t *testing.T) {
	gw := &scriptedGateway{}
	x := &Executor{Gateway: gw, Logger: testLogger(t), TickSize: 1}

	orderIDs, err := x.Execute(basisOpportunity(), 2)
	require.NoError(t, err)
	require.Len(t, orderIDs, 2)
	require.Len(t, gw.orders, 2)

	// 卖单向下让一跳，买单向上让一跳
	assert.Equal(t, pricing.SymbolMain, gw.orders[0].Symbol)
	assert.Equal(t, "sell", gw.orders[0].Side)
	assert.Equal(t, 2.0, gw.orders[0].Quantity)
	assert.Equal(t, 21849.0, gw.orders[0].Price)

	assert.Equal(t, pricing.SymbolProxy, gw.orders[1].Symbol)
	assert.Equal(t, "buy", gw.orders[1].Side)
	assert.Equal(t, 400.0, gw.orders[1].Quantity)
}

func TestExecutorCompensatesOnLegFailure(t *testing.T) {
	gw := &scriptedGateway{failAt: map[int]error{2: errors.New("rejected")}}
	x := &Executor{Gateway: gw, Logger: testLogger(t), TickSize: 1}

	_, err := x.Execute(basisOpportunity(), 1)
	require.Error(t, err)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.False(t, execErr.Unhedged)
	assert.Equal(t, pricing.SymbolProxy, execErr.FailedLeg.Symbol)

	// 腿1成交 + 补偿单：买回已卖出的主腿（市价）
	require.Len(t, gw.orders, 2)
	comp := gw.orders[1]
	assert.Equal(t, pricing.SymbolMain, comp.Symbol)
	assert.Equal(t, "buy", comp.Side)
	assert.Equal(t, 1.0, comp.Quantity)
	assert.Equal(t, 0.0, comp.Price)
}

func TestExecutorUnhedgedWhenCompensationFails(t *testing.T) {
	gw := &scriptedGateway{failAt: map[int]error{
		2: errors.New("rejected"),
		3: errors.New("gateway down"),
	}}
	x := &Executor{Gateway: gw, Logger: testLogger(t), TickSize: 1}

	_, err := x.Execute(basisOpportunity(), 1)
	require.Error(t, err)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.True(t, execErr.Unhedged)
	assert.Contains(t, execErr.Error(), "unhedged")
}

func TestExecutorCloseAllLegs(t *testing.T) {
	gw := &scriptedGateway{}
	x := &Executor{Gateway: gw, Logger: testLogger(t), TickSize: 1}

	err := x.Close("BASIS-TEST", basisOpportunity().Actions, 2)
	require.NoError(t, err)
	require.Len(t, gw.orders, 2)

	// 平仓腿方向与开仓相反，市价
	assert.Equal(t, pricing.SymbolMain, gw.orders[0].Symbol)
	assert.Equal(t, "buy", gw.orders[0].Side)
	assert.Equal(t, 2.0, gw.orders[0].Quantity)
	assert.Equal(t, 0.0, gw.orders[0].Price)

	assert.Equal(t, pricing.SymbolProxy, gw.orders[1].Symbol)
	assert.Equal(t, "sell", gw.orders[1].Side)
	assert.Equal(t, 400.0, gw.orders[1].Quantity)
}

func TestExecutorCloseRestoresOnLegFailure(t *testing.T) {
	gw := &scriptedGateway{failAt: map[int]error{2: errors.New("rejected")}}
	x := &Executor{Gateway: gw, Logger: testLogger(t), TickSize: 1}

	err := x.Close("BASIS-TEST", basisOpportunity().Actions, 1)
	require.Error(t, err)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.False(t, execErr.Unhedged)
	assert.Equal(t, pricing.SymbolProxy, execErr.FailedLeg.Symbol)

	// 腿1已买回平仓 + 重建单：再卖出主腿，恢复原持仓
	require.Len(t, gw.orders, 2)
	rebuild := gw.orders[1]
	assert.Equal(t, pricing.SymbolMain, rebuild.Symbol)
	assert.Equal(t, "sell", rebuild.Side)
	assert.Equal(t, 1.0, rebuild.Quantity)
	assert.Equal(t, 0.0, rebuild.Price)
}

func TestExecutorCloseUnhedgedWhenRebuildFails(t *testing.T) {
	gw := &scriptedGateway{failAt: map[int]error{
		2: errors.New("rejected"),
		3: errors.New("gateway down"),
	}}
	x := &Executor{Gateway: gw, Logger: testLogger(t), TickSize: 1}

	err := x.Close("BASIS-TEST", basisOpportunity().Actions, 1)
	require.Error(t, err)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.True(t, execErr.Unhedged)
}

func TestExecutorMarketOrderWithoutReference(t *testing.T) {
	gw := &scriptedGateway{}
	x := &Executor{Gateway: gw, Logger: testLogger(t), TickSize: 1}

	opp := basisOpportunity()
	delete(opp.Contracts, pricing.SymbolProxy)

	_, err := x.Execute(opp, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, gw.orders[1].Price) // 无参考价退回市价
}
