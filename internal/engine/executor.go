package engine

import (
	"fmt"

	"go.uber.org/zap"

	"futures-arb-go/gateway"
	"futures-arb-go/infrastructure/logger"
	"futures-arb-go/pricing"
)

// ExecError 腿单执行失败。Unhedged 为真表示补偿平仓也失败，
// 存在未对冲敞口，需要人工介入。
type ExecError struct {
	OpportunityID string
	FailedLeg     pricing.LegAction
	Unhedged      bool
	Err           error
}

func (e *ExecError) Error() string {
	if e.Unhedged {
		return fmt.Sprintf("execution of %s failed on leg %s/%s with unhedged exposure: %v",
			e.OpportunityID, e.FailedLeg.Side, e.FailedLeg.Symbol, e.Err)
	}
	return fmt.Sprintf("execution of %s failed on leg %s/%s, exposure flattened: %v",
		e.OpportunityID, e.FailedLeg.Side, e.FailedLeg.Symbol, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor 按机会的腿顺序下单，部分成交时发出反向市价单平掉敞口。
type Executor struct {
	Gateway  gateway.Execution
	Logger   *logger.Logger
	TickSize float64 // 限价偏移，向有利成交方向让一跳
}

// filledLeg 已成交腿，补偿时反向平掉。
type filledLeg struct {
	leg      pricing.LegAction
	quantity float64
	orderID  string
}

// Execute 以 quantity 口为基准执行机会的全部腿单。
// 任一腿失败后先补偿已成交腿再返回 ExecError。
func (x *Executor) Execute(opp *pricing.Opportunity, quantity int) ([]string, error) {
	var filled []filledLeg
	orderIDs := make([]string, 0, len(opp.Actions))

	for _, leg := range opp.Actions {
		legQty := float64(quantity) * leg.Weight
		price := x.limitPrice(opp, leg)

		orderID, err := x.Gateway.PlaceOrder(leg.Symbol, string(leg.Side), legQty, price)
		if err != nil {
			x.Logger.Error("腿单失败，开始补偿平仓",
				zap.String("opportunity_id", opp.ID),
				zap.String("symbol", leg.Symbol),
				zap.String("side", string(leg.Side)),
				zap.Error(err))
			unhedged := x.flatten(opp.ID, filled)
			return nil, &ExecError{
				OpportunityID: opp.ID,
				FailedLeg:     leg,
				Unhedged:      unhedged,
				Err:           err,
			}
		}

		filled = append(filled, filledLeg{leg: leg, quantity: legQty, orderID: orderID})
		orderIDs = append(orderIDs, orderID)
		x.Logger.Debug("腿单成交",
			zap.String("opportunity_id", opp.ID),
			zap.String("order_id", orderID),
			zap.String("symbol", leg.Symbol),
			zap.String("side", string(leg.Side)),
			zap.Float64("quantity", legQty),
			zap.Float64("price", price))
	}

	return orderIDs, nil
}

// Close 以市价反向平掉持仓的全部腿。任一腿失败时把已平腿重新建回，
// 持仓与实际敞口保持一致，调用方可在下个迭代整体重试；
// 重建也失败则标记未对冲敞口。
func (x *Executor) Close(positionID string, legs []pricing.LegAction, quantity int) error {
	var closed []filledLeg

	for _, leg := range legs {
		legQty := float64(quantity) * leg.Weight
		side := reverseSide(leg.Side)

		orderID, err := x.Gateway.PlaceOrder(leg.Symbol, string(side), legQty, 0)
		if err != nil {
			x.Logger.Error("平仓腿失败，重建已平腿",
				zap.String("position_id", positionID),
				zap.String("symbol", leg.Symbol),
				zap.String("side", string(side)),
				zap.Error(err))
			unhedged := x.flatten(positionID, closed)
			return &ExecError{
				OpportunityID: positionID,
				FailedLeg:     leg,
				Unhedged:      unhedged,
				Err:           err,
			}
		}

		// 记录实际成交方向，flatten 反向后即恢复原持仓
		closed = append(closed, filledLeg{
			leg:      pricing.LegAction{Side: side, Symbol: leg.Symbol, Weight: leg.Weight},
			quantity: legQty,
			orderID:  orderID,
		})
		x.Logger.Debug("平仓腿成交",
			zap.String("position_id", positionID),
			zap.String("order_id", orderID),
			zap.String("symbol", leg.Symbol),
			zap.String("side", string(side)),
			zap.Float64("quantity", legQty))
	}

	return nil
}

// limitPrice 从机会的合约价映射取限价，向成交方向让一跳。
// 没有参考价时退回市价单。
func (x *Executor) limitPrice(opp *pricing.Opportunity, leg pricing.LegAction) float64 {
	ref, ok := opp.Contracts[leg.Symbol]
	if !ok || ref <= 0 {
		return 0 // 市价
	}
	if leg.Side == pricing.SideBuy {
		return ref + x.TickSize
	}
	return ref - x.TickSize
}

// reverseSide 返回相反方向。
func reverseSide(s pricing.Side) pricing.Side {
	if s == pricing.SideSell {
		return pricing.SideBuy
	}
	return pricing.SideSell
}

// flatten 对已成交腿逐一发出反向市价单。
// 返回是否仍有未对冲敞口（任一补偿单失败）。
func (x *Executor) flatten(opportunityID string, filled []filledLeg) bool {
	unhedged := false
	for _, f := range filled {
		opposite := reverseSide(f.leg.Side)

		// 市价平仓，不重试
		if _, err := x.Gateway.PlaceOrder(f.leg.Symbol, string(opposite), f.quantity, 0); err != nil {
			unhedged = true
			x.Logger.Error("补偿平仓失败，存在未对冲敞口",
				zap.String("opportunity_id", opportunityID),
				zap.String("symbol", f.leg.Symbol),
				zap.String("side", string(opposite)),
				zap.Float64("quantity", f.quantity),
				zap.Error(err))
		}
	}
	return unhedged
}
