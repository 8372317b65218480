package pricing

// CostModel 交易成本模型：固定每腿手续费、比例交易税、每点价值。
type CostModel struct {
	PointValue float64 `yaml:"pointValue"` // 台指期每点 NT$200
	FeePerLeg  float64 `yaml:"feePerLeg"`  // 每口手续费约 NT$60
	TaxRate    float64 `yaml:"taxRate"`    // 期货交易税 0.00002
}

// DefaultCostModel 返回台指期默认成本参数。
func DefaultCostModel() CostModel {
	return CostModel{
		PointValue: 200,
		FeePerLeg:  60,
		TaxRate:    0.00002,
	}
}

// BasisCost 期现套利成本：一买一卖两腿手续费加期货端交易税。
func (c CostModel) BasisCost(futuresPrice float64) float64 {
	return c.FeePerLeg*2 + futuresPrice*c.PointValue*c.TaxRate
}

// CalendarCost 跨月套利成本：进出场各两腿，共 4 笔手续费。
func (c CostModel) CalendarCost() float64 {
	return c.FeePerLeg * 2 * 2
}

// TriangleCost 三角套利成本：3 笔手续费。
func (c CostModel) TriangleCost() float64 {
	return c.FeePerLeg * 3
}
