package gateway

// 外部协作方的窄接口：行情、帐务与下单。
// 券商登入、报价订阅与委托回报的细节由各实现负责。

// AccountSnapshot 帐户快照。
type AccountSnapshot struct {
	AvailableBalance float64 `json:"available_balance"`
	MarginUsed       float64 `json:"margin_used"`
	TotalEquity      float64 `json:"total_equity"`
}

// BrokerPosition 券商侧的持仓视图，用于对账。
type BrokerPosition struct {
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"` // long / short
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	LastPrice float64 `json:"last_price"`
}

// MarketData 行情与帐务提供方。
type MarketData interface {
	GetPrice(symbol string) (float64, error)
	GetAccountSnapshot() (AccountSnapshot, error)
	GetOpenPositions() ([]BrokerPosition, error)
}

// Execution 下单网关。price 为 0 表示市价单。
// 返回委托编号。
type Execution interface {
	PlaceOrder(symbol, side string, quantity, price float64) (string, error)
}
