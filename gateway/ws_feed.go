package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// QuoteHandler 接收行情推送。
type QuoteHandler interface {
	OnQuote(symbol string, price float64, ts time.Time)
}

// WSFeed 通过 WebSocket 订阅合约报价流并回调 QuoteHandler。
// 连接断开后按固定退避自动重连；循环由 ctx 终止。
type WSFeed struct {
	Endpoint  string // 例如 wss://quotes.example.com
	Symbols   []string
	Dialer    *websocket.Dialer
	Logger    *zap.Logger
	Reconnect time.Duration // 重连退避，默认 5s
}

// quoteMessage 行情流的线格式。
type quoteMessage struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Ts     int64   `json:"ts"` // Unix 毫秒
}

// NewWSFeed 创建行情流客户端。
func NewWSFeed(endpoint string, symbols []string, logger *zap.Logger) *WSFeed {
	return &WSFeed{
		Endpoint:  endpoint,
		Symbols:   symbols,
		Dialer:    websocket.DefaultDialer,
		Logger:    logger,
		Reconnect: 5 * time.Second,
	}
}

// Run 持续读取行情并回调 handler，直到 ctx 取消。
func (f *WSFeed) Run(ctx context.Context, handler QuoteHandler) error {
	if len(f.Symbols) == 0 {
		return fmt.Errorf("no symbols subscribed")
	}
	backoff := f.Reconnect
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	for {
		if err := f.readLoop(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if f.Logger != nil {
				f.Logger.Warn("quote feed disconnected", zap.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (f *WSFeed) readLoop(ctx context.Context, handler QuoteHandler) error {
	u, err := url.Parse(f.Endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("symbols", strings.Join(f.Symbols, ","))
	u.RawQuery = q.Encode()

	conn, _, err := f.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return Connectivity("ws_dial", err)
	}
	defer conn.Close()

	// ctx 取消时关闭连接以打断阻塞中的 ReadMessage；
	// readLoop 返回时经 done 回收监视协程，重连不会累积泄漏
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return Connectivity("ws_read", err)
		}
		var msg quoteMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			if f.Logger != nil {
				f.Logger.Debug("skip malformed quote", zap.ByteString("raw", raw))
			}
			continue
		}
		if msg.Symbol == "" || msg.Price <= 0 {
			continue
		}
		ts := time.UnixMilli(msg.Ts)
		if msg.Ts == 0 {
			ts = time.Now()
		}
		handler.OnQuote(msg.Symbol, msg.Price, ts)
	}
}
