package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// TelegramConfig Telegram 通道配置，各通知类别可独立开关。
type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string // 测试用，留空使用官方 API

	NotifyOpportunity  bool
	NotifyTrade        bool
	NotifyRisk         bool
	NotifyDailySummary bool
}

// TelegramChannel 经 Bot API 推送告警。
type TelegramChannel struct {
	config TelegramConfig
	client *resty.Client
	name   string
}

// NewTelegramChannel 创建 Telegram 告警通道
func NewTelegramChannel(name string, cfg TelegramConfig) *TelegramChannel {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)

	return &TelegramChannel{
		config: cfg,
		client: client,
		name:   name,
	}
}

// Send 推送告警。未开启对应类别时静默跳过，CRITICAL 恒发送。
func (c *TelegramChannel) Send(alert Alert) error {
	if alert.Level != "CRITICAL" && !c.wants(alert.Kind) {
		return nil
	}

	resp, err := c.client.R().
		SetFormData(map[string]string{
			"chat_id":    c.config.ChatID,
			"text":       c.format(alert),
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", c.config.BotToken))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram send: status %d", resp.StatusCode())
	}
	return nil
}

// Name 返回通道名称
func (c *TelegramChannel) Name() string {
	return c.name
}

// wants 按类别开关过滤。error 类别不设开关，恒发送。
func (c *TelegramChannel) wants(kind Kind) bool {
	switch kind {
	case KindOpportunity:
		return c.config.NotifyOpportunity
	case KindTradeExecuted, KindPositionClosed:
		return c.config.NotifyTrade
	case KindRiskAlert:
		return c.config.NotifyRisk
	case KindDailySummary:
		return c.config.NotifyDailySummary
	default:
		return true
	}
}

var kindEmoji = map[Kind]string{
	KindOpportunity:    "\U0001F50D", // 🔍
	KindTradeExecuted:  "✅",          // ✅
	KindPositionClosed: "\U0001F4B0", // 💰
	KindRiskAlert:      "⚠",          // ⚠
	KindError:          "\U0001F6A8", // 🚨
	KindDailySummary:   "\U0001F4CA", // 📊
}

// format 渲染 Telegram 消息正文。
func (c *TelegramChannel) format(alert Alert) string {
	var b strings.Builder

	emoji := kindEmoji[alert.Kind]
	if emoji == "" {
		emoji = "ℹ" // ℹ
	}
	fmt.Fprintf(&b, "%s <b>[%s]</b> %s\n", emoji, alert.Level, alert.Message)

	for k, v := range alert.Fields {
		fmt.Fprintf(&b, "%s: %v\n", k, v)
	}
	if !alert.Timestamp.IsZero() {
		b.WriteString(alert.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
