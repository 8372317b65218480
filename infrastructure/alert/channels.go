package alert

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// kindTag 各通知类别的短标签，日志与控制台通道共用。
var kindTag = map[Kind]string{
	KindOpportunity:    "机会",
	KindTradeExecuted:  "成交",
	KindPositionClosed: "平仓",
	KindRiskAlert:      "风控",
	KindError:          "错误",
	KindDailySummary:   "日结",
}

func tagFor(kind Kind) string {
	if tag, ok := kindTag[kind]; ok {
		return tag
	}
	return string(kind)
}

// renderFields 以固定键序拼出附加字段，保证输出可比对。
func renderFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(" |")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

// LogChannel 日志告警通道
type LogChannel struct {
	logger *log.Logger
	name   string
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(name string, output *os.File) *LogChannel {
	if output == nil {
		output = os.Stdout
	}

	return &LogChannel{
		logger: log.New(output, "[ALERT] ", log.LstdFlags),
		name:   name,
	}
}

// Send 发送告警到日志，级别与类别都进标签
func (c *LogChannel) Send(alert Alert) error {
	c.logger.Printf("[%s][%s] %s%s",
		alert.Level, tagFor(alert.Kind), alert.Message, renderFields(alert.Fields))
	return nil
}

// Name 返回通道名称
func (c *LogChannel) Name() string {
	return c.name
}

// ConsoleChannel 控制台告警通道（彩色输出）
type ConsoleChannel struct {
	name string
}

// NewConsoleChannel 创建控制台告警通道
func NewConsoleChannel(name string) *ConsoleChannel {
	return &ConsoleChannel{
		name: name,
	}
}

// Send 发送告警到控制台，级别决定颜色，类别作为标签
func (c *ConsoleChannel) Send(alert Alert) error {
	const colorReset = "\033[0m"

	var colorCode string
	switch alert.Level {
	case "INFO":
		colorCode = "\033[32m" // 绿色
	case "WARNING":
		colorCode = "\033[33m" // 黄色
	case "ERROR":
		colorCode = "\033[31m" // 红色
	case "CRITICAL":
		colorCode = "\033[35m" // 紫色
	default:
		colorCode = colorReset
	}

	fmt.Printf("%s[%s]%s[%s] %s - %s%s\n",
		colorCode,
		alert.Level,
		colorReset,
		tagFor(alert.Kind),
		alert.Timestamp.Format("2006-01-02 15:04:05"),
		alert.Message,
		renderFields(alert.Fields),
	)
	return nil
}

// Name 返回通道名称
func (c *ConsoleChannel) Name() string {
	return c.name
}

// MockChannel 模拟告警通道（用于测试）。
// 告警可能来自循环协程，记录加锁。
type MockChannel struct {
	name string

	mu      sync.Mutex
	alerts  []Alert
	sendErr error
}

// NewMockChannel 创建模拟告警通道
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

// Send 记录告警（用于测试验证）
func (c *MockChannel) Send(alert Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

// Name 返回通道名称
func (c *MockChannel) Name() string {
	return c.name
}

// GetAlerts 获取所有接收到的告警
func (c *MockChannel) GetAlerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// OfKind 按类别过滤接收到的告警
func (c *MockChannel) OfKind(kind Kind) []Alert {
	var out []Alert
	for _, a := range c.GetAlerts() {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// OfLevel 按级别过滤接收到的告警
func (c *MockChannel) OfLevel(level string) []Alert {
	var out []Alert
	for _, a := range c.GetAlerts() {
		if a.Level == level {
			out = append(out, a)
		}
	}
	return out
}

// FailWith 之后的 Send 一律返回该错误；传 nil 恢复
func (c *MockChannel) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Clear 清空告警记录
func (c *MockChannel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = nil
}

// Count 返回接收到的告警数量
func (c *MockChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
