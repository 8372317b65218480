package alert

import (
	"fmt"
	"sync"
	"time"
)

// Kind 通知类别
type Kind string

const (
	KindOpportunity    Kind = "opportunity"
	KindTradeExecuted  Kind = "trade_executed"
	KindPositionClosed Kind = "position_closed"
	KindRiskAlert      Kind = "risk_alert"
	KindError          Kind = "error"
	KindDailySummary   Kind = "daily_summary"
)

// Alert 告警信息
type Alert struct {
	Level     string                 // "INFO", "WARNING", "ERROR", "CRITICAL"
	Kind      Kind                   // 通知类别
	Message   string                 // 告警消息
	Timestamp time.Time              // 告警时间
	Fields    map[string]interface{} // 附加字段
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Manager 告警管理器，同一告警扇出到全部通道
type Manager struct {
	channels []Channel
	throttle *Throttler
	mu       sync.RWMutex
}

// Throttler 告警限流器，按 key 限定最小发送间隔
type Throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	mu       sync.Mutex
}

// NewThrottler 创建限流器
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
	}
}

// Allow 检查该 key 是否允许发送，允许时记录本次时间
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Reset 重置单个 key 的限流记录
func (t *Throttler) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSent, key)
}

// Clear 清空所有限流记录
func (t *Throttler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// NewManager 创建告警管理器
func NewManager(channels []Channel, throttleInterval time.Duration) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
	}
}

// SendAlert 发送告警。类别+级别+消息构成限流 key，
// 同一条告警在限流窗口内只发一次。
func (m *Manager) SendAlert(alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	key := fmt.Sprintf("%s:%s:%s", alert.Kind, alert.Level, alert.Message)
	if !m.throttle.Allow(key) {
		return nil // 被限流，静默忽略
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// 扇出到所有通道；只要有一个成功就算送达
	var lastErr error
	delivered := 0
	for _, ch := range m.channels {
		if err := ch.Send(alert); err != nil {
			lastErr = fmt.Errorf("channel %s failed: %w", ch.Name(), err)
		} else {
			delivered++
		}
	}
	if delivered == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// levelFor 类别到级别的默认映射。
func levelFor(kind Kind) string {
	switch kind {
	case KindRiskAlert:
		return "WARNING"
	case KindError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Notify 按类别发送通知。发送即忘：通道失败只回传给调用方记录日志，
// 不中断交易流程。
func (m *Manager) Notify(kind Kind, message string, fields map[string]interface{}) error {
	return m.SendAlert(Alert{
		Level:   levelFor(kind),
		Kind:    kind,
		Message: message,
		Fields:  fields,
	})
}

// SendInfo 发送INFO级别告警
func (m *Manager) SendInfo(message string, fields map[string]interface{}) error {
	return m.SendAlert(Alert{
		Level:   "INFO",
		Message: message,
		Fields:  fields,
	})
}

// SendWarning 发送WARNING级别风控告警
func (m *Manager) SendWarning(message string, fields map[string]interface{}) error {
	return m.SendAlert(Alert{
		Level:   "WARNING",
		Kind:    KindRiskAlert,
		Message: message,
		Fields:  fields,
	})
}

// SendError 发送ERROR级别告警
func (m *Manager) SendError(message string, fields map[string]interface{}) error {
	return m.SendAlert(Alert{
		Level:   "ERROR",
		Kind:    KindError,
		Message: message,
		Fields:  fields,
	})
}

// SendCritical 发送CRITICAL级别风控告警，需要人工介入的场景用
func (m *Manager) SendCritical(message string, fields map[string]interface{}) error {
	return m.SendAlert(Alert{
		Level:   "CRITICAL",
		Kind:    KindRiskAlert,
		Message: message,
		Fields:  fields,
	})
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// RemoveChannel 按名称移除告警通道
func (m *Manager) RemoveChannel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		if ch.Name() != name {
			filtered = append(filtered, ch)
		}
	}
	m.channels = filtered
}

// GetChannels 获取所有通道名称
func (m *Manager) GetChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// ResetThrottle 清空限流记录
func (m *Manager) ResetThrottle() {
	m.throttle.Clear()
}
