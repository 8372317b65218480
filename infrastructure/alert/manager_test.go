package alert

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyLevelMapping(t *testing.T) {
	tests := []struct {
		kind  Kind
		level string
	}{
		{KindOpportunity, "INFO"},
		{KindTradeExecuted, "INFO"},
		{KindPositionClosed, "INFO"},
		{KindDailySummary, "INFO"},
		{KindRiskAlert, "WARNING"},
		{KindError, "ERROR"},
	}

	mock := NewMockChannel("mock")
	m := NewManager([]Channel{mock}, time.Minute)

	for _, tt := range tests {
		require.NoError(t, m.Notify(tt.kind, string(tt.kind), nil))
	}

	alerts := mock.GetAlerts()
	require.Len(t, alerts, len(tests))
	for i, tt := range tests {
		assert.Equal(t, tt.kind, alerts[i].Kind, "kind %s", tt.kind)
		assert.Equal(t, tt.level, alerts[i].Level, "kind %s", tt.kind)
		assert.False(t, alerts[i].Timestamp.IsZero())
	}
}

func TestSendCriticalIsRiskAlert(t *testing.T) {
	mock := NewMockChannel("mock")
	m := NewManager([]Channel{mock}, time.Minute)

	require.NoError(t, m.SendCritical("未对冲敞口", map[string]interface{}{"position_id": "p1"}))

	alerts := mock.OfLevel("CRITICAL")
	require.Len(t, alerts, 1)
	assert.Equal(t, KindRiskAlert, alerts[0].Kind)
}

func TestSendAlertFanOut(t *testing.T) {
	a := NewMockChannel("a")
	b := NewMockChannel("b")
	m := NewManager([]Channel{a, b}, time.Minute)

	require.NoError(t, m.Notify(KindTradeExecuted, "executed", nil))
	assert.Equal(t, 1, a.Count())
	assert.Equal(t, 1, b.Count())
}

func TestSendAlertPartialFailureDelivered(t *testing.T) {
	broken := NewMockChannel("broken")
	broken.FailWith(errors.New("down"))
	ok := NewMockChannel("ok")
	m := NewManager([]Channel{broken, ok}, time.Minute)

	// 有一个通道成功就算送达
	require.NoError(t, m.Notify(KindRiskAlert, "breaker", nil))
	assert.Equal(t, 1, ok.Count())
}

func TestSendAlertAllChannelsFail(t *testing.T) {
	broken := NewMockChannel("broken")
	broken.FailWith(errors.New("down"))
	m := NewManager([]Channel{broken}, time.Minute)

	err := m.Notify(KindError, "boom", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestThrottleSuppressesRepeats(t *testing.T) {
	mock := NewMockChannel("mock")
	m := NewManager([]Channel{mock}, time.Minute)

	require.NoError(t, m.Notify(KindRiskAlert, "daily-loss-breaker", nil))
	require.NoError(t, m.Notify(KindRiskAlert, "daily-loss-breaker", nil))
	assert.Equal(t, 1, mock.Count(), "重复告警在限流窗口内只发一次")

	// 不同类别是不同的限流 key
	require.NoError(t, m.Notify(KindError, "daily-loss-breaker", nil))
	assert.Equal(t, 2, mock.Count())

	m.ResetThrottle()
	require.NoError(t, m.Notify(KindRiskAlert, "daily-loss-breaker", nil))
	assert.Equal(t, 3, mock.Count())
}

func TestThrottlerAllow(t *testing.T) {
	th := NewThrottler(time.Minute)
	assert.True(t, th.Allow("k"))
	assert.False(t, th.Allow("k"))
	assert.True(t, th.Allow("other"))

	th.Reset("k")
	assert.True(t, th.Allow("k"))
}

func TestAddRemoveChannel(t *testing.T) {
	m := NewManager(nil, time.Minute)
	assert.Empty(t, m.GetChannels())

	mock := NewMockChannel("mock")
	m.AddChannel(mock)
	assert.Equal(t, []string{"mock"}, m.GetChannels())

	m.RemoveChannel("mock")
	assert.Empty(t, m.GetChannels())

	require.NoError(t, m.Notify(KindOpportunity, "nobody listening", nil))
	assert.Equal(t, 0, mock.Count())
}

func TestLogChannelRendersKind(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "alert-*.log")
	require.NoError(t, err)
	defer f.Close()

	ch := NewLogChannel("log", f)
	require.NoError(t, ch.Send(Alert{
		Level:   "WARNING",
		Kind:    KindRiskAlert,
		Message: "触发停损",
		Fields:  map[string]interface{}{"pnl": -20200.0, "position_id": "p1"},
	}))

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "[WARNING][风控] 触发停损")
	// 字段按键序输出
	assert.True(t, strings.Index(line, "pnl=") < strings.Index(line, "position_id="))
}

func TestMockChannelFilters(t *testing.T) {
	mock := NewMockChannel("mock")
	m := NewManager([]Channel{mock}, time.Minute)

	require.NoError(t, m.Notify(KindOpportunity, "opp", nil))
	require.NoError(t, m.Notify(KindRiskAlert, "risk", nil))

	assert.Len(t, mock.OfKind(KindOpportunity), 1)
	assert.Len(t, mock.OfKind(KindRiskAlert), 1)
	assert.Empty(t, mock.OfKind(KindDailySummary))

	mock.Clear()
	assert.Equal(t, 0, mock.Count())
}
