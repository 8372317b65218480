package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Session 单一交易时段，边界含端点，精度到秒。
// Start > End 视为跨日时段（夜盘）。
type Session struct {
	Start string `yaml:"start"` // "HH:MM" 或 "HH:MM:SS"
	End   string `yaml:"end"`
}

// TradingHours 交易时段配置。台指期日盘 08:45–13:45，
// 夜盘 15:00 跨日至次日 05:00。
type TradingHours struct {
	Timezone string    `yaml:"timezone"`
	Sessions []Session `yaml:"sessions"`

	loc      *time.Location
	compiled []compiledSession
}

type compiledSession struct {
	start int // 当日秒数
	end   int
}

// DefaultTradingHours 返回台湾期交所日夜盘时段。
func DefaultTradingHours() TradingHours {
	return TradingHours{
		Timezone: "Asia/Taipei",
		Sessions: []Session{
			{Start: "08:45", End: "13:45"},
			{Start: "15:00", End: "05:00"},
		},
	}
}

// Compile 解析时段配置，失败即配置错误。
func (h *TradingHours) Compile() error {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", h.Timezone, err)
	}
	h.loc = loc

	h.compiled = h.compiled[:0]
	for _, s := range h.Sessions {
		start, err := parseClock(s.Start)
		if err != nil {
			return fmt.Errorf("invalid session start %q: %w", s.Start, err)
		}
		end, err := parseClock(s.End)
		if err != nil {
			return fmt.Errorf("invalid session end %q: %w", s.End, err)
		}
		h.compiled = append(h.compiled, compiledSession{start: start, end: end})
	}
	return nil
}

// Contains 判断时刻是否落在任一交易时段内，端点包含。
func (h *TradingHours) Contains(t time.Time) bool {
	if h.loc != nil {
		t = t.In(h.loc)
	}
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()

	for _, s := range h.compiled {
		if s.start <= s.end {
			if sec >= s.start && sec <= s.end {
				return true
			}
		} else {
			// 跨日时段
			if sec >= s.start || sec <= s.end {
				return true
			}
		}
	}
	return false
}

// parseClock 解析 "HH:MM" 或 "HH:MM:SS" 为当日秒数。
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM or HH:MM:SS, got %q", s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("non-numeric component %q", p)
		}
		nums[i] = n
	}
	hh, mm, ss := nums[0], nums[1], nums[2]
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return 0, fmt.Errorf("clock out of range: %q", s)
	}
	return hh*3600 + mm*60 + ss, nil
}
