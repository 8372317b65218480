package risk

import "time"

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 默认时钟。
var SystemClock Clock = systemClock{}

// FixedClock 固定时间时钟，测试用。
type FixedClock struct {
	T time.Time
}

func (f FixedClock) Now() time.Time { return f.T }
