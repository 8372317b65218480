package pricing

// 风险评分采用表驱动的分段规则，0-100，100 = 最安全。
// 各档位常数沿用既有策略参数；阈值相互并不正交，
// 属经验规则而非统计校准，调整前需先确认语义。

// scoreBand 单条加分档位：命中首个满足条件的档位后停止。
type scoreBand struct {
	threshold float64
	delta     int
}

// firstBandAbove 返回 v 大于阈值的首个档位加分。
func firstBandAbove(v float64, bands []scoreBand) int {
	for _, b := range bands {
		if v > b.threshold {
			return b.delta
		}
	}
	return 0
}

// firstBandBelow 返回 v 小于阈值的首个档位加分。
func firstBandBelow(v float64, bands []scoreBand) int {
	for _, b := range bands {
		if v < b.threshold {
			return b.delta
		}
	}
	return 0
}

const basisBaseScore = 50

var (
	// 价差偏离越大，机会越好
	basisDeviationBands = []scoreBand{{threshold: 100, delta: 30}, {threshold: 50, delta: 20}}
	// 距到期日越近，收敛概率越高
	basisExpiryBands = []scoreBand{{threshold: 3, delta: 20}, {threshold: 7, delta: 10}}
	// 正价差过大
	basisPremiumBands = []scoreBand{{threshold: 150, delta: 15}}
)

func basisRiskScore(deviation float64, daysToExpiry int, spread float64) int {
	score := basisBaseScore
	score += firstBandAbove(abs(deviation), basisDeviationBands)
	score += firstBandBelow(float64(daysToExpiry), basisExpiryBands)
	score += firstBandAbove(spread, basisPremiumBands)
	return clampScore(score)
}

// 逆价差越深，机会越好
var calendarScoreBands = []scoreBand{{threshold: -20, delta: 90}}

func calendarRiskScore(spread float64) int {
	if s := firstBandBelow(spread, calendarScoreBands); s > 0 {
		return s
	}
	return 70
}

var triangleScoreBands = []scoreBand{{threshold: 50, delta: 85}}

func triangleRiskScore(spread float64) int {
	if s := firstBandAbove(abs(spread), triangleScoreBands); s > 0 {
		return s
	}
	return 60
}

func clampScore(s int) int {
	if s > 100 {
		return 100
	}
	if s < 0 {
		return 0
	}
	return s
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
