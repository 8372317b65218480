package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGauges(t *testing.T) {
	OpenPositions.Set(0)
	DailyPnL.Set(0)
	EngineState.Set(0)

	OpenPositions.Set(3)
	DailyPnL.Set(-2500)
	EngineState.Set(1)

	if testutil.ToFloat64(OpenPositions) != 3 {
		t.Errorf("Expected OpenPositions to be 3, got %f", testutil.ToFloat64(OpenPositions))
	}
	if testutil.ToFloat64(DailyPnL) != -2500 {
		t.Errorf("Expected DailyPnL to be -2500, got %f", testutil.ToFloat64(DailyPnL))
	}
	if testutil.ToFloat64(EngineState) != 1 {
		t.Errorf("Expected EngineState to be 1, got %f", testutil.ToFloat64(EngineState))
	}
}

func TestCounters(t *testing.T) {
	OpportunityTotal.Reset()
	RejectionTotal.Reset()

	ScanTotal.Inc()
	OpportunityTotal.WithLabelValues("basis").Inc()
	OpportunityTotal.WithLabelValues("basis").Inc()
	OpportunityTotal.WithLabelValues("calendar").Inc()
	RejectionTotal.WithLabelValues("daily-loss-breaker").Inc()

	if got := testutil.ToFloat64(OpportunityTotal.WithLabelValues("basis")); got != 2 {
		t.Errorf("Expected OpportunityTotal[basis] to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(OpportunityTotal.WithLabelValues("calendar")); got != 1 {
		t.Errorf("Expected OpportunityTotal[calendar] to be 1, got %f", got)
	}
	if got := testutil.ToFloat64(RejectionTotal.WithLabelValues("daily-loss-breaker")); got != 1 {
		t.Errorf("Expected RejectionTotal[daily-loss-breaker] to be 1, got %f", got)
	}
}

func TestSpreadGauge(t *testing.T) {
	SpreadGauge.Reset()
	SpreadGauge.WithLabelValues("basis").Set(170)

	if got := testutil.ToFloat64(SpreadGauge.WithLabelValues("basis")); got != 170 {
		t.Errorf("Expected SpreadGauge[basis] to be 170, got %f", got)
	}
}
