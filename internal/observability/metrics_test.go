package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_AllCollectorsRegisterWithoutCollision(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("expected non-nil Metrics")
	}

	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one registered metric family")
	}
}

func TestNewMetrics_DecisionsTotalIncrementsByLabel(t *testing.T) {
	m := NewMetrics()
	m.DecisionsTotal.WithLabelValues("0").Inc()
	m.DecisionsTotal.WithLabelValues("0").Inc()
	m.DecisionsTotal.WithLabelValues("2").Inc()

	if got := testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("0")); got != 2 {
		t.Errorf("expected counter value 2 for level 0, got %v", got)
	}
	if got := testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("2")); got != 1 {
		t.Errorf("expected counter value 1 for level 2, got %v", got)
	}
}

func TestNewMetrics_SeparateInstancesUseIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ClampAppliedTotal.Inc()

	if got := testutil.ToFloat64(a.ClampAppliedTotal); got != 1 {
		t.Errorf("expected a's counter to be 1, got %v", got)
	}
	if got := testutil.ToFloat64(b.ClampAppliedTotal); got != 0 {
		t.Errorf("expected b's counter to remain 0 (independent registry), got %v", got)
	}
}

func TestNewMetrics_BudgetTokensRemainingGaugeSettable(t *testing.T) {
	m := NewMetrics()
	m.BudgetTokensRemaining.Set(42)
	if got := testutil.ToFloat64(m.BudgetTokensRemaining); got != 42 {
		t.Errorf("expected gauge value 42, got %v", got)
	}
}
