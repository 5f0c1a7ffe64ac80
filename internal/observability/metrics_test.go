package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.Queries.WithLabelValues("ok").Inc()
	c.Queries.WithLabelValues("error").Add(2)
	c.LunarAge.Set(14.7)
	c.IlluminatedPercent.Set(98)
	c.WheelPosition.Set(1034)
	c.ControllerState.Set(4)
	c.MotorSteps.Add(1014)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"moon_queries_total",
		"moon_lunar_age_days",
		"moon_illuminated_percent",
		"wheel_position_steps",
		"controller_state",
		"motor_steps_total",
	} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestNewCollector_ReregisterReusesExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("first NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	first.Queries.WithLabelValues("ok").Inc()
	second.Queries.WithLabelValues("ok").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "moon_queries_total" {
			continue
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
			t.Errorf("shared counter = %v, want 2", got)
		}
	}
}

func TestCollector_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.LunarAge.Set(7.3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "moon_lunar_age_days 7.3") {
		t.Errorf("exposition missing lunar age gauge:\n%s", rec.Body.String())
	}
}
