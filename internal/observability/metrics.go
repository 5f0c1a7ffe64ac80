package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics exported by the controller
// and provides the /metrics handler.
type Collector struct {
	gatherer prometheus.Gatherer

	Queries            *prometheus.CounterVec
	LunarAge           prometheus.Gauge
	IlluminatedPercent prometheus.Gauge
	WheelPosition      prometheus.Gauge
	ControllerState    prometheus.Gauge
	MotorSteps         prometheus.Counter
}

// NewCollector registers the controller metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moon_queries_total",
		Help: "Total lunar age acquisitions, labeled by result (ok or error).",
	}, []string{"result"})
	queries, err := registerCounterVec(reg, queries)
	if err != nil {
		return nil, err
	}

	lunarAge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "moon_lunar_age_days",
		Help: "Lunar age from the last successful acquisition, in days.",
	}))
	if err != nil {
		return nil, err
	}
	illuminated, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "moon_illuminated_percent",
		Help: "Illuminated fraction from the last successful acquisition, in percent.",
	}))
	if err != nil {
		return nil, err
	}
	position, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wheel_position_steps",
		Help: "Tracked wheel position, in motor step units.",
	}))
	if err != nil {
		return nil, err
	}
	state, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "controller_state",
		Help: "Current controller state (0=error, 1=finding slot, 2=querying, 3=turning wheel, 4=waiting).",
	}))
	if err != nil {
		return nil, err
	}

	steps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "motor_steps_total",
		Help: "Total motor steps commanded since startup.",
	})
	steps, err = registerCounter(reg, steps)
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		Queries:            queries,
		LunarAge:           lunarAge,
		IlluminatedPercent: illuminated,
		WheelPosition:      position,
		ControllerState:    state,
		MotorSteps:         steps,
	}, nil
}

// Handler serves the collector's registry over HTTP.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return cv, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return g, nil
}
