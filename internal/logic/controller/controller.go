package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cjeanneret/LunaGo/internal/debug"
	"github.com/cjeanneret/LunaGo/internal/logic/wheel"
	"github.com/cjeanneret/LunaGo/internal/moon"
	"github.com/cjeanneret/LunaGo/internal/observability"
)

// State is the controller's phase. Exactly one is active at a time.
type State int

const (
	StateError State = iota
	StateFindingSlot
	StateQuerying
	StateTurningWheel
	StateWaiting
)

// String returns the state name. Unknown values read as Error, and
// the state machine treats them the same way.
func (s State) String() string {
	switch s {
	case StateFindingSlot:
		return "finding_slot"
	case StateQuerying:
		return "querying"
	case StateTurningWheel:
		return "turning_wheel"
	case StateWaiting:
		return "waiting"
	default:
		return "error"
	}
}

// Mover is the motor capability the controller commands.
type Mover interface {
	Step(count int) error
	Release() error
}

// Calibrator locates the wheel's absolute origin.
type Calibrator interface {
	FindSlot() (float64, error)
}

// Config tunes the controller's waiting policy.
type Config struct {
	RefreshInterval time.Duration // steady-state delay between acquisitions
	RetryInitial    time.Duration // first retry delay after a failure
	RetryMax        time.Duration // retry delay cap
}

// Status is a point-in-time snapshot for the web/status surface.
type Status struct {
	State              string    `json:"state"`
	AngleSteps         float64   `json:"angle_steps"`
	LunarAgeDays       float64   `json:"lunar_age_days"`
	IlluminatedPercent int       `json:"illuminated_percent"`
	ImageIndex         int       `json:"image_index"`
	Alignments         int       `json:"alignments"`
	LastError          string    `json:"last_error,omitempty"`
	LastUpdate         time.Time `json:"last_update,omitempty"`
	ServerDate         string    `json:"server_date,omitempty"`
}

// Controller owns the wheel's tracked angle and the phase state
// machine. It is the single writer of both; the web goroutine only
// reads snapshots through Status.
type Controller struct {
	calibrator Calibrator
	source     moon.Source
	motor      Mover
	calc       *wheel.Calculator
	metrics    *observability.Collector
	cfg        Config

	retry   *backoff.ExponentialBackOff
	refresh chan struct{}

	mu           sync.Mutex
	state        State
	currentAngle float64
	lastReading  moon.Reading
	haveReading  bool
	lastIndex    int
	alignments   int
	lastErr      error
	lastUpdate   time.Time
	retrying     bool
}

// New wires a controller over its collaborators. metrics may be nil.
func New(cal Calibrator, src moon.Source, m Mover, calc *wheel.Calculator, metrics *observability.Collector, cfg Config) *Controller {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = cfg.RetryInitial
	retry.MaxInterval = cfg.RetryMax

	return &Controller{
		calibrator: cal,
		source:     src,
		motor:      m,
		calc:       calc,
		metrics:    metrics,
		cfg:        cfg,
		retry:      retry,
		refresh:    make(chan struct{}, 1),
		state:      StateFindingSlot,
	}
}

// Run drives the state machine until the context is cancelled or the
// Error state is reached. Error is terminal: calibration failures and
// invalid indices need a human, not a retry.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch c.State() {
		case StateFindingSlot:
			c.transition(c.runFindingSlot())
		case StateQuerying:
			c.transition(c.runQuerying(ctx))
		case StateTurningWheel:
			c.transition(c.runTurningWheel())
		case StateWaiting:
			c.transition(c.runWaiting(ctx))
		case StateError:
			c.mu.Lock()
			err := c.lastErr
			c.mu.Unlock()
			if err == nil {
				err = fmt.Errorf("controller entered error state")
			}
			return err
		default:
			c.fail(fmt.Errorf("unknown controller state %d", c.State()))
		}
	}
}

// Refresh requests an immediate re-acquisition. It is safe to call
// from any goroutine and coalesces with a pending request.
func (c *Controller) Refresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot for the status surface.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:      c.state.String(),
		AngleSteps: c.currentAngle,
		Alignments: c.alignments,
		LastUpdate: c.lastUpdate,
	}
	if c.haveReading {
		st.LunarAgeDays = c.lastReading.AgeDays
		st.IlluminatedPercent = c.lastReading.IlluminatedPercent
		st.ImageIndex = c.lastIndex
		d := c.lastReading.ServerDate
		st.ServerDate = fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d GMT",
			d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

func (c *Controller) transition(next State) {
	c.mu.Lock()
	from := c.state
	c.state = next
	c.mu.Unlock()

	if from != next {
		debug.State(from.String(), next.String())
	}
	if c.metrics != nil {
		c.metrics.ControllerState.Set(float64(next))
	}
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	debug.Error(err)
	c.transition(StateError)
}

func (c *Controller) runFindingSlot() State {
	angle, err := c.calibrator.FindSlot()
	if err != nil {
		c.mu.Lock()
		c.lastErr = fmt.Errorf("sensor calibration failed: %w", err)
		c.mu.Unlock()
		debug.Error(err)
		return StateError
	}

	c.mu.Lock()
	c.currentAngle = angle
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.WheelPosition.Set(angle)
	}
	debug.Live("Controller: calibrated, angle = %.2f steps", angle)
	return StateQuerying
}

func (c *Controller) runQuerying(ctx context.Context) State {
	reading, err := c.source.Fetch(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.Queries.WithLabelValues("error").Inc()
		}
		c.mu.Lock()
		c.lastErr = err
		c.retrying = true
		c.mu.Unlock()
		debug.Error(err)
		return StateWaiting
	}

	if c.metrics != nil {
		c.metrics.Queries.WithLabelValues("ok").Inc()
		c.metrics.LunarAge.Set(reading.AgeDays)
		c.metrics.IlluminatedPercent.Set(float64(reading.IlluminatedPercent))
	}
	c.mu.Lock()
	c.lastReading = reading
	c.haveReading = true
	c.lastErr = nil
	c.lastUpdate = time.Now()
	c.mu.Unlock()
	return StateTurningWheel
}

func (c *Controller) runTurningWheel() State {
	c.mu.Lock()
	reading := c.lastReading
	current := c.currentAngle
	c.mu.Unlock()

	index, err := c.calc.ImageIndex(reading.AgeDays)
	if err != nil {
		c.mu.Lock()
		c.lastErr = fmt.Errorf("lunar age %.2f: %w", reading.AgeDays, err)
		c.mu.Unlock()
		return StateError
	}

	desired := c.calc.TargetAngle(index)
	steps := c.calc.StepsForward(current, desired)
	debug.Info("Controller: image %d, target %.2f steps, moving %d", index, desired, steps)
	debug.Move(steps)

	if err := c.motor.Step(steps); err != nil {
		c.mu.Lock()
		c.lastErr = fmt.Errorf("motor: %w", err)
		c.mu.Unlock()
		return StateError
	}
	_ = c.motor.Release()

	// Accumulate the desired angle instead of overwriting with it:
	// the fractional remainder of the non-integer steps-per-image
	// must survive across cycles. Do not "fix" without verifying
	// against the physical wheel.
	c.mu.Lock()
	c.currentAngle += desired
	c.lastIndex = index
	c.alignments++
	angle := c.currentAngle
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.MotorSteps.Add(float64(steps))
		c.metrics.WheelPosition.Set(angle)
	}

	c.retry.Reset()
	c.mu.Lock()
	c.retrying = false
	c.mu.Unlock()
	return StateWaiting
}

func (c *Controller) runWaiting(ctx context.Context) State {
	c.mu.Lock()
	retrying := c.retrying
	c.mu.Unlock()

	delay := c.cfg.RefreshInterval
	if retrying {
		delay = c.retry.NextBackOff()
		debug.Live("Controller: retrying in %s", delay)
	} else {
		debug.Live("Controller: next refresh in %s", delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return StateWaiting
	case <-timer.C:
		return StateQuerying
	case <-c.refresh:
		debug.Live("Controller: manual refresh requested")
		return StateQuerying
	}
}
