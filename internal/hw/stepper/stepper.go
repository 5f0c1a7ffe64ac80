package stepper

import (
	"time"

	"github.com/cjeanneret/LunaGo/internal/debug"
	"github.com/cjeanneret/LunaGo/internal/hw/gpio"
)

// phases is the number of coil outputs in the drive sequence.
const phases = 4

// Config holds the hardware configuration for a unipolar stepper motor
// driven one-GPIO-per-coil.
type Config struct {
	CoilPins [phases]int   // BCM pins, in coil activation order
	Dwell    time.Duration // hold time per activation pulse; smallest value that reliably turns the load
	// Service, when set, is called after every unit step so the
	// caller can keep background work (network stack, SSE clients)
	// alive during long moves. The motor never blocks longer than
	// two dwell periods between calls.
	Service func()
}

// Motor sequences coil activations for a 4-phase stepper. The only
// state is the current index into the circular activation sequence;
// absolute wheel position is unknown until calibration runs.
type Motor struct {
	gpio  gpio.Driver
	cfg   Config
	dwell time.Duration
	idx   int // current position in the coil sequence
}

// NewMotor creates a new stepper motor sequencer.
// cfg.Dwell: if 0, defaults to 3ms.
func NewMotor(g gpio.Driver, cfg Config) *Motor {
	for _, pin := range cfg.CoilPins {
		_ = g.SetupPin(pin, gpio.Output)
		_ = g.WritePin(pin, gpio.Low)
	}

	dwell := cfg.Dwell
	if dwell <= 0 {
		dwell = 3 * time.Millisecond
	}

	return &Motor{
		gpio:  g,
		cfg:   cfg,
		dwell: dwell,
	}
}

// Step moves the motor by a number of steps (positive = forward,
// negative = backward). Each unit step is an overlapping two-phase
// pulse: the current and next coils are energized together for one
// dwell period, the current coil drops, the next holds alone for one
// more dwell, then drops. All coils are released between steps.
func (m *Motor) Step(count int) error {
	if count == 0 {
		return nil
	}

	delta := 1
	direction := "forward"
	if count < 0 {
		delta = -1
		direction = "backward"
	}

	debug.Printf("Stepper: moving %d steps (%s)", count, direction)

	// Counting toward zero instead of negating keeps the most
	// negative count from overflowing.
	for ; count != 0; count -= delta {
		if err := m.pulse(delta); err != nil {
			return err
		}
		if m.cfg.Service != nil {
			m.cfg.Service()
		}
	}
	return nil
}

// pulse performs one overlapping two-phase step and commits the new
// sequence index.
func (m *Motor) pulse(delta int) error {
	next := (m.idx + delta + phases) % phases

	cur := m.cfg.CoilPins[m.idx]
	nxt := m.cfg.CoilPins[next]

	if err := m.gpio.WritePin(cur, gpio.High); err != nil {
		return err
	}
	if err := m.gpio.WritePin(nxt, gpio.High); err != nil {
		return err
	}
	time.Sleep(m.dwell)
	if err := m.gpio.WritePin(cur, gpio.Low); err != nil {
		return err
	}
	time.Sleep(m.dwell)
	if err := m.gpio.WritePin(nxt, gpio.Low); err != nil {
		return err
	}

	m.idx = next
	return nil
}

// Release drives all coils low. The wheel freewheels, no holding
// torque, no current draw while the controller idles.
func (m *Motor) Release() error {
	for _, pin := range m.cfg.CoilPins {
		if err := m.gpio.WritePin(pin, gpio.Low); err != nil {
			return err
		}
	}
	return nil
}
