package calibrate

import (
	"errors"

	"github.com/cjeanneret/LunaGo/internal/debug"
	"github.com/cjeanneret/LunaGo/internal/hw/sensor"
)

// ErrSlotNotFound means the search bound was exhausted without both a
// minimum dark run and a subsequent light edge. The wheel or sensor is
// assumed non-functional, not merely unaligned: a human must intervene.
var ErrSlotNotFound = errors.New("calibrate: slot not found within search bound")

// Mover is the motor capability calibration needs.
type Mover interface {
	Step(count int) error
}

// Params tunes the slot search.
type Params struct {
	// MinDarkSteps is the number of consecutive obstructed readings
	// required before the light edge is armed. It guarantees the
	// sensor has cleared a partially aligned slot at power-up.
	MinDarkSteps int
	// SlotToReferenceSteps bridges the sensor position to the center
	// of the first image window.
	SlotToReferenceSteps int
	// MaxSearchSteps bounds the whole search (1.25-1.5 revolutions).
	MaxSearchSteps int
	// InitialOffsetSteps is the angular position assigned once the
	// reference is reached.
	InitialOffsetSteps float64
}

// Calibrator locates the physical reference slot on the image wheel
// and establishes the absolute angular origin.
type Calibrator struct {
	motor  Mover
	sensor sensor.Sensor
	params Params
}

// New creates a calibrator over the given motor and slot sensor.
func New(m Mover, s sensor.Sensor, p Params) *Calibrator {
	return &Calibrator{
		motor:  m,
		sensor: s,
		params: p,
	}
}

// FindSlot steps the wheel forward one unit at a time until it has
// seen MinDarkSteps consecutive dark readings followed by a
// transition to light, which is the authoritative leading edge of the
// slot. It then advances SlotToReferenceSteps and returns the
// configured origin angle. Converges to the same origin whether the
// sensor starts inside or outside the slot.
func (c *Calibrator) FindSlot() (float64, error) {
	debug.Section("Slot Calibration")
	debug.Verbose("Calibrate: min dark run %d steps, bound %d steps",
		c.params.MinDarkSteps, c.params.MaxSearchSteps)

	darkRun := 0
	armed := false

	for taken := 1; taken <= c.params.MaxSearchSteps; taken++ {
		if err := c.motor.Step(1); err != nil {
			return 0, err
		}
		light, err := c.sensor.Read()
		if err != nil {
			return 0, err
		}

		if !armed {
			if light {
				darkRun = 0
				continue
			}
			darkRun++
			if darkRun >= c.params.MinDarkSteps {
				armed = true
				debug.Sense("dark run satisfied, watching for edge", taken)
			}
			continue
		}

		if light {
			debug.Sense("slot edge found", taken)
			if err := c.motor.Step(c.params.SlotToReferenceSteps); err != nil {
				return 0, err
			}
			debug.Live("Calibrate: at reference, origin = %.2f steps", c.params.InitialOffsetSteps)
			return c.params.InitialOffsetSteps, nil
		}
	}

	return 0, ErrSlotNotFound
}
