package sensor

import (
	"github.com/cjeanneret/LunaGo/internal/debug"
	"github.com/cjeanneret/LunaGo/internal/hw/gpio"
)

// SlotGPIO is a Sensor implementation for an optical slot interrupter
// read on a single GPIO:
// - emitter LED shines across the wheel rim
// - phototransistor output wired to the pin, pulled down
// - the line reads HIGH only when the slot lets light through
//
// There is no hardware debounce; the calibration protocol's minimum
// dark run provides the only filtering.
type SlotGPIO struct {
	gpio gpio.Driver
	pin  int
}

// NewSlotGPIO configures the detector pin as a pulled-down input.
func NewSlotGPIO(g gpio.Driver, pin int) *SlotGPIO {
	_ = g.SetupPin(pin, gpio.InputPullDown)

	return &SlotGPIO{
		gpio: g,
		pin:  pin,
	}
}

// Read samples the detector once.
func (s *SlotGPIO) Read() (bool, error) {
	level, err := s.gpio.ReadPin(s.pin)
	if err != nil {
		return false, err
	}
	debug.Trace("Sensor: pin %d = %v", s.pin, level)
	return level == gpio.High, nil
}
