package sensor

// Sensor is the high-level interface for the slot detector used by
// the calibration logic, regardless of how it's wired (GPIO optical
// interrupter, hall effect, test script...).
type Sensor interface {
	// Read returns true when the detector is unobstructed, i.e. light
	// passes through the slot in the image wheel.
	Read() (bool, error)
}
