package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MotorConfig holds the configuration for the wheel's stepper motor.
// The motor is a unipolar 4-coil stepper driven through a darlington
// array, one GPIO per coil, in activation order.
type MotorConfig struct {
	CoilPins    []int `yaml:"coil_pins"`     // BCM pins, one per coil, in sequence order
	StepsPerRev int   `yaml:"steps_per_rev"` // full steps for one wheel revolution
	DwellMs     int   `yaml:"dwell_ms"`      // hold time per coil activation pulse
}

// SensorConfig describes the optical slot sensor.
// The detector reads HIGH when light passes through the slot.
type SensorConfig struct {
	Pin               int     `yaml:"pin"`                // BCM pin of the detector output
	DarkMarginDeg     float64 `yaml:"dark_margin_deg"`    // minimum consecutive dark rotation before edge watch
	SearchRevolutions float64 `yaml:"search_revolutions"` // calibration search bound, in revolutions (1.25-1.5)
}

// WheelConfig describes the image wheel geometry.
type WheelConfig struct {
	NumImages            int     `yaml:"num_images"`              // discrete phase images on the wheel
	SlotToReferenceSteps int     `yaml:"slot_to_reference_steps"` // steps from slot edge to center of image 0
	InitialOffsetSteps   float64 `yaml:"initial_offset_steps"`    // angular position assigned after calibration
}

// ServiceConfig points at the lunar age text service.
type ServiceConfig struct {
	URL      string `yaml:"url"`       // fixed page giving the current lunar age
	TimeoutS int    `yaml:"timeout_s"` // overall fetch timeout, seconds
}

// RefreshConfig governs how often the wheel is re-aligned.
type RefreshConfig struct {
	IntervalMin   int `yaml:"interval_min"`    // steady-state minutes between acquisitions
	RetryInitialS int `yaml:"retry_initial_s"` // first retry delay after a failed acquisition
	RetryMaxS     int `yaml:"retry_max_s"`     // retry delay cap
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Motor    MotorConfig    `yaml:"motor"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Wheel    WheelConfig    `yaml:"wheel"`
	Service  ServiceConfig  `yaml:"service"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if len(cfg.Motor.CoilPins) != 4 {
		return nil, fmt.Errorf("motor.coil_pins must list exactly 4 pins, got %d", len(cfg.Motor.CoilPins))
	}
	seen := make(map[int]bool, 4)
	for _, p := range cfg.Motor.CoilPins {
		if seen[p] {
			return nil, fmt.Errorf("motor.coil_pins contains duplicate pin %d", p)
		}
		seen[p] = true
	}
	if cfg.Motor.StepsPerRev <= 0 {
		return nil, fmt.Errorf("motor.steps_per_rev must be > 0, got %d", cfg.Motor.StepsPerRev)
	}
	if cfg.Motor.DwellMs <= 0 {
		cfg.Motor.DwellMs = 3 // smallest value that reliably turns the stock wheel
	}

	if cfg.Sensor.DarkMarginDeg <= 0 {
		cfg.Sensor.DarkMarginDeg = 5
	}
	if cfg.Sensor.DarkMarginDeg >= 360 {
		return nil, fmt.Errorf("sensor.dark_margin_deg must be < 360, got %.2f", cfg.Sensor.DarkMarginDeg)
	}
	if cfg.Sensor.SearchRevolutions == 0 {
		cfg.Sensor.SearchRevolutions = 1.25
	}
	if cfg.Sensor.SearchRevolutions < 1.25 || cfg.Sensor.SearchRevolutions > 1.5 {
		return nil, fmt.Errorf("sensor.search_revolutions must be between 1.25 and 1.5, got %.2f", cfg.Sensor.SearchRevolutions)
	}

	if cfg.Wheel.NumImages <= 0 {
		return nil, fmt.Errorf("wheel.num_images must be > 0, got %d", cfg.Wheel.NumImages)
	}
	if cfg.Wheel.SlotToReferenceSteps < 0 {
		return nil, fmt.Errorf("wheel.slot_to_reference_steps must be >= 0, got %d", cfg.Wheel.SlotToReferenceSteps)
	}
	if cfg.Wheel.InitialOffsetSteps < 0 || cfg.Wheel.InitialOffsetSteps >= float64(cfg.Motor.StepsPerRev) {
		return nil, fmt.Errorf("wheel.initial_offset_steps must be in [0, steps_per_rev), got %.2f", cfg.Wheel.InitialOffsetSteps)
	}

	if cfg.Service.URL == "" {
		return nil, fmt.Errorf("service.url is required")
	}
	if cfg.Service.TimeoutS <= 0 {
		cfg.Service.TimeoutS = 10
	}

	if cfg.Refresh.IntervalMin <= 0 {
		cfg.Refresh.IntervalMin = 360 // six hours between re-alignments
	}
	if cfg.Refresh.RetryInitialS <= 0 {
		cfg.Refresh.RetryInitialS = 30
	}
	if cfg.Refresh.RetryMaxS <= 0 {
		cfg.Refresh.RetryMaxS = 1800
	}
	if cfg.Refresh.RetryMaxS < cfg.Refresh.RetryInitialS {
		return nil, fmt.Errorf("refresh.retry_max_s (%d) must be >= refresh.retry_initial_s (%d)",
			cfg.Refresh.RetryMaxS, cfg.Refresh.RetryInitialS)
	}

	return &cfg, nil
}

// Dwell returns the coil activation pulse hold duration.
func (c *Config) Dwell() time.Duration {
	return time.Duration(c.Motor.DwellMs) * time.Millisecond
}

// FetchTimeout returns the overall acquisition timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Service.TimeoutS) * time.Second
}

// RefreshInterval returns the steady-state delay between acquisitions.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalMin) * time.Minute
}

// RetryInitial returns the first retry delay after a failed acquisition.
func (c *Config) RetryInitial() time.Duration {
	return time.Duration(c.Refresh.RetryInitialS) * time.Second
}

// RetryMax returns the retry delay cap.
func (c *Config) RetryMax() time.Duration {
	return time.Duration(c.Refresh.RetryMaxS) * time.Second
}

// MinDarkSteps converts the dark angular margin into whole steps,
// rounding up so the margin is never shortened.
func (c *Config) MinDarkSteps() int {
	steps := c.Sensor.DarkMarginDeg * float64(c.Motor.StepsPerRev) / 360.0
	n := int(steps)
	if float64(n) < steps {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// MaxSearchSteps bounds the calibration search.
func (c *Config) MaxSearchSteps() int {
	return int(c.Sensor.SearchRevolutions * float64(c.Motor.StepsPerRev))
}
