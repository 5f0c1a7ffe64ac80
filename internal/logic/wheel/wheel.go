package wheel

import (
	"errors"
	"math"
)

// SynodicMonthDays is the mean period between successive new moons.
// The image wheel divides it evenly: there are no variable-width phases.
const SynodicMonthDays = 29.53059

// ErrIndexInvalid is returned when a lunar age maps to a negative
// image index, which can only come from corrupt input.
var ErrIndexInvalid = errors.New("wheel: computed image index is negative")

// Calculator converts lunar ages to image indices and wheel angles.
// Angles are expressed in motor step units, kept in float64 because
// steps-per-image is generally not a whole number.
type Calculator struct {
	numImages     int
	stepsPerRev   int
	daysPerImage  float64
	stepsPerImage float64
}

// NewCalculator creates a calculator for a wheel carrying numImages
// evenly spaced phase images over stepsPerRev motor steps.
func NewCalculator(numImages, stepsPerRev int) *Calculator {
	return &Calculator{
		numImages:     numImages,
		stepsPerRev:   stepsPerRev,
		daysPerImage:  SynodicMonthDays / float64(numImages),
		stepsPerImage: float64(stepsPerRev) / float64(numImages),
	}
}

// NumImages returns the number of images on the wheel.
func (c *Calculator) NumImages() int { return c.numImages }

// DaysPerImage returns the span of lunar age covered by one image.
func (c *Calculator) DaysPerImage() float64 { return c.daysPerImage }

// StepsPerImage returns the angular width of one image in step units.
func (c *Calculator) StepsPerImage() float64 { return c.stepsPerImage }

// ImageIndex maps a lunar age in days to the image whose window
// contains it, rounding half-up: adding half a window before the
// truncating division puts an age on the boundary into the next
// image. The result is clamped to the last image; a negative raw
// index is rejected as corrupt input.
func (c *Calculator) ImageIndex(age float64) (int, error) {
	raw := int((age + c.daysPerImage/2) / c.daysPerImage)
	if raw < 0 {
		return 0, ErrIndexInvalid
	}
	if raw > c.numImages-1 {
		raw = c.numImages - 1
	}
	return raw, nil
}

// TargetAngle returns the wheel angle, in step units, of the center
// of the given image.
func (c *Calculator) TargetAngle(index int) float64 {
	return float64(index) * c.stepsPerImage
}

// StepsForward returns the whole number of forward steps from the
// current angle to the desired angle. The mechanism only turns one
// way, so a negative difference wraps forward by whole revolutions
// until non-negative.
func (c *Calculator) StepsForward(current, desired float64) int {
	steps := int(math.Round(desired - current))
	for steps < 0 {
		steps += c.stepsPerRev
	}
	return steps
}
