package calibrate

import (
	"errors"
	"testing"
)

// countingMotor records total forward steps commanded.
type countingMotor struct {
	total int
}

func (m *countingMotor) Step(count int) error {
	m.total += count
	return nil
}

// scriptedSensor replays a fixed sequence of readings, one per Read.
// The script wraps around, modeling a wheel that keeps turning past
// the same slot.
type scriptedSensor struct {
	script []bool // true = light (unobstructed)
	pos    int
}

func (s *scriptedSensor) Read() (bool, error) {
	v := s.script[s.pos%len(s.script)]
	s.pos++
	return v, nil
}

// wheelScript builds one revolution of readings: a slot of slotWidth
// light readings starting at slotStart, dark everywhere else.
func wheelScript(rev, slotStart, slotWidth int) []bool {
	script := make([]bool, rev)
	for i := 0; i < slotWidth; i++ {
		script[(slotStart+i)%rev] = true
	}
	return script
}

func testParams() Params {
	return Params{
		MinDarkSteps:         28, // about 5 degrees of a 2048-step wheel
		SlotToReferenceSteps: 100,
		MaxSearchSteps:       2560, // 1.25 revolutions
		InitialOffsetSteps:   0,
	}
}

func TestFindSlot_StartingOutsideSlot(t *testing.T) {
	motor := &countingMotor{}
	// Slot begins 500 steps ahead of the sensor.
	sens := &scriptedSensor{script: wheelScript(2048, 500, 40)}

	angle, err := New(motor, sens, testParams()).FindSlot()
	if err != nil {
		t.Fatalf("FindSlot: %v", err)
	}
	if angle != 0 {
		t.Errorf("origin angle = %v, want 0", angle)
	}
	// 501 steps to the first light reading, then the reference offset.
	if motor.total != 501+100 {
		t.Errorf("motor moved %d steps, want %d", motor.total, 601)
	}
}

func TestFindSlot_StartingInsideSlot(t *testing.T) {
	motor := &countingMotor{}
	// Sensor powers up inside the slot: light for the first 30 reads,
	// then dark for a revolution, then the slot comes around again.
	sens := &scriptedSensor{script: wheelScript(2048, 2018, 70)}

	angle, err := New(motor, sens, testParams()).FindSlot()
	if err != nil {
		t.Fatalf("FindSlot: %v", err)
	}
	if angle != 0 {
		t.Errorf("origin angle = %v, want 0", angle)
	}
	// The initial light run must be skipped: the edge is only valid
	// after a full dark margin.
	// 40 light reads (2018+70-2048), dark until step 2018, light at 2019.
	if motor.total != 2019+100 {
		t.Errorf("motor moved %d steps, want %d", motor.total, 2119)
	}
}

// Starting inside or outside the slot converges to the same origin.
func TestFindSlot_IdempotentOverStartState(t *testing.T) {
	outside := &countingMotor{}
	inside := &countingMotor{}

	angleOut, err := New(outside, &scriptedSensor{script: wheelScript(2048, 300, 40)}, testParams()).FindSlot()
	if err != nil {
		t.Fatalf("outside: %v", err)
	}
	angleIn, err := New(inside, &scriptedSensor{script: wheelScript(2048, 2028, 60)}, testParams()).FindSlot()
	if err != nil {
		t.Fatalf("inside: %v", err)
	}
	if angleOut != angleIn {
		t.Errorf("origins differ: outside %v, inside %v", angleOut, angleIn)
	}
}

func TestFindSlot_AlwaysDarkFails(t *testing.T) {
	motor := &countingMotor{}
	sens := &scriptedSensor{script: []bool{false}}

	_, err := New(motor, sens, testParams()).FindSlot()
	if !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("want ErrSlotNotFound, got %v", err)
	}
	if motor.total != testParams().MaxSearchSteps {
		t.Errorf("search stopped after %d steps, want full bound %d", motor.total, testParams().MaxSearchSteps)
	}
}

func TestFindSlot_AlwaysLightFails(t *testing.T) {
	// A sensor stuck light never satisfies the dark margin, so the
	// edge is never armed.
	motor := &countingMotor{}
	sens := &scriptedSensor{script: []bool{true}}

	_, err := New(motor, sens, testParams()).FindSlot()
	if !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("want ErrSlotNotFound, got %v", err)
	}
}

func TestFindSlot_FlickerResetsDarkRun(t *testing.T) {
	// Dark runs shorter than the margin, interrupted by stray light
	// readings, must not arm the edge watch.
	script := make([]bool, 0, 400)
	for i := 0; i < 20; i++ {
		for j := 0; j < 19; j++ {
			script = append(script, false)
		}
		script = append(script, true)
	}

	motor := &countingMotor{}
	_, err := New(motor, &scriptedSensor{script: script}, testParams()).FindSlot()
	if !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("want ErrSlotNotFound, got %v", err)
	}
}

type failingSensor struct{}

func (failingSensor) Read() (bool, error) {
	return false, errors.New("sensor wiring fault")
}

func TestFindSlot_SensorErrorPropagates(t *testing.T) {
	motor := &countingMotor{}
	_, err := New(motor, failingSensor{}, testParams()).FindSlot()
	if err == nil || errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("want wiring error, got %v", err)
	}
}

func TestFindSlot_ReturnsConfiguredOffset(t *testing.T) {
	p := testParams()
	p.InitialOffsetSteps = 42.5

	motor := &countingMotor{}
	angle, err := New(motor, &scriptedSensor{script: wheelScript(2048, 600, 40)}, p).FindSlot()
	if err != nil {
		t.Fatalf("FindSlot: %v", err)
	}
	if angle != 42.5 {
		t.Errorf("origin angle = %v, want 42.5", angle)
	}
}
