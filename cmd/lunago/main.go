package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/LunaGo/internal/config"
	"github.com/cjeanneret/LunaGo/internal/debug"
	"github.com/cjeanneret/LunaGo/internal/hw/gpio"
	"github.com/cjeanneret/LunaGo/internal/hw/sensor"
	"github.com/cjeanneret/LunaGo/internal/hw/stepper"
	"github.com/cjeanneret/LunaGo/internal/logic/calibrate"
	"github.com/cjeanneret/LunaGo/internal/logic/controller"
	"github.com/cjeanneret/LunaGo/internal/logic/wheel"
	"github.com/cjeanneret/LunaGo/internal/moon"
	"github.com/cjeanneret/LunaGo/internal/observability"
	"github.com/cjeanneret/LunaGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	once := flag.Bool("once", false, "calibrate, align the wheel once, then exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize the wheel motor and slot sensor
	debug.Step(2, "Initializing stepper motor and slot sensor")
	var coilPins [4]int
	copy(coilPins[:], cfg.Motor.CoilPins)
	motor := stepper.NewMotor(gpioDriver, stepper.Config{
		CoilPins: coilPins,
		Dwell:    cfg.Dwell(),
	})
	debug.PrintStruct("Motor config", cfg.Motor)
	slot := sensor.NewSlotGPIO(gpioDriver, cfg.Sensor.Pin)
	debug.PrintStruct("Sensor config", cfg.Sensor)

	// Calibration and wheel arithmetic
	debug.Step(3, "Setting up calibration and wheel geometry")
	cal := calibrate.New(motor, slot, calibrate.Params{
		MinDarkSteps:         cfg.MinDarkSteps(),
		SlotToReferenceSteps: cfg.Wheel.SlotToReferenceSteps,
		MaxSearchSteps:       cfg.MaxSearchSteps(),
		InitialOffsetSteps:   cfg.Wheel.InitialOffsetSteps,
	})
	calc := wheel.NewCalculator(cfg.Wheel.NumImages, cfg.Motor.StepsPerRev)
	debug.Wheel(cfg.Wheel.NumImages, cfg.Motor.StepsPerRev, calc.StepsPerImage())

	// Acquisition client and metrics
	debug.Step(4, "Creating acquisition client")
	client := moon.NewClient(cfg.Service.URL, cfg.FetchTimeout())
	debug.Value("Service URL", cfg.Service.URL)

	collector, err := observability.NewCollector(nil)
	if err != nil {
		log.Fatalf("register metrics failed: %v", err)
	}

	if *once {
		if err := runOnce(ctx, cal, client, motor, calc); err != nil {
			log.Fatalf("single alignment failed: %v", err)
		}
		return
	}

	ctrl := controller.New(cal, client, motor, calc, collector, controller.Config{
		RefreshInterval: cfg.RefreshInterval(),
		RetryInitial:    cfg.RetryInitial(),
		RetryMax:        cfg.RetryMax(),
	})

	if port := webPort.port(); port > 0 {
		webAddr := fmt.Sprintf(":%d", port)
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		go func() {
			if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
				debug.Error(err)
				cancel()
			}
		}()

		srv := web.NewServer(webAddr, broadcaster, ctrl.Status, ctrl.Refresh, collector.Handler())
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("controller: %v", err)
	}
}

// runOnce performs a single calibrate-acquire-align pass without the
// waiting/retry loop, for installation and testing.
func runOnce(ctx context.Context, cal *calibrate.Calibrator, client *moon.Client, motor *stepper.Motor, calc *wheel.Calculator) error {
	debug.Summary("Single Alignment")

	angle, err := cal.FindSlot()
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}

	reading, err := client.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("acquisition: %w", err)
	}

	index, err := calc.ImageIndex(reading.AgeDays)
	if err != nil {
		return err
	}
	desired := calc.TargetAngle(index)
	steps := calc.StepsForward(angle, desired)

	debug.Info("Once: age %.2f days -> image %d (%d steps forward)", reading.AgeDays, index, steps)
	if err := motor.Step(steps); err != nil {
		return fmt.Errorf("motor: %w", err)
	}
	if err := motor.Release(); err != nil {
		return fmt.Errorf("motor release: %w", err)
	}

	debug.Summary("Alignment Complete")
	return nil
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
