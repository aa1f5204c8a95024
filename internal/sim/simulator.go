package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/drivelab/internal/config"
	"github.com/san-kum/drivelab/internal/drive"
	"github.com/san-kum/drivelab/internal/telemetry"
)

// Simulator runs the controller against the vehicle plant at a fixed
// cycle period, in autodrive, collecting telemetry exactly as the
// on-car datalogger would.
type Simulator struct {
	vehicle   *Vehicle
	integ     Integrator
	ctrl      *drive.Controller
	driver    *config.DriverConfig
	metrics   []Metric
	observers []Observer
}

func New(vehicle *Vehicle, integ Integrator, ctrl *drive.Controller, driver *config.DriverConfig) *Simulator {
	return &Simulator{
		vehicle: vehicle,
		integ:   integ,
		ctrl:    ctrl,
		driver:  driver,
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Reset clears the controller's dynamic state, e.g. before replaying
// from the initial pose.
func (s *Simulator) Reset() { s.ctrl.ResetState() }

// Step runs one control cycle: sensor synthesis, state estimation,
// control, and plant integration. Returned state is the plant state
// after the cycle.
func (s *Simulator) Step(x State, t, dt float64, frame int) (State, telemetry.Record, Control, error) {
	accel, gyro, servoPos, wheelDelta := s.vehicle.Sensors(x, dt)

	s.ctrl.SetPose(x[0], x[1], x[2])
	s.ctrl.UpdateState(s.driver, accel, gyro, servoPos, wheelDelta, dt)
	throttle, steering := s.ctrl.GetControl(s.driver, 1, 0, dt, true, frame)

	u := Control{Throttle: throttle, Steering: steering}
	rec := s.ctrl.Snapshot()

	next := s.integ.Step(s.vehicle, x, u, t, dt)
	if !next.IsValid() {
		return next, rec, u, StepError{Time: t, Step: frame, Message: "invalid state (NaN/Inf)"}
	}
	return next, rec, u, nil
}

// Run drives the loop for the configured duration.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		Records:  make([]telemetry.Record, 0, steps),
		Controls: make([]Control, 0, steps),
		Times:    make([]float64, 0, steps),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.ctrl.ResetState()
	s.vehicle.Seed(cfg.Seed)

	x := x0.Clone()
	t := 0.0

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		next, rec, u, err := s.Step(x, t, cfg.Dt, i)
		if err != nil {
			result.Errors = append(result.Errors, err)
			break
		}

		for _, m := range s.metrics {
			m.Observe(rec, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(rec, u, t)
		}

		result.Records = append(result.Records, rec)
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)

		x = next
		t += cfg.Dt
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}
