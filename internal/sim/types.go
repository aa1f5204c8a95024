// Package sim closes the loop around the drive controller: a planar
// vehicle plant, sensor synthesis, and a fixed-period run loop that
// produces telemetry records.
package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/drivelab/internal/telemetry"
)

// State is a plant state vector.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) add(other State, scale float64) State {
	out := make(State, len(s))
	for i := range s {
		out[i] = s[i] + scale*other[i]
	}
	return out
}

// Control is one cycle's actuator command pair.
type Control struct {
	Throttle float64 // [-1, 1]
	Steering float64 // [-1, 1]
}

// Dynamics is a continuous-time plant model.
type Dynamics interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
}

// Integrator advances a plant state by one step.
type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t, dt float64) State
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(rec telemetry.Record, u Control, t float64)
	Value() float64
	Reset()
}

// Observer is called once per control cycle, e.g. by the live view.
type Observer interface {
	OnStep(rec telemetry.Record, u Control, t float64)
}

// Config bounds one simulation run.
type Config struct {
	Dt       float64
	Duration float64
	Seed     int64
}

// Result collects a finished run.
type Result struct {
	Records  []telemetry.Record
	Controls []Control
	Times    []float64
	Metrics  map[string]float64
	Errors   []error
}

// StepError marks an aborted step.
type StepError struct {
	Time    float64
	Step    int
	Message string
}

func (e StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
