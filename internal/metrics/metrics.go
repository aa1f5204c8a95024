// Package metrics accumulates per-run scalar summaries over the
// telemetry stream.
package metrics

import (
	"math"

	"github.com/san-kum/drivelab/internal/sim"
	"github.com/san-kum/drivelab/internal/telemetry"
)

// TrackingError is the RMS cross-track error.
type TrackingError struct {
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (m *TrackingError) Name() string { return "tracking_error_rms" }

func (m *TrackingError) Observe(rec telemetry.Record, u sim.Control, t float64) {
	ye := float64(rec.YE)
	m.sumSq += ye * ye
	m.samples++
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *TrackingError) Reset() {
	m.sumSq = 0
	m.samples = 0
}

// ControlEffort is the mean absolute actuator command.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (m *ControlEffort) Name() string { return "control_effort" }

func (m *ControlEffort) Observe(rec telemetry.Record, u sim.Control, t float64) {
	m.sum += math.Abs(u.Throttle) + math.Abs(u.Steering)
	m.samples++
}

func (m *ControlEffort) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *ControlEffort) Reset() {
	m.sum = 0
	m.samples = 0
}

// MeanSpeed is the average rear wheel speed.
type MeanSpeed struct {
	sum     float64
	samples int
}

func NewMeanSpeed() *MeanSpeed { return &MeanSpeed{} }

func (m *MeanSpeed) Name() string { return "mean_speed" }

func (m *MeanSpeed) Observe(rec telemetry.Record, u sim.Control, t float64) {
	m.sum += float64(rec.VR)
	m.samples++
}

func (m *MeanSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanSpeed) Reset() {
	m.sum = 0
	m.samples = 0
}

// Default is the standard set reported for every run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewTrackingError(),
		NewControlEffort(),
		NewMeanSpeed(),
	}
}
