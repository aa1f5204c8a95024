package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/drivelab/internal/sim"
	"github.com/san-kum/drivelab/internal/telemetry"
)

func TestTrackingError(t *testing.T) {
	m := NewTrackingError()

	m.Observe(telemetry.Record{YE: 3}, sim.Control{}, 0)
	m.Observe(telemetry.Record{YE: -4}, sim.Control{}, 0.02)

	want := math.Sqrt((9.0 + 16.0) / 2)
	if math.Abs(m.Value()-want) > 1e-9 {
		t.Errorf("rms = %f, want %f", m.Value(), want)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()

	m.Observe(telemetry.Record{}, sim.Control{Throttle: 0.5, Steering: -0.5}, 0)
	m.Observe(telemetry.Record{}, sim.Control{Throttle: 1}, 0.02)

	if math.Abs(m.Value()-1.0) > 1e-9 {
		t.Errorf("effort = %f, want 1.0", m.Value())
	}
}

func TestMeanSpeed(t *testing.T) {
	m := NewMeanSpeed()
	if m.Value() != 0 {
		t.Error("empty metric should read zero")
	}

	m.Observe(telemetry.Record{VR: 2}, sim.Control{}, 0)
	m.Observe(telemetry.Record{VR: 4}, sim.Control{}, 0.02)

	if math.Abs(m.Value()-3) > 1e-9 {
		t.Errorf("mean = %f, want 3", m.Value())
	}
}

func TestDefaultSet(t *testing.T) {
	ms := Default()
	if len(ms) != 3 {
		t.Fatalf("expected 3 default metrics, got %d", len(ms))
	}
	seen := map[string]bool{}
	for _, m := range ms {
		seen[m.Name()] = true
	}
	for _, name := range []string{"tracking_error_rms", "control_effort", "mean_speed"} {
		if !seen[name] {
			t.Errorf("missing metric %q", name)
		}
	}
}
