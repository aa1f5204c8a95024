package track

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestGetTargetCircle(t *testing.T) {
	trk := Circle(8, 96)

	tgt, ok := trk.GetTarget(10, 0)
	if !ok {
		t.Fatal("expected target on circle")
	}

	if math.Abs(math.Hypot(tgt.CX, tgt.CY)-8) > 0.05 {
		t.Errorf("nearest point should sit on the circle, got (%f, %f)", tgt.CX, tgt.CY)
	}

	// left normal of a counterclockwise circle points at the center
	if math.Abs(tgt.NX-(-1)) > 0.1 || math.Abs(tgt.NY) > 0.1 {
		t.Errorf("expected inward normal near (-1, 0), got (%f, %f)", tgt.NX, tgt.NY)
	}
	if math.Abs(math.Hypot(tgt.NX, tgt.NY)-1) > 1e-9 {
		t.Errorf("normal should be unit length, got %f", math.Hypot(tgt.NX, tgt.NY))
	}

	// counterclockwise = turning left = positive curvature 1/r
	if math.Abs(tgt.K-1.0/8) > 0.01 {
		t.Errorf("expected curvature ~%f, got %f", 1.0/8, tgt.K)
	}
}

func TestGetTargetStraight(t *testing.T) {
	trk := Oval(12, 8, 0.5)

	// middle of the bottom straight
	tgt, ok := trk.GetTarget(0, -8.5)
	if !ok {
		t.Fatal("expected target on straight")
	}
	if math.Abs(tgt.CY-(-8)) > 0.05 {
		t.Errorf("nearest point should be on the straight at y=-8, got y=%f", tgt.CY)
	}
	if math.Abs(tgt.K) > 0.02 {
		t.Errorf("straight section should have ~zero curvature, got %f", tgt.K)
	}
}

func TestGetTargetOffTrack(t *testing.T) {
	trk := Circle(8, 48)

	if _, ok := trk.GetTarget(100, 100); ok {
		t.Error("expected lookup failure far off track")
	}
}

func TestGetTargetNilAndEmpty(t *testing.T) {
	var trk *Track
	if _, ok := trk.GetTarget(0, 0); ok {
		t.Error("nil track should fail lookups")
	}
}

func TestFromWaypointsTooFew(t *testing.T) {
	if _, err := FromWaypoints([][2]float64{{0, 0}, {1, 0}}); err == nil {
		t.Error("expected error for 2 waypoints")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.txt")

	data := []byte("# unit square\n0 0\n1 0\n1 1\n0 1  # corner\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	trk, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if trk.Len() != 4 {
		t.Errorf("expected 4 waypoints, got %d", trk.Len())
	}

	tgt, ok := trk.GetTarget(0.5, -0.2)
	if !ok {
		t.Fatal("expected target near bottom edge")
	}
	if math.Abs(tgt.CX-0.5) > 1e-9 || math.Abs(tgt.CY) > 1e-9 {
		t.Errorf("expected nearest point (0.5, 0), got (%f, %f)", tgt.CX, tgt.CY)
	}
}

func TestLoadBadLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.txt")

	if err := os.WriteFile(path, []byte("0 0\nnot a waypoint\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestBuiltin(t *testing.T) {
	for _, name := range BuiltinNames() {
		trk, ok := Builtin(name)
		if !ok || trk == nil {
			t.Errorf("builtin %q missing", name)
			continue
		}
		if trk.Len() < 3 {
			t.Errorf("builtin %q too small", name)
		}
	}
	if _, ok := Builtin("nonexistent"); ok {
		t.Error("expected no track for unknown name")
	}
}
