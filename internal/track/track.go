// Package track holds the precomputed racing line and answers
// nearest-point queries against it. A track is read-only after load and
// may be shared between controller instances.
package track

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
)

// DefaultMaxRange is how far off the line a query may be before the
// lookup reports failure instead of snapping to the nearest segment.
const DefaultMaxRange = 5.0

// Target is the local track geometry at the nearest point to a query.
type Target struct {
	CX, CY float64 // nearest point on the line
	NX, NY float64 // left-pointing unit normal
	K      float64 // signed curvature, positive = turning left
}

type point struct {
	x, y float64
}

// Track is a closed polyline of waypoints with per-vertex curvature.
type Track struct {
	pts      []point
	curv     []float64
	MaxRange float64
}

// Load reads a track file: one "x y" pair per line, '#' starts a comment.
// The polyline is treated as closed.
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pts []point
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var x, y float64
		if _, err := fmt.Sscanf(line, "%f %f", &x, &y); err != nil {
			return nil, fmt.Errorf("%s:%d: bad waypoint %q", path, lineno, line)
		}
		pts = append(pts, point{x, y})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return FromWaypoints(pointsToPairs(pts))
}

func pointsToPairs(pts []point) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = [2]float64{p.x, p.y}
	}
	return out
}

// FromWaypoints builds a track from an ordered closed loop of waypoints.
func FromWaypoints(waypoints [][2]float64) (*Track, error) {
	if len(waypoints) < 3 {
		return nil, fmt.Errorf("track needs at least 3 waypoints, got %d", len(waypoints))
	}
	t := &Track{
		pts:      make([]point, len(waypoints)),
		MaxRange: DefaultMaxRange,
	}
	for i, wp := range waypoints {
		t.pts[i] = point{wp[0], wp[1]}
	}
	t.curv = vertexCurvatures(t.pts)
	return t, nil
}

// vertexCurvatures computes signed curvature at each waypoint as the
// turning angle between adjacent segments over half their total length.
func vertexCurvatures(pts []point) []float64 {
	n := len(pts)
	curv := make([]float64, n)
	for i := 0; i < n; i++ {
		prev := pts[(i+n-1)%n]
		cur := pts[i]
		next := pts[(i+1)%n]

		ax, ay := cur.x-prev.x, cur.y-prev.y
		bx, by := next.x-cur.x, next.y-cur.y
		la := math.Hypot(ax, ay)
		lb := math.Hypot(bx, by)
		if la == 0 || lb == 0 {
			continue
		}

		// signed turning angle from segment a to segment b
		angle := math.Atan2(ax*by-ay*bx, ax*bx+ay*by)
		curv[i] = angle / (0.5 * (la + lb))
	}
	return curv
}

// Len returns the number of waypoints.
func (t *Track) Len() int { return len(t.pts) }

// Waypoint returns waypoint i, for rendering.
func (t *Track) Waypoint(i int) (x, y float64) {
	p := t.pts[i%len(t.pts)]
	return p.x, p.y
}

// GetTarget projects (x, y) onto the track and returns the nearest point,
// the left normal there, and the local curvature. ok is false when no
// track is loaded or the query point is beyond MaxRange of every segment.
func (t *Track) GetTarget(x, y float64) (Target, bool) {
	if t == nil || len(t.pts) < 3 {
		return Target{}, false
	}

	best := math.Inf(1)
	var bestTgt Target
	n := len(t.pts)

	for i := 0; i < n; i++ {
		p0 := t.pts[i]
		p1 := t.pts[(i+1)%n]
		dx, dy := p1.x-p0.x, p1.y-p0.y
		segLen2 := dx*dx + dy*dy
		if segLen2 == 0 {
			continue
		}

		// clamped projection onto the segment
		s := ((x-p0.x)*dx + (y-p0.y)*dy) / segLen2
		if s < 0 {
			s = 0
		} else if s > 1 {
			s = 1
		}
		cx := p0.x + s*dx
		cy := p0.y + s*dy

		d2 := (x-cx)*(x-cx) + (y-cy)*(y-cy)
		if d2 >= best {
			continue
		}
		best = d2

		segLen := math.Sqrt(segLen2)
		tx, ty := dx/segLen, dy/segLen
		bestTgt = Target{
			CX: cx,
			CY: cy,
			NX: -ty,
			NY: tx,
			K:  (1-s)*t.curv[i] + s*t.curv[(i+1)%n],
		}
	}

	if math.Sqrt(best) > t.MaxRange {
		return Target{}, false
	}
	return bestTgt, true
}
