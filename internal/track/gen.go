package track

import "math"

// Builtin returns a generated track by name, for simulation runs that
// don't have a recorded racing line on disk.
func Builtin(name string) (*Track, bool) {
	switch name {
	case "oval":
		return Oval(12, 8, 0.5), true
	case "circle":
		return Circle(8, 48), true
	case "hairpin":
		return Hairpin(14, 3, 0.5), true
	default:
		return nil, false
	}
}

// BuiltinNames lists the generated tracks.
func BuiltinNames() []string {
	return []string{"circle", "hairpin", "oval"}
}

// Circle generates a counterclockwise circular track of radius r.
func Circle(r float64, n int) *Track {
	wps := make([][2]float64, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		wps[i] = [2]float64{r * math.Cos(a), r * math.Sin(a)}
	}
	t, _ := FromWaypoints(wps)
	return t
}

// Oval generates a stadium shape: two straights of length l joined by
// semicircles of radius r, with roughly the given waypoint spacing.
func Oval(l, r, spacing float64) *Track {
	var wps [][2]float64

	straightN := int(l/spacing) + 1
	arcN := int(math.Pi*r/spacing) + 1

	// bottom straight, left to right
	for i := 0; i < straightN; i++ {
		x := -l/2 + l*float64(i)/float64(straightN)
		wps = append(wps, [2]float64{x, -r})
	}
	// right semicircle
	for i := 0; i < arcN; i++ {
		a := -math.Pi/2 + math.Pi*float64(i)/float64(arcN)
		wps = append(wps, [2]float64{l/2 + r*math.Cos(a), r * math.Sin(a)})
	}
	// top straight, right to left
	for i := 0; i < straightN; i++ {
		x := l/2 - l*float64(i)/float64(straightN)
		wps = append(wps, [2]float64{x, r})
	}
	// left semicircle
	for i := 0; i < arcN; i++ {
		a := math.Pi/2 + math.Pi*float64(i)/float64(arcN)
		wps = append(wps, [2]float64{-l/2 + r*math.Cos(a), r * math.Sin(a)})
	}

	t, _ := FromWaypoints(wps)
	return t
}

// Hairpin generates a long straight into a tight turn and back: the
// stadium shape with a small end radius, which stresses the traction
// limited speed plan.
func Hairpin(l, r, spacing float64) *Track {
	return Oval(l, r, spacing)
}
