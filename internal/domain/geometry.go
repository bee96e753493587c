package domain

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// circleEpsilon is the slack allowed when testing whether a point is inside a circle.
	circleEpsilon = 1e-12
	// collinearEpsilon is the determinant magnitude below which three points are treated as collinear.
	collinearEpsilon = 1e-18
)

// Circle is a center point (lon, lat) and a radius in the same units as the input coordinates.
type Circle struct {
	Center orb.Point `json:"center"`
	Radius float64   `json:"radius"`
}

// Contains reports whether p lies inside the circle, allowing for floating point slack.
func (c Circle) Contains(p orb.Point) bool {
	return distance(c.Center, p) <= c.Radius+circleEpsilon
}

// MinimumEnclosingCircle returns the smallest circle containing every point of
// every ring. Coincident points are counted once. An empty input yields the
// zero circle at (0, 0).
//
// The construction is the deterministic incremental form of Welzl's algorithm.
// It is cubic in the worst case, which is fine for outage polygons.
func MinimumEnclosingCircle(rings []orb.Ring) Circle {
	points := uniquePoints(rings)

	switch len(points) {
	case 0:
		return Circle{}
	case 1:
		return Circle{Center: points[0]}
	}

	var c Circle
	for i, p := range points {
		if i > 0 && c.Contains(p) {
			continue
		}
		c = Circle{Center: p}
		for j := 0; j < i; j++ {
			q := points[j]
			if c.Contains(q) {
				continue
			}
			c = circleFromTwo(p, q)
			for k := 0; k < j; k++ {
				r := points[k]
				if c.Contains(r) {
					continue
				}
				if c3, ok := circleFromThree(p, q, r); ok {
					c = c3
				}
			}
		}
	}
	return c
}

func uniquePoints(rings []orb.Ring) []orb.Point {
	seen := make(map[orb.Point]struct{})
	var points []orb.Point
	for _, ring := range rings {
		for _, p := range ring {
			if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			points = append(points, p)
		}
	}
	return points
}

func distance(a, b orb.Point) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

func circleFromTwo(a, b orb.Point) Circle {
	center := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
	return Circle{Center: center, Radius: math.Max(distance(center, a), distance(center, b))}
}

// circleFromThree returns the circumcircle of a, b and c, or false when the
// points are collinear. The circumcenter is solved relative to a, since at
// map coordinates the squared terms of the absolute formula cancel badly.
// The radius reaches the farthest of the three so each lies inside.
func circleFromThree(a, b, c orb.Point) (Circle, bool) {
	bx, by := b[0]-a[0], b[1]-a[1]
	cx, cy := c[0]-a[0], c[1]-a[1]

	d := 2 * (bx*cy - by*cx)
	if math.Abs(d) < collinearEpsilon {
		return Circle{}, false
	}

	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	center := orb.Point{
		a[0] + (cy*b2-by*c2)/d,
		a[1] + (bx*c2-cx*b2)/d,
	}
	radius := math.Max(distance(center, a), math.Max(distance(center, b), distance(center, c)))
	return Circle{Center: center, Radius: radius}, true
}
