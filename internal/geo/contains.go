package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidGeometry is returned for polygons that cannot be tested for containment.
var ErrInvalidGeometry = errors.New("invalid geometry")

// edge tolerance in degrees
const onEdgeEpsilon = 1e-12

// Contains reports whether pt lies inside the polygon described by rings.
//
// Only the outer ring (rings[0]) is considered. Holes in further rings are
// ignored, so a point inside a hole still counts as contained.
// Points lying on an edge or a vertex of the outer ring count as contained.
func Contains(pt orb.Point, rings []orb.Ring) (bool, error) {
	if len(rings) == 0 {
		return false, fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
	}

	return RingContains(pt, rings[0])
}

// RingContains runs an even-odd ray cast of pt against ring.
// An unclosed ring is treated as if its last vertex connects to the first.
func RingContains(pt orb.Point, ring orb.Ring) (bool, error) {
	vertices, err := openRing(ring)
	if err != nil {
		return false, err
	}
	if !finite(pt) {
		return false, fmt.Errorf("%w: point %v is not finite", ErrInvalidGeometry, pt)
	}

	if !orb.MultiPoint(vertices).Bound().Contains(pt) {
		return false, nil
	}

	inside := false
	n := len(vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := vertices[j], vertices[i]
		if onSegment(pt, a, b) {
			return true, nil
		}

		if (b[1] > pt[1]) != (a[1] > pt[1]) {
			x := (a[0]-b[0])*(pt[1]-b[1])/(a[1]-b[1]) + b[0]
			if pt[0] < x {
				inside = !inside
			}
		}
	}

	return inside, nil
}

// ValidateRing checks that ring describes a polygon with at least three
// distinct finite vertices.
func ValidateRing(ring orb.Ring) error {
	_, err := openRing(ring)
	return err
}

// openRing drops closing duplicates of the first vertex and validates the rest.
func openRing(ring orb.Ring) ([]orb.Point, error) {
	vertices := []orb.Point(ring)
	for len(vertices) > 1 && vertices[len(vertices)-1] == vertices[0] {
		vertices = vertices[:len(vertices)-1]
	}

	distinct := make(map[orb.Point]struct{}, len(vertices))
	for _, v := range vertices {
		if !finite(v) {
			return nil, fmt.Errorf("%w: vertex %v is not finite", ErrInvalidGeometry, v)
		}
		distinct[v] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, fmt.Errorf("%w: ring has %d distinct vertices, need at least 3", ErrInvalidGeometry, len(distinct))
	}

	return vertices, nil
}

func onSegment(p, a, b orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if math.Abs(cross) > onEdgeEpsilon {
		return false
	}

	return p[0] >= math.Min(a[0], b[0])-onEdgeEpsilon &&
		p[0] <= math.Max(a[0], b[0])+onEdgeEpsilon &&
		p[1] >= math.Min(a[1], b[1])-onEdgeEpsilon &&
		p[1] <= math.Max(a[1], b[1])+onEdgeEpsilon
}

func finite(p orb.Point) bool {
	for _, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
