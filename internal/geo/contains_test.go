package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func square() []orb.Ring {
	return []orb.Ring{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}}
}

func TestContains_Inside(t *testing.T) {
	cases := []orb.Point{{0, 0}, {0.5, -0.5}, {-0.99, 0.99}}
	for _, pt := range cases {
		ok, err := Contains(pt, square())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Errorf("expected %v inside the square", pt)
		}
	}
}

func TestContains_FarOutside(t *testing.T) {
	cases := []orb.Point{{10, 10}, {-50, 0}, {0, 89}, {1.0001, 0}}
	for _, pt := range cases {
		ok, err := Contains(pt, square())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Errorf("expected %v outside the square", pt)
		}
	}
}

func TestContains_BoundaryCountsAsInside(t *testing.T) {
	cases := []orb.Point{
		{1, 0},    // right edge
		{0, -1},   // bottom edge
		{-1, 1},   // vertex
		{1, 1},    // closing vertex
		{-1, 0.5}, // closing edge
	}
	for _, pt := range cases {
		ok, err := Contains(pt, square())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Errorf("expected boundary point %v to be contained", pt)
		}
	}
}

func TestContains_UnclosedRingIsAutoClosed(t *testing.T) {
	open := []orb.Ring{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}}

	ok, err := Contains(orb.Point{0, 0}, open)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected origin inside auto-closed ring")
	}

	// on the implicit closing edge
	ok, err = Contains(orb.Point{-1, 0}, open)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected point on implicit closing edge to be contained")
	}
}

func TestContains_Concave(t *testing.T) {
	// U shape opening upwards
	u := []orb.Ring{{{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}}}

	inNotch, err := Contains(orb.Point{1.5, 2}, u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inNotch {
		t.Errorf("expected point in the notch to be outside")
	}

	inArm, err := Contains(orb.Point{0.5, 2}, u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inArm {
		t.Errorf("expected point in the arm to be inside")
	}
}

func TestContains_HolesIgnored(t *testing.T) {
	rings := []orb.Ring{
		{{-2, -2}, {2, -2}, {2, 2}, {-2, 2}, {-2, -2}},
		{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}},
	}

	ok, err := Contains(orb.Point{0, 0}, rings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected point in hole to count as contained (outer ring only)")
	}
}

func TestContains_Degenerate(t *testing.T) {
	cases := map[string][]orb.Ring{
		"no rings":        {},
		"empty ring":      {{}},
		"single vertex":   {{{0, 0}}},
		"two vertices":    {{{0, 0}, {1, 1}}},
		"closed segment":  {{{0, 0}, {1, 1}, {0, 0}}},
		"repeated points": {{{0, 0}, {0, 0}, {1, 1}, {1, 1}}},
		"nan vertex":      {{{0, 0}, {1, 0}, {math.NaN(), 1}}},
	}
	for name, rings := range cases {
		_, err := Contains(orb.Point{0, 0}, rings)
		if !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("%s: expected ErrInvalidGeometry, got %v", name, err)
		}
	}
}

func TestContains_LonLatOrder(t *testing.T) {
	// tall thin rectangle: lon in [0, 1], lat in [0, 10]
	rect := []orb.Ring{{{0, 0}, {1, 0}, {1, 10}, {0, 10}}}

	ok, err := Contains(orb.Point{0.5, 5}, rect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected (lon 0.5, lat 5) inside")
	}

	ok, err = Contains(orb.Point{5, 0.5}, rect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected swapped coordinates (lon 5, lat 0.5) outside")
	}
}

func TestValidateRing(t *testing.T) {
	if err := ValidateRing(square()[0]); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateRing(orb.Ring{{0, 0}, {1, 1}}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}
