package geo

import (
	"math"
	"testing"
)

func TestTileXY_KnownTiles(t *testing.T) {
	cases := []struct {
		lon, lat float64
		z        int
		x, y     int
	}{
		{0, 0, 0, 0, 0},
		{-179.9, 85, 1, 0, 0},
		{179.9, -85, 1, 1, 1},
		{68.434838, 30.391638, 12, 2826, 1684},
	}
	for _, c := range cases {
		x, y := TileXY(c.lon, c.lat, c.z)
		if x != c.x || y != c.y {
			t.Errorf("TileXY(%v, %v, %d) = (%d, %d), want (%d, %d)", c.lon, c.lat, c.z, x, y, c.x, c.y)
		}
	}
}

func TestTileXY_ClampsPoles(t *testing.T) {
	x, y := TileXY(180, 90, 3)
	if x != 7 || y != 0 {
		t.Errorf("expected clamped (7, 0), got (%d, %d)", x, y)
	}
}

func TestTileLonLat_InvertsTileXY(t *testing.T) {
	lon, lat := TileLonLat(2826, 1684, 12)
	x, y := TileXY(lon+1e-9, lat-1e-9, 12)
	if x != 2826 || y != 1684 {
		t.Errorf("expected corner to map back to (2826, 1684), got (%d, %d)", x, y)
	}
	if math.Abs(lon-68.37890625) > 1e-9 {
		t.Errorf("unexpected west edge %v", lon)
	}
}
