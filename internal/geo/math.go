package geo

import "math"

// MaxLat is the latitude limit of the Web Mercator tile grid.
const MaxLat = 85.05112878

// TileXY returns the slippy-map tile holding the given WGS84 coordinate.
//
// Longitude [-180..180] maps to x [0..2^z) and latitude is projected with
// spherical Mercator, clamped to MaxLat.
func TileXY(lon, lat float64, z int) (x, y int) {
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	n := float64(int(1) << z)
	x = int(math.Floor((lon + 180.0) / 360.0 * n))

	latRad := lat * math.Pi / 180.0
	mercatorY := math.Log(math.Tan(latRad) + 1/math.Cos(latRad))
	y = int(math.Floor((1.0 - mercatorY/math.Pi) / 2.0 * n))

	maxIdx := int(n) - 1
	return clampTile(x, maxIdx), clampTile(y, maxIdx)
}

// TileLonLat returns the north-west corner of a tile.
func TileLonLat(x, y, z int) (lon, lat float64) {
	n := float64(int(1) << z)
	lon = float64(x)/n*360.0 - 180.0

	// Inverse Mercator projection
	mercatorY := math.Pi * (1 - 2*float64(y)/n)
	lat = math.Atan(math.Sinh(mercatorY)) * 180.0 / math.Pi

	return lon, lat
}

func clampTile(v, maxIdx int) int {
	if v < 0 {
		return 0
	}
	if v > maxIdx {
		return maxIdx
	}
	return v
}
