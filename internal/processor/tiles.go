package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/geo"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TileCoordinate represents a specific tile.
type TileCoordinate struct {
	Z, X, Y int
}

// TileStats summarises a tile cache run.
type TileStats struct {
	Saved   int
	Skipped int
	Missing int
	Failed  int
}

type job struct {
	URLTemplate string
	BaseDir     string
	TileSize    int
	Coord       TileCoordinate
}

type status int

const (
	tileSaved status = iota
	tileSkipped
	tileMissing
	tileFailed
)

// Coverage lists the tiles covering the basemap bounds for every zoom level
// in the configured range, ordered by zoom, x and y.
func Coverage(b config.Basemap) []TileCoordinate {
	var tiles []TileCoordinate
	for z := b.MinZoom; z <= b.MaxZoom; z++ {
		// north-west corner has the smallest y
		minX, minY := geo.TileXY(b.Bounds[0], b.Bounds[3], z)
		maxX, maxY := geo.TileXY(b.Bounds[2], b.Bounds[1], z)

		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				tiles = append(tiles, TileCoordinate{Z: z, X: x, Y: y})
			}
		}
	}
	return tiles
}

// CoveredBounds returns the area spanned by the tiles at the deepest zoom as
// [west, south, east, north]. It is at least the configured bounds.
func CoveredBounds(b config.Basemap) [4]float64 {
	minX, minY := geo.TileXY(b.Bounds[0], b.Bounds[3], b.MaxZoom)
	maxX, maxY := geo.TileXY(b.Bounds[2], b.Bounds[1], b.MaxZoom)

	west, north := geo.TileLonLat(minX, minY, b.MaxZoom)
	east, south := geo.TileLonLat(maxX+1, maxY+1, b.MaxZoom)
	return [4]float64{west, south, east, north}
}

// ProcessTiles downloads the satellite tiles covering the basemap bounds
// and stores them as WebP under the tile directory. Existing tiles are kept
// unless force is set.
func ProcessTiles(ctx context.Context, client *http.Client, b config.Basemap, concurrency int, force bool) TileStats {
	tiles := Coverage(b)
	covered := CoveredBounds(b)

	log.Info().
		Str("source", b.Satellite).
		Str("dir", b.TileDir).
		Int("min_zoom", b.MinZoom).
		Int("max_zoom", b.MaxZoom).
		Int("tiles", len(tiles)).
		Floats64("covered", covered[:]).
		Msg("Starting tile download")

	stats := processBatch(ctx, client, concurrency, tiles, b, force)

	log.Info().
		Int("saved", stats.Saved).
		Int("skipped", stats.Skipped).
		Int("missing", stats.Missing).
		Int("failed", stats.Failed).
		Msg("Tile download finished")

	return stats
}

func processBatch(ctx context.Context, client *http.Client, concurrency int, tiles []TileCoordinate, b config.Basemap, force bool) TileStats {
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan job, len(tiles))
	results := make(chan status, len(tiles))

	go func() {
		defer close(jobs)
		for _, t := range tiles {
			select {
			case jobs <- job{Coord: t, URLTemplate: b.Satellite, BaseDir: b.TileDir, TileSize: b.TileSize}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				st, err := downloadAndConvert(ctx, client, j, force)
				if err != nil {
					log.Trace().
						Err(err).
						Str("url", buildURL(j.URLTemplate, j.Coord)).
						Msg("Failed to download tile")
				}
				results <- st
			}
		}()
	}
	wg.Wait()
	close(results)

	var stats TileStats
	for st := range results {
		switch st {
		case tileSaved:
			stats.Saved++
		case tileSkipped:
			stats.Skipped++
		case tileMissing:
			stats.Missing++
		default:
			stats.Failed++
		}
	}

	return stats
}

// TilePath is the cache location of a tile.
func TilePath(baseDir string, c TileCoordinate) string {
	return filepath.Join(
		baseDir,
		strconv.Itoa(c.Z),
		strconv.Itoa(c.X),
		strconv.Itoa(c.Y)+".webp")
}

func downloadAndConvert(ctx context.Context, client *http.Client, j job, force bool) (status, error) {
	outPath := TilePath(j.BaseDir, j.Coord)

	// Check existence if not forcing overwrite
	if !force {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			return tileSkipped, nil
		}
	}

	url := buildURL(j.URLTemplate, j.Coord)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tileFailed, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return tileFailed, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		log.Trace().Str("url", url).Msg("Tile not found (404)")
		return tileMissing, nil
	}
	if resp.StatusCode != http.StatusOK {
		return tileFailed, fmt.Errorf("status code %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return tileFailed, err
	}
	img, _, err := image.Decode(bytes.NewReader(bodyBytes))
	if err != nil {
		return tileFailed, fmt.Errorf("decode: %w", err)
	}

	// Filter out empty/1px tiles often returned by map servers for OOB areas
	if img.Bounds().Dx() <= 1 {
		log.Trace().Str("url", url).Msg("Filtered empty tile")
		return tileMissing, nil
	}

	img = resample(img, j.TileSize)

	if err := writeTile(outPath, img); err != nil {
		return tileFailed, err
	}

	return tileSaved, nil
}

var encodeTile = func(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: 80})
}

// writeTile encodes img to a temporary file beside path and renames it into
// place. Nothing is left at path when encoding fails.
func writeTile(path string, img image.Image) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn().Err(rmErr).Str("path", tmp).Msg("Failed to remove temporary tile")
			}
		}
	}()

	if err := encodeTile(f, img); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// resample scales img to a square of size pixels when it differs.
func resample(img image.Image, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || (b.Dx() == size && b.Dy() == size) {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func buildURL(tpl string, c TileCoordinate) string {
	s := strings.ReplaceAll(tpl, "{z}", strconv.Itoa(c.Z))
	s = strings.ReplaceAll(s, "{x}", strconv.Itoa(c.X))
	s = strings.ReplaceAll(s, "{y}", strconv.Itoa(c.Y))

	if strings.Contains(s, "{tms_y}") {
		maxCoord := (1 << c.Z) - 1
		tmsY := maxCoord - c.Y
		s = strings.ReplaceAll(s, "{tms_y}", strconv.Itoa(tmsY))
	}

	return s
}
