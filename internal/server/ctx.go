package server

import (
	"bytes"
	"image"
	"net/http"
	"os"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geopro/internal/aggregate"
	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/metrics"
	"github.com/woozymasta/geopro/internal/render"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config          *config.Config
	Store           *annotation.Store
	Engine          *aggregate.Engine
	Renderer        *render.Renderer
	TransparentTile []byte
	// LocalTiles is set when the satellite tile cache directory exists.
	LocalTiles bool
}

// NewServerContext wires the handlers to their collaborators and prepares
// the fallback tile served for uncached areas.
func NewServerContext(cfg *config.Config, store *annotation.Store, engine *aggregate.Engine, renderer *render.Renderer) (*ServerContext, error) {
	tile, err := transparentTile(cfg.Basemap.TileSize)
	if err != nil {
		return nil, err
	}

	s := &ServerContext{
		Config:          cfg,
		Store:           store,
		Engine:          engine,
		Renderer:        renderer,
		TransparentTile: tile,
	}

	if info, err := os.Stat(cfg.Basemap.TileDir); err == nil && info.IsDir() {
		s.LocalTiles = true
		log.Debug().Str("path", cfg.Basemap.TileDir).Msg("Satellite tile cache found")
	} else {
		log.Trace().
			Str("path", cfg.Basemap.TileDir).
			Msg("Satellite tile cache not found, clients use the upstream source")
	}

	snap := store.Snapshot()
	log.Info().
		Int("markers", len(snap.Markers)).
		Int("shapes", len(snap.Shapes.Features)).
		Int("categories", len(cfg.Icons)).
		Bool("local_tiles", s.LocalTiles).
		Msg("Server context initialized successfully")

	return s, nil
}

// Routes registers all handlers on a new mux.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.HandleConfig)
	mux.HandleFunc("GET /api/view", s.HandleView)
	mux.HandleFunc("GET /api/markers", s.HandleMarkersList)
	mux.HandleFunc("POST /api/markers", s.HandleMarkerAdd)
	mux.HandleFunc("DELETE /api/markers", s.HandleMarkerDelete)
	mux.HandleFunc("GET /api/shapes", s.HandleShapesList)
	mux.HandleFunc("POST /api/shapes", s.HandleShapesAdd)
	mux.HandleFunc("DELETE /api/shapes/{key}", s.HandleShapeDelete)
	mux.HandleFunc("GET /tiles/{z}/{x}/{y}", s.HandleTile)
	mux.Handle("GET /metrics", metrics.Handler())

	return RequestLogger(mux)
}

func transparentTile(size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}

	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
