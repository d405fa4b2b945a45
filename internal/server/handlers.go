// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geopro/internal/aggregate"
	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/filter"
	"github.com/woozymasta/geopro/internal/geo"
	"github.com/woozymasta/geopro/internal/render"
)

const (
	etagCap      = 64
	maxBodyBytes = 4 << 20
	localTileURL = "/tiles/{z}/{x}/{y}.webp"
)

// ConfigResponse describes the map and selectable labels to the client.
type ConfigResponse struct {
	Icons   config.IconSet `json:"icons"`
	Options []string       `json:"options"`
	Map     config.MapView `json:"map"`
	Drawing config.Drawing `json:"drawing"`
	Tiles   string         `json:"tiles"`
	MinZoom int            `json:"min_zoom"`
	MaxZoom int            `json:"max_zoom"`
}

// ViewResponse is the filtered and aggregated map content.
type ViewResponse struct {
	Selected []string            `json:"selected"`
	Markers  []render.MarkerView `json:"markers"`
	Shapes   []render.ShapeView  `json:"shapes"`
}

// MarkerRequest is a new marker placed by an operator. Location markers
// are described by Representative and Description instead of PopupText.
type MarkerRequest struct {
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Category       string  `json:"icon_name"`
	PopupText      string  `json:"popup_text"`
	Representative string  `json:"representative"`
	Description    string  `json:"description"`
}

// DrawRequest is a batch of shapes from the draw tool. Color is the active
// drawing color applied to regions without one.
type DrawRequest struct {
	Color    string        `json:"color"`
	Features []geo.Feature `json:"features"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleConfig serves the categories, selectable labels and map settings.
func (s *ServerContext) HandleConfig(w http.ResponseWriter, r *http.Request) {
	tiles := s.Config.Basemap.Satellite
	if s.LocalTiles {
		tiles = localTileURL
	}

	writeJSON(w, http.StatusOK, ConfigResponse{
		Icons:   s.Config.Icons,
		Options: filter.Options(s.Config.Icons),
		Map:     s.Config.Map,
		Drawing: s.Config.Drawing,
		Tiles:   tiles,
		MinZoom: s.Config.Basemap.MinZoom,
		MaxZoom: s.Config.Basemap.MaxZoom,
	})
}

// HandleView serves the markers and shapes visible for the selection given
// by repeated or comma separated "filter" parameters. Without a filter
// everything is visible. Regions carry the aggregation of visible markers.
func (s *ServerContext) HandleView(w http.ResponseWriter, r *http.Request) {
	labels := selectedLabels(r)
	sel := filter.All(s.Config.Icons)
	if len(labels) > 0 {
		sel = filter.Select(labels...)
	}

	snap := s.Store.Snapshot()
	markers := filter.VisibleMarkers(snap.Markers, sel)

	// delete keys use the position in the stored collection
	var keys []string
	visible := make([]geo.Feature, 0, len(snap.Shapes.Features))
	for i, f := range snap.Shapes.Features {
		if sel.Has(filter.ShapeLabel(f)) {
			keys = append(keys, annotation.ShapeKey(i, f))
			visible = append(visible, f)
		}
	}

	summaries, err := s.Engine.AggregateAll(markers, visible)
	if err != nil {
		writeError(w, err)
		return
	}

	shapes := make([]render.ShapeView, 0, len(visible))
	for i, f := range visible {
		shapes = append(shapes, s.Renderer.Shape(keys[i], f, summaries[i]))
	}

	if labels == nil {
		labels = filter.Options(s.Config.Icons)
	}

	writeJSON(w, http.StatusOK, ViewResponse{
		Selected: labels,
		Markers:  s.Renderer.Markers(r.Context(), markers),
		Shapes:   shapes,
	})
}

// HandleMarkersList serves the stored markers as persisted.
func (s *ServerContext) HandleMarkersList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Store.Markers())
}

// HandleMarkerAdd stores a new marker and returns it rendered.
func (s *ServerContext) HandleMarkerAdd(w http.ResponseWriter, r *http.Request) {
	var req MarkerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m := annotation.Marker{Lat: req.Lat, Lon: req.Lon, Category: req.Category, PopupText: req.PopupText}
	if req.Category == config.LocationCategory && (req.Representative != "" || req.Description != "") {
		m.PopupText = annotation.ComposeLocationText(req.Representative, req.Description)
	}

	added, err := s.Store.AddMarker(m)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.Renderer.Marker(r.Context(), added))
}

// HandleMarkerDelete removes the marker addressed by the identity in the
// body. Deleting a missing marker succeeds with deleted=false.
func (s *ServerContext) HandleMarkerDelete(w http.ResponseWriter, r *http.Request) {
	var id annotation.Identity
	if !decodeBody(w, r, &id) {
		return
	}

	deleted, err := s.Store.DeleteMarker(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

// HandleShapesList serves the stored feature collection as persisted.
func (s *ServerContext) HandleShapesList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	writeJSON(w, http.StatusOK, s.Store.Shapes())
}

// HandleShapesAdd stores a batch of drawn shapes.
func (s *ServerContext) HandleShapesAdd(w http.ResponseWriter, r *http.Request) {
	var req DrawRequest
	if !decodeBody(w, r, &req) {
		return
	}

	color := req.Color
	if color == "" {
		color = s.Config.Drawing.RegionColor
	}

	added, err := s.Store.AddShapes(req.Features, color)
	if err != nil {
		writeError(w, err)
		return
	}
	if added == nil {
		added = []geo.Feature{}
	}

	writeJSON(w, http.StatusCreated, added)
}

// HandleShapeDelete removes the shape addressed by its key.
func (s *ServerContext) HandleShapeDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.Store.DeleteShape(r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

// HandleTile serves a cached satellite tile or a transparent placeholder.
func (s *ServerContext) HandleTile(w http.ResponseWriter, r *http.Request) {
	// Path: /tiles/{z}/{x}/{y}.webp
	z, x := r.PathValue("z"), r.PathValue("x")
	y := strings.TrimSuffix(r.PathValue("y"), ".webp")

	// allow only numeric coordinates to prevent path probing
	for _, v := range []string{z, x, y} {
		if _, err := strconv.ParseUint(v, 10, 32); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	path := filepath.Join(s.Config.Basemap.TileDir, z, x, y+".webp")
	if s.serveFile(w, r, path, "image/webp") {
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(s.TransparentTile)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

func selectedLabels(r *http.Request) []string {
	var labels []string
	for _, v := range r.URL.Query()["filter"] {
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
	}
	return labels
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Malformed request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request: " + err.Error()})
		return false
	}
	return true
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var storageErr *annotation.StorageError
	switch {
	case errors.As(err, &storageErr):
		log.Error().Err(err).Msg("Annotation storage failed")
	case errors.Is(err, geo.ErrInvalidGeometry),
		errors.Is(err, annotation.ErrUnknownCategory),
		errors.Is(err, annotation.ErrInvalidCoordinates),
		errors.Is(err, aggregate.ErrNotRegion):
		status = http.StatusUnprocessableEntity
	default:
		log.Error().Err(err).Msg("Unexpected handler error")
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}
